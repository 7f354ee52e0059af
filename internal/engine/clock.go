/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import "time"

// nowEpsilon is subtracted from the wall clock for every engine run.
// The playout process may set an entry's end to "now" moments before a
// run starts; without the epsilon that entry could still count as
// playing and produce an off-by-milliseconds filler.
const nowEpsilon = time.Second

// runClock pins a single "now" for an entire engine run so every check
// and every computed timestamp agrees on the same instant.
type runClock struct {
	// Now is the run reference, UTC, microsecond precision.
	Now time.Time
	// NowTruncated is Now on a whole-second boundary, used for filler
	// entry boundaries.
	NowTruncated time.Time
}

func runClockAt(t time.Time) runClock {
	now := t.UTC().Add(-nowEpsilon).Truncate(time.Microsecond)
	return runClock{
		Now:          now,
		NowTruncated: now.Truncate(time.Second),
	}
}
