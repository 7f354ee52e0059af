/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import "time"

// All schedule timestamps are UTC at microsecond precision. Durations
// are integer nanoseconds, so start + clipLength round-trips exactly;
// no floating point enters interval arithmetic anywhere in the engine.

func truncMicros(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func nowMicros() time.Time {
	return truncMicros(time.Now())
}

// endTime computes an entry's end from its start and clip length.
func endTime(start time.Time, clipLength time.Duration) time.Time {
	return start.Add(clipLength)
}

// applyCrossfade shifts a start time backward so the entry overlaps its
// predecessor by the crossfade window.
func applyCrossfade(t time.Time, crossfade time.Duration) time.Time {
	if crossfade <= 0 {
		return t
	}
	return t.Add(-crossfade)
}
