/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import (
	"errors"
	"fmt"
)

// Error taxonomy for schedule mutations. Callers distinguish stale
// conflicts (refetch and retry) from terminal authorization or business
// rule failures.
var (
	// ErrInvalidRequest marks a malformed or empty mutation batch.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrStaleSchedule marks a concurrent-edit conflict: a referenced row
	// was deleted or moved, or the client timestamp is older than the
	// instance's last mutation. The caller must refetch and retry.
	ErrStaleSchedule = errors.New("the schedule you're viewing is out of date")

	// ErrUnauthorized marks a caller without scheduling rights on a show.
	ErrUnauthorized = errors.New("not allowed to schedule this show")

	// ErrRecordingLocked rejects manual scheduling on recording instances.
	ErrRecordingLocked = errors.New("cannot add content to a recording show")

	// ErrShowExpired rejects scheduling into an instance that already ended.
	ErrShowExpired = errors.New("show is over and cannot be scheduled")

	// ErrLinkedShowPlaying rejects additions while any instance of a
	// linked show is on air.
	ErrLinkedShowPlaying = errors.New("content in linked shows must be scheduled before or after any one is broadcast")

	// ErrMediaNotFound marks a media reference that is deleted or hidden.
	ErrMediaNotFound = errors.New("selected media does not exist")
)

func stalef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStaleSchedule, fmt.Sprintf(format, args...))
}

// StorageError wraps a failed store operation inside an engine run. Any
// occurrence rolls the whole transaction back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storagef(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
