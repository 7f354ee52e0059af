/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/friendsincode/grimnir_scheduler/internal/store"
)

// validateRequest runs every precondition for a mutation batch before
// anything is written. A single failing tuple aborts the whole batch.
//
// Checks, in order: batch shape, row existence, entry/instance
// agreement, authorization, recording lock, show expiry, optimistic
// timestamp, and the linked-show on-air rule for additions.
func (e *Engine) validateRequest(ctx context.Context, tx store.Store, clk runClock, batch []AnchorRequest, userID string, isAdd bool) error {
	if len(batch) == 0 {
		return ErrInvalidRequest
	}

	entryInstance := make(map[string]string)
	instanceStamp := make(map[string]time.Time)
	for _, req := range batch {
		if req.InstanceID == "" {
			return ErrInvalidRequest
		}
		if req.EntryID != "" {
			entryInstance[req.EntryID] = req.InstanceID
		}
		instanceStamp[req.InstanceID] = req.ClientTimestamp
	}

	entryIDs := make([]string, 0, len(entryInstance))
	for id := range entryInstance {
		entryIDs = append(entryIDs, id)
	}
	entries, err := tx.EntriesByIDs(ctx, entryIDs)
	if err != nil {
		return storagef("load anchor entries", err)
	}
	if len(entries) != len(entryIDs) {
		return stalef("a scheduled item was deleted")
	}

	instanceIDs := make([]string, 0, len(instanceStamp))
	for id := range instanceStamp {
		instanceIDs = append(instanceIDs, id)
	}
	instances, err := tx.InstancesByIDs(ctx, instanceIDs)
	if err != nil {
		return storagef("load show instances", err)
	}
	if len(instances) != len(instanceIDs) {
		return stalef("a show instance was deleted")
	}

	for _, entry := range entries {
		if entryInstance[entry.ID] != entry.InstanceID {
			return stalef("a scheduled item was moved")
		}
	}

	for i := range instances {
		instance := &instances[i]

		show, err := tx.ShowByID(ctx, instance.ShowID)
		if err != nil {
			return storagef("load show", err)
		}

		if err := e.authorize(ctx, userID, show); err != nil {
			return err
		}

		if instance.IsRecording {
			return ErrRecordingLocked
		}

		if instance.EndsAt.Before(clk.Now) {
			return fmt.Errorf("%w: show %q", ErrShowExpired, show.Name)
		}

		// Optimistic concurrency: the client echoes the LastScheduled it
		// fetched; anything older than the store's value means someone
		// else scheduled in between. Second granularity matches what
		// clients receive.
		if instance.LastScheduled != nil {
			clientTS := instanceStamp[instance.ID].Truncate(time.Second)
			lastTS := instance.LastScheduled.UTC().Truncate(time.Second)
			if clientTS.Before(lastTS) {
				e.logger.Info().
					Time("client_ts", clientTS).
					Time("last_scheduled", lastTS).
					Str("instance", instance.ID).
					Msg("rejecting stale schedule mutation")
				return stalef("show %q has been previously updated", show.Name)
			}
		}

		if isAdd && show.Linked {
			siblings, err := tx.InstancesByShow(ctx, show.ID)
			if err != nil {
				return storagef("load linked instances", err)
			}
			for j := range siblings {
				if siblings[j].Airing(clk.Now) {
					return ErrLinkedShowPlaying
				}
			}
		}
	}

	return nil
}
