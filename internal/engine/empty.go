/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import (
	"context"
	"errors"

	"github.com/friendsincode/grimnir_scheduler/internal/models"
	"github.com/friendsincode/grimnir_scheduler/internal/store"
	"github.com/friendsincode/grimnir_scheduler/internal/telemetry"
)

// EmptyInstance removes every schedule entry from an instance. For a
// linked show the whole sibling group is emptied together, since linked
// instances must always carry identical content. Files that no longer
// appear anywhere in the future schedule have their scheduled flag
// cleared.
func (e *Engine) EmptyInstance(ctx context.Context, instanceID, userID string) error {
	ctx, span := telemetry.StartSpan(ctx, "engine", "engine.empty_instance")
	defer span.End()

	clk := e.clock()

	err := e.store.WithTransaction(ctx, func(tx store.Store) error {
		instance, err := tx.InstanceByID(ctx, instanceID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return stalef("a show instance was deleted")
			}
			return storagef("load instance", err)
		}
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

		targets := []models.ShowInstance{*instance}
		if show.Linked {
			targets, err = tx.InstancesByShow(ctx, show.ID)
			if err != nil {
				return storagef("load linked instances", err)
			}
		}
		targetIDs := make([]string, 0, len(targets))
		for i := range targets {
			targetIDs = append(targetIDs, targets[i].ID)
		}

		fileIDs, err := tx.FileIDsByInstances(ctx, targetIDs)
		if err != nil {
			return storagef("collect file references", err)
		}

		if err := tx.DeleteEntriesByInstances(ctx, targetIDs); err != nil {
			return storagef("delete entries", err)
		}

		// A file stays flagged while any other future entry still plays
		// it.
		if len(fileIDs) > 0 {
			stillScheduled, err := tx.FutureScheduledFileIDs(ctx, clk.Now)
			if err != nil {
				return storagef("load future file references", err)
			}
			keep := make(map[string]struct{}, len(stillScheduled))
			for _, id := range stillScheduled {
				keep[id] = struct{}{}
			}
			release := fileIDs[:0]
			for _, id := range fileIDs {
				if _, ok := keep[id]; !ok {
					release = append(release, id)
				}
			}
			if err := tx.SetFilesScheduled(ctx, release, false); err != nil {
				return storagef("clear file scheduled flags", err)
			}
		}

		stamp := truncMicros(e.now())
		for i := range targets {
			target := &targets[i]
			target.TimeFilled = 0
			target.LastScheduled = &stamp
			if err := tx.SaveInstance(ctx, target); err != nil {
				return storagef("save instance", err)
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	e.logger.Info().Str("instance", instanceID).Msg("instance emptied")
	e.sink.ScheduleChanged(ctx)
	return nil
}
