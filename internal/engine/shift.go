/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import (
	"context"
	"time"

	"github.com/friendsincode/grimnir_scheduler/internal/models"
	"github.com/friendsincode/grimnir_scheduler/internal/store"
	"github.com/friendsincode/grimnir_scheduler/internal/telemetry"
)

// ShiftInstanceEntries slides every entry of the given instances by the
// same offset, keeping all relative spacing. Callers pass either an
// explicit delta or a newStart, in which case the delta is derived from
// the earliest entry across the instances. Used when show instances are
// re-timed on the calendar.
func (e *Engine) ShiftInstanceEntries(ctx context.Context, instanceIDs []string, delta time.Duration, newStart *time.Time) error {
	ctx, span := telemetry.StartSpan(ctx, "engine", "engine.shift_instance_entries")
	defer span.End()

	if len(instanceIDs) == 0 {
		return ErrInvalidRequest
	}

	err := e.store.WithTransaction(ctx, func(tx store.Store) error {
		all := make([][]models.ScheduleEntry, len(instanceIDs))
		var earliest time.Time
		for i, id := range instanceIDs {
			entries, err := tx.EntriesByInstance(ctx, id)
			if err != nil {
				return storagef("load instance entries", err)
			}
			all[i] = entries
			for j := range entries {
				if earliest.IsZero() || entries[j].StartsAt.Before(earliest) {
					earliest = entries[j].StartsAt
				}
			}
		}
		if earliest.IsZero() {
			return nil
		}

		if newStart != nil {
			delta = truncMicros(*newStart).Sub(earliest)
		}
		if delta == 0 {
			return nil
		}

		stamp := truncMicros(e.now())
		for i, id := range instanceIDs {
			for j := range all[i] {
				entry := &all[i][j]
				entry.StartsAt = entry.StartsAt.Add(delta)
				entry.EndsAt = entry.EndsAt.Add(delta)
				if err := tx.SaveEntry(ctx, entry); err != nil {
					return storagef("save shifted entry", err)
				}
			}
			if len(all[i]) == 0 {
				continue
			}
			instance, err := tx.InstanceByID(ctx, id)
			if err != nil {
				return storagef("load instance", err)
			}
			instance.LastScheduled = &stamp
			if err := tx.SaveInstance(ctx, instance); err != nil {
				return storagef("save instance", err)
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	e.logger.Info().
		Int("instances", len(instanceIDs)).
		Dur("delta", delta).
		Msg("schedule entries shifted")
	e.sink.ScheduleChanged(ctx)
	return nil
}
