/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/friendsincode/grimnir_scheduler/internal/models"
	"github.com/friendsincode/grimnir_scheduler/internal/store"
	"github.com/friendsincode/grimnir_scheduler/internal/telemetry"
)

// RemoveGaps re-flows the entries of every instance of a show
// contiguously from each instance's start so deletions leave no dead
// air between items. Entries named in excludeIDs are treated as already
// gone, letting callers compact around rows they are about to delete.
// Filler entries stay pinned; content after a filler restarts at the
// filler's end without a crossfade. The operation is idempotent.
func (e *Engine) RemoveGaps(ctx context.Context, showID string, excludeIDs []string, userID string) error {
	ctx, span := telemetry.StartSpan(ctx, "engine", "engine.remove_gaps")
	defer span.End()

	crossfade, err := e.prefs.CrossfadeDuration(ctx)
	if err != nil {
		return storagef("load crossfade preference", err)
	}

	exclude := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		exclude[id] = struct{}{}
	}

	err = e.store.WithTransaction(ctx, func(tx store.Store) error {
		show, err := tx.ShowByID(ctx, showID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return stalef("the show was deleted")
			}
			return storagef("load show", err)
		}
		if err := e.authorize(ctx, userID, show); err != nil {
			return err
		}

		instances, err := tx.InstancesByShow(ctx, showID)
		if err != nil {
			return storagef("load show instances", err)
		}

		touched := make(map[string]*models.ShowInstance, len(instances))
		for i := range instances {
			instance := &instances[i]
			if err := e.reflowInstance(ctx, tx, instance, crossfade, exclude); err != nil {
				return err
			}
			touched[instance.ID] = instance
		}
		return e.finishInstances(ctx, tx, touched)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	e.logger.Info().Str("show", showID).Msg("gaps removed")
	e.sink.ScheduleChanged(ctx)
	return nil
}

// reflowInstance walks the instance's entries in position order and
// re-times each one against its predecessor: end of previous minus the
// crossfade window. Entries in excludeIDs are treated as gone.
func (e *Engine) reflowInstance(ctx context.Context, tx store.Store, instance *models.ShowInstance, crossfade time.Duration, excludeIDs map[string]struct{}) error {
	entries, err := tx.EntriesByInstance(ctx, instance.ID)
	if err != nil {
		return storagef("load instance entries", err)
	}

	cursor := truncMicros(instance.StartsAt)
	pos := 0
	pendingFade := false

	for i := range entries {
		entry := &entries[i]
		if _, gone := excludeIDs[entry.ID]; gone {
			continue
		}

		if entry.IsFiller() {
			// Fillers record elapsed dead air; compaction never slides
			// content back into the past.
			if entry.Position != pos {
				entry.Position = pos
				if err := tx.SaveEntry(ctx, entry); err != nil {
					return storagef("save filler entry", err)
				}
			}
			cursor = entry.EndsAt
			pos++
			pendingFade = false
			continue
		}

		start := cursor
		if pendingFade {
			start = applyCrossfade(cursor, crossfade)
		}
		end := endTime(start, entry.ClipLength)
		if !entry.StartsAt.Equal(start) || !entry.EndsAt.Equal(end) || entry.Position != pos {
			entry.StartsAt = start
			entry.EndsAt = end
			entry.Position = pos
			if err := tx.SaveEntry(ctx, entry); err != nil {
				return storagef("save reflowed entry", err)
			}
		}
		cursor = end
		pos++
		pendingFade = true
	}

	return nil
}

// authorize allows admins, producers and the show's host.
func (e *Engine) authorize(ctx context.Context, userID string, show *models.Show) error {
	allowed, err := e.authz.IsAdminOrProducer(ctx, userID)
	if err != nil {
		return storagef("authorization check", err)
	}
	if !allowed {
		allowed, err = e.authz.IsHost(ctx, userID, show.ID)
		if err != nil {
			return storagef("host check", err)
		}
	}
	if !allowed {
		return fmt.Errorf("%w: show %q", ErrUnauthorized, show.Name)
	}
	return nil
}
