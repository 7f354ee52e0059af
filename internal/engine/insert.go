/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/friendsincode/grimnir_scheduler/internal/models"
	"github.com/friendsincode/grimnir_scheduler/internal/store"
	"github.com/friendsincode/grimnir_scheduler/internal/telemetry"
)

// InsertAfter resolves the given media references and inserts the
// resulting items after every anchor in the batch. Inserting into a
// linked show replicates the insertion into every sibling instance at
// the same anchor position. Entries already scheduled at or after the
// anchor are pushed later in time, crossfade preserved.
func (e *Engine) InsertAfter(ctx context.Context, batch []AnchorRequest, refs []MediaRef, userID string) error {
	ctx, span := telemetry.StartSpan(ctx, "engine", "engine.insert_after")
	defer span.End()

	items, err := e.resolveRefs(ctx, refs)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if len(items) == 0 {
		// Nothing playable resolved (e.g. an empty playlist). Leave the
		// schedule untouched rather than burning a LastScheduled bump.
		e.logger.Debug().Int("refs", len(refs)).Msg("insert resolved no playable items")
		return nil
	}

	err = e.run(ctx, "insert", batch, items, userID, true)
	telemetry.RecordError(span, err)
	return err
}

// MoveItems relocates existing schedule entries so they play after the
// batch anchors, preserving their cue and fade trims. Moving inside a
// linked show relocates the matching row in every sibling instance,
// resolved by the moved entry's position, so siblings keep identical
// ordered content. Source instances the entries leave behind are
// compacted in the same transaction.
func (e *Engine) MoveItems(ctx context.Context, batch []AnchorRequest, entryIDs []string, userID string) error {
	ctx, span := telemetry.StartSpan(ctx, "engine", "engine.move_items")
	defer span.End()

	if len(entryIDs) == 0 {
		return ErrInvalidRequest
	}

	entries, err := e.store.EntriesByIDs(ctx, entryIDs)
	if err != nil {
		telemetry.RecordError(span, err)
		return storagef("load moved entries", err)
	}
	if len(entries) != len(entryIDs) {
		err = stalef("a scheduled item was deleted")
		telemetry.RecordError(span, err)
		return err
	}

	items := make([]MediaItem, 0, len(entries))
	for i := range entries {
		entry := &entries[i]
		if entry.IsFiller() {
			return ErrInvalidRequest
		}
		items = append(items, MediaItem{
			ID:            entry.Source.RefID,
			Kind:          entry.Source.Kind,
			ClipLength:    entry.ClipLength,
			CueIn:         entry.CueIn,
			CueOut:        entry.CueOut,
			FadeIn:        entry.FadeIn,
			FadeOut:       entry.FadeOut,
			SchedID:       entry.ID,
			SchedPosition: entry.Position,
		})
	}

	err = e.run(ctx, "move", batch, items, userID, false)
	telemetry.RecordError(span, err)
	return err
}

// run executes one full engine pass: validate, place, cascade, compact
// move sources, recompute bookkeeping, commit, then notify.
func (e *Engine) run(ctx context.Context, op string, batch []AnchorRequest, items []MediaItem, userID string, isAdd bool) error {
	clk := e.clock()
	started := time.Now()

	crossfade, err := e.prefs.CrossfadeDuration(ctx)
	if err != nil {
		return storagef("load crossfade preference", err)
	}

	err = e.store.WithTransaction(ctx, func(tx store.Store) error {
		if err := e.validateRequest(ctx, tx, clk, batch, userID, isAdd); err != nil {
			return err
		}

		movedIDs := make(map[string]struct{})
		movedFrom := make(map[string]struct{})
		for _, item := range items {
			if item.SchedID != "" {
				movedIDs[item.SchedID] = struct{}{}
			}
		}

		guard := newSlotGuard()
		touched := make(map[string]*models.ShowInstance)

		for _, req := range batch {
			instance, err := tx.InstanceByID(ctx, req.InstanceID)
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

			anchorPos := headPosition
			if req.EntryID != "" {
				anchor, err := tx.EntryByID(ctx, req.EntryID)
				if err != nil {
					if errors.Is(err, store.ErrNotFound) {
						return stalef("a scheduled item was deleted")
					}
					return storagef("load anchor", err)
				}
				anchorPos = anchor.Position
			}
			// Linked instances share anchor positions, so two anchors
			// naming the same position are one logical slot. For unlinked
			// shows the slot is scoped to the single instance; siblings at
			// the same position are distinct insertion points.
			slotScope := instance.ID
			if show.Linked {
				slotScope = show.ID
			}
			if !guard.visit(slotScope, anchorPos) {
				continue
			}

			targets := []models.ShowInstance{*instance}
			if show.Linked {
				targets, err = tx.InstancesByShow(ctx, show.ID)
				if err != nil {
					return storagef("load linked instances", err)
				}
			}

			for i := range targets {
				target := &targets[i]
				targetItems := items
				if target.ID != instance.ID {
					targetItems, err = siblingItems(ctx, tx, target, items, movedIDs)
					if err != nil {
						return err
					}
					if len(targetItems) == 0 {
						continue
					}
				}
				if err := e.placeInInstance(ctx, tx, clk, target, anchorPos, targetItems, crossfade, movedIDs, movedFrom); err != nil {
					return err
				}
				touched[target.ID] = target
			}
		}

		// Instances a moved entry left behind need their remaining
		// entries pulled together.
		for instanceID := range movedFrom {
			if _, ok := touched[instanceID]; ok {
				continue
			}
			source, err := tx.InstanceByID(ctx, instanceID)
			if err != nil {
				return storagef("load move source instance", err)
			}
			if err := e.reflowInstance(ctx, tx, source, crossfade, movedIDs); err != nil {
				return err
			}
			touched[instanceID] = source
		}

		if isAdd {
			fileIDs := make([]string, 0, len(items))
			for _, item := range items {
				if item.Kind == models.SourceFile {
					fileIDs = append(fileIDs, item.ID)
				}
			}
			if err := tx.SetFilesScheduled(ctx, fileIDs, true); err != nil {
				return storagef("flag files scheduled", err)
			}
		}

		return e.finishInstances(ctx, tx, touched)
	})

	telemetry.EngineRunDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
	if err != nil {
		if errors.Is(err, ErrStaleSchedule) {
			telemetry.ScheduleConflictsTotal.Inc()
		}
		telemetry.EngineRunsTotal.WithLabelValues(op, "error").Inc()
		return err
	}
	telemetry.EngineRunsTotal.WithLabelValues(op, "ok").Inc()

	e.logger.Info().
		Str("op", op).
		Int("anchors", len(batch)).
		Int("items", len(items)).
		Msg("schedule updated")
	e.sink.ScheduleChanged(ctx)
	return nil
}

// placeInInstance writes the items into one target instance after the
// anchor position and re-times everything displaced by them.
func (e *Engine) placeInInstance(ctx context.Context, tx store.Store, clk runClock, target *models.ShowInstance, anchorPos int, items []MediaItem, crossfade time.Duration, movedIDs, movedFrom map[string]struct{}) error {
	var (
		cursor      time.Time
		pos         int
		pendingFade bool
	)
	if anchorPos == headPosition {
		cursor = truncMicros(target.StartsAt)
		pos = 0
	} else {
		anchor, err := tx.EntryAtPosition(ctx, target.ID, anchorPos)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// A linked sibling holding less content anchors at its
				// current tail instead.
				return e.placeAtTail(ctx, tx, clk, target, items, crossfade, movedIDs, movedFrom)
			}
			return storagef("resolve anchor position", err)
		}
		cursor = anchor.EndsAt
		pos = anchor.Position + 1
		pendingFade = true
	}

	excludeIDs := make([]string, 0, len(items)+1)

	// Dead air between the insertion point and now is pinned down with a
	// synthetic filler entry so the new content starts at the present
	// instead of rewriting history. Crossfades never span a filler.
	if target.StartsAt.Before(clk.Now) && cursor.Before(clk.NowTruncated) {
		filler := models.ScheduleEntry{
			ID:            uuid.NewString(),
			InstanceID:    target.ID,
			StartsAt:      cursor,
			EndsAt:        clk.NowTruncated,
			ClipLength:    clk.NowTruncated.Sub(cursor),
			Position:      pos,
			PlayoutStatus: models.PlayoutFiller,
		}
		if err := tx.InsertEntries(ctx, []models.ScheduleEntry{filler}); err != nil {
			return storagef("insert filler entry", err)
		}
		excludeIDs = append(excludeIDs, filler.ID)
		cursor = clk.NowTruncated
		pos++
		pendingFade = false
	}

	cascadeFrom := cursor
	if pendingFade {
		cascadeFrom = applyCrossfade(cursor, crossfade)
	}

	newEntries := make([]models.ScheduleEntry, 0, len(items))
	for _, item := range items {
		if pendingFade {
			cursor = applyCrossfade(cursor, crossfade)
		}
		end := endTime(cursor, item.ClipLength)

		if item.SchedID != "" {
			moved, err := tx.EntryByID(ctx, item.SchedID)
			if err != nil {
				return storagef("load moved entry", err)
			}
			if moved.InstanceID != target.ID {
				movedFrom[moved.InstanceID] = struct{}{}
			}
			moved.InstanceID = target.ID
			moved.StartsAt = cursor
			moved.EndsAt = end
			moved.Position = pos
			if err := tx.SaveEntry(ctx, moved); err != nil {
				return storagef("save moved entry", err)
			}
			excludeIDs = append(excludeIDs, moved.ID)
		} else {
			entry := models.ScheduleEntry{
				ID:            uuid.NewString(),
				InstanceID:    target.ID,
				Source:        models.Source{Kind: item.Kind, RefID: item.ID},
				StartsAt:      cursor,
				EndsAt:        end,
				CueIn:         item.CueIn,
				CueOut:        item.CueOut,
				FadeIn:        item.FadeIn,
				FadeOut:       item.FadeOut,
				ClipLength:    item.ClipLength,
				Position:      pos,
				PlayoutStatus: models.PlayoutScheduled,
			}
			newEntries = append(newEntries, entry)
			excludeIDs = append(excludeIDs, entry.ID)
		}

		cursor = end
		pos++
		pendingFade = true
	}

	if len(newEntries) > 0 {
		if err := tx.InsertEntries(ctx, newEntries); err != nil {
			return storagef("insert entries", err)
		}
	}

	for id := range movedIDs {
		excludeIDs = append(excludeIDs, id)
	}
	displaced, err := tx.EntriesStartingFrom(ctx, target.ID, cascadeFrom, excludeIDs)
	if err != nil {
		return storagef("load displaced entries", err)
	}
	for i := range displaced {
		entry := &displaced[i]
		if pendingFade {
			cursor = applyCrossfade(cursor, crossfade)
		}
		entry.StartsAt = cursor
		entry.EndsAt = endTime(cursor, entry.ClipLength)
		entry.Position = pos
		if err := tx.SaveEntry(ctx, entry); err != nil {
			return storagef("save displaced entry", err)
		}
		cursor = entry.EndsAt
		pos++
		pendingFade = true
	}

	return nil
}

// siblingItems maps a batch's items onto a linked sibling instance.
// Resolved content replicates as-is. A moved row is sibling-local:
// linked instances hold identical ordered content, so the row moving in
// the sibling is the one at the moved entry's position carrying the
// same source. Siblings missing that row, or holding diverged content
// there, skip the move.
func siblingItems(ctx context.Context, tx store.Store, target *models.ShowInstance, items []MediaItem, movedIDs map[string]struct{}) ([]MediaItem, error) {
	out := make([]MediaItem, 0, len(items))
	for _, item := range items {
		if item.SchedID == "" {
			out = append(out, item)
			continue
		}
		sibling, err := tx.EntryAtPosition(ctx, target.ID, item.SchedPosition)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, storagef("resolve linked moved entry", err)
		}
		if sibling.Source.Kind != item.Kind || sibling.Source.RefID != item.ID {
			continue
		}
		movedIDs[sibling.ID] = struct{}{}
		out = append(out, MediaItem{
			ID:            sibling.Source.RefID,
			Kind:          sibling.Source.Kind,
			ClipLength:    sibling.ClipLength,
			CueIn:         sibling.CueIn,
			CueOut:        sibling.CueOut,
			FadeIn:        sibling.FadeIn,
			FadeOut:       sibling.FadeOut,
			SchedID:       sibling.ID,
			SchedPosition: sibling.Position,
		})
	}
	return out, nil
}

// placeAtTail appends items at the end of an instance's current content.
// Used when a linked sibling has fewer entries than the anchor position.
func (e *Engine) placeAtTail(ctx context.Context, tx store.Store, clk runClock, target *models.ShowInstance, items []MediaItem, crossfade time.Duration, movedIDs, movedFrom map[string]struct{}) error {
	existing, err := tx.EntriesByInstance(ctx, target.ID)
	if err != nil {
		return storagef("load instance entries", err)
	}
	tailPos := headPosition
	if len(existing) > 0 {
		tailPos = existing[len(existing)-1].Position
	}
	return e.placeInInstance(ctx, tx, clk, target, tailPos, items, crossfade, movedIDs, movedFrom)
}

// finishInstances recomputes TimeFilled and stamps LastScheduled on
// every instance a run touched.
func (e *Engine) finishInstances(ctx context.Context, tx store.Store, touched map[string]*models.ShowInstance) error {
	stamp := truncMicros(e.now())
	for _, instance := range touched {
		filled, err := tx.SumClipLength(ctx, instance.ID)
		if err != nil {
			return storagef("sum clip length", err)
		}
		instance.TimeFilled = filled
		instance.LastScheduled = &stamp
		if err := tx.SaveInstance(ctx, instance); err != nil {
			return storagef("save instance", err)
		}
	}
	return nil
}

// resolveRefs expands every reference in order into playable items.
func (e *Engine) resolveRefs(ctx context.Context, refs []MediaRef) ([]MediaItem, error) {
	var items []MediaItem
	for _, ref := range refs {
		resolved, err := e.resolver.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		items = append(items, resolved...)
	}
	return items, nil
}
