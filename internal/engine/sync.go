/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/friendsincode/grimnir_scheduler/internal/models"
	"github.com/friendsincode/grimnir_scheduler/internal/store"
	"github.com/friendsincode/grimnir_scheduler/internal/telemetry"
)

// FillLinkedInstances makes every instance of a linked show carry the
// same content. The earliest instance that already has content is the
// canonical stamp; any sibling whose content differs is rebuilt from
// the stamp, re-timed against its own start.
func (e *Engine) FillLinkedInstances(ctx context.Context, showID, userID string) error {
	ctx, span := telemetry.StartSpan(ctx, "engine", "engine.fill_linked_instances")
	defer span.End()

	err := e.syncLinked(ctx, showID, userID, "", false)
	telemetry.RecordError(span, err)
	return err
}

// FillPreservedLinkedContent copies the given instance's content into
// those siblings that have none. Siblings that already hold content are
// left alone; used when new instances of a linked show are generated.
func (e *Engine) FillPreservedLinkedContent(ctx context.Context, showID, sourceInstanceID, userID string) error {
	ctx, span := telemetry.StartSpan(ctx, "engine", "engine.fill_preserved_linked_content")
	defer span.End()

	err := e.syncLinked(ctx, showID, userID, sourceInstanceID, true)
	telemetry.RecordError(span, err)
	return err
}

func (e *Engine) syncLinked(ctx context.Context, showID, userID, sourceInstanceID string, emptyOnly bool) error {
	crossfade, err := e.prefs.CrossfadeDuration(ctx)
	if err != nil {
		return storagef("load crossfade preference", err)
	}

	var changed bool
	err = e.store.WithTransaction(ctx, func(tx store.Store) error {
		show, err := tx.ShowByID(ctx, showID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return stalef("show was deleted")
			}
			return storagef("load show", err)
		}
		if !show.Linked {
			return nil
		}
		if err := e.authorize(ctx, userID, show); err != nil {
			return err
		}

		instances, err := tx.InstancesByShow(ctx, showID)
		if err != nil {
			return storagef("load instances", err)
		}
		if len(instances) < 2 {
			return nil
		}
		sort.Slice(instances, func(i, j int) bool {
			return instances[i].StartsAt.Before(instances[j].StartsAt)
		})

		content := make(map[string][]models.ScheduleEntry, len(instances))
		for i := range instances {
			entries, err := tx.EntriesByInstance(ctx, instances[i].ID)
			if err != nil {
				return storagef("load instance entries", err)
			}
			content[instances[i].ID] = entries
		}

		source := e.pickStamp(instances, content, sourceInstanceID)
		if source == nil {
			return nil
		}
		stamp := playableEntries(content[source.ID])
		if len(stamp) == 0 {
			return nil
		}

		touched := make(map[string]*models.ShowInstance)
		for i := range instances {
			target := &instances[i]
			if target.ID == source.ID {
				continue
			}
			existing := playableEntries(content[target.ID])
			if emptyOnly && len(existing) > 0 {
				continue
			}
			if contentMatches(stamp, existing) {
				continue
			}
			if err := e.materializeStamp(ctx, tx, target, stamp, crossfade); err != nil {
				return err
			}
			touched[target.ID] = target
		}
		if len(touched) == 0 {
			return nil
		}
		touched[source.ID] = source

		changed = true
		return e.finishInstances(ctx, tx, touched)
	})
	if err != nil {
		return err
	}

	if changed {
		e.logger.Info().Str("show", showID).Msg("linked instances synchronized")
		e.sink.ScheduleChanged(ctx)
	}
	return nil
}

// pickStamp selects the instance whose content is canonical: the named
// source when given, otherwise the earliest instance holding content.
func (e *Engine) pickStamp(instances []models.ShowInstance, content map[string][]models.ScheduleEntry, sourceInstanceID string) *models.ShowInstance {
	if sourceInstanceID != "" {
		for i := range instances {
			if instances[i].ID == sourceInstanceID {
				return &instances[i]
			}
		}
		return nil
	}
	for i := range instances {
		if len(playableEntries(content[instances[i].ID])) > 0 {
			return &instances[i]
		}
	}
	return nil
}

// materializeStamp replaces the target's content with the stamp,
// re-timed from the target's own start.
func (e *Engine) materializeStamp(ctx context.Context, tx store.Store, target *models.ShowInstance, stamp []models.ScheduleEntry, crossfade time.Duration) error {
	if err := tx.DeleteEntriesByInstances(ctx, []string{target.ID}); err != nil {
		return storagef("clear target instance", err)
	}

	cursor := truncMicros(target.StartsAt)
	pendingFade := false
	entries := make([]models.ScheduleEntry, 0, len(stamp))
	for pos, src := range stamp {
		if pendingFade {
			cursor = applyCrossfade(cursor, crossfade)
		}
		entries = append(entries, models.ScheduleEntry{
			ID:            uuid.NewString(),
			InstanceID:    target.ID,
			Source:        src.Source,
			StartsAt:      cursor,
			EndsAt:        endTime(cursor, src.ClipLength),
			CueIn:         src.CueIn,
			CueOut:        src.CueOut,
			FadeIn:        src.FadeIn,
			FadeOut:       src.FadeOut,
			ClipLength:    src.ClipLength,
			Position:      pos,
			PlayoutStatus: models.PlayoutScheduled,
		})
		cursor = entries[len(entries)-1].EndsAt
		pendingFade = true
	}
	if err := tx.InsertEntries(ctx, entries); err != nil {
		return storagef("insert stamped entries", err)
	}
	return nil
}

// playableEntries strips fillers; only real content participates in
// stamp comparison and replication.
func playableEntries(entries []models.ScheduleEntry) []models.ScheduleEntry {
	out := make([]models.ScheduleEntry, 0, len(entries))
	for i := range entries {
		if !entries[i].IsFiller() {
			out = append(out, entries[i])
		}
	}
	return out
}

// contentMatches reports whether two entry sequences reference the same
// sources in the same order.
func contentMatches(a, b []models.ScheduleEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Source != b[i].Source {
			return false
		}
	}
	return true
}
