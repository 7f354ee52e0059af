package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/friendsincode/grimnir_scheduler/internal/models"
)

func TestRemoveGaps_ClosesHoleAfterDeletion(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 2*time.Second, baseNow)
	show := env.addShow(t, false)
	start := baseNow.Add(time.Hour)
	instance := env.addInstance(t, show.ID, start, start.Add(time.Hour))

	refA := env.registerFile(env.addFile(t, 30*time.Second).ID, 30*time.Second)
	refB := env.registerFile(env.addFile(t, 20*time.Second).ID, 20*time.Second)
	refC := env.registerFile(env.addFile(t, 10*time.Second).ID, 10*time.Second)
	if err := env.eng.InsertAfter(context.Background(),
		[]AnchorRequest{anchorHead(instance.ID, baseNow)},
		[]MediaRef{refA, refB, refC}, "user-1"); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	// Delete the middle entry out from under the schedule.
	seeded := env.entries(t, instance.ID)
	if err := env.db.Delete(&models.ScheduleEntry{}, "id = ?", seeded[1].ID).Error; err != nil {
		t.Fatalf("delete entry: %v", err)
	}

	if err := env.eng.RemoveGaps(context.Background(), show.ID, nil, "user-1"); err != nil {
		t.Fatalf("RemoveGaps: %v", err)
	}

	entries := env.entries(t, instance.ID)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[0].StartsAt.Equal(start) {
		t.Fatalf("first entry starts at %v, want %v", entries[0].StartsAt, start)
	}
	// The survivor slides up against the first entry, crossfaded.
	if !entries[1].StartsAt.Equal(start.Add(28 * time.Second)) {
		t.Fatalf("second entry starts at %v, want %v", entries[1].StartsAt, start.Add(28*time.Second))
	}
	if entries[0].Position != 0 || entries[1].Position != 1 {
		t.Fatalf("positions %d,%d after compaction", entries[0].Position, entries[1].Position)
	}

	if env.reloadInstance(t, instance.ID).TimeFilled != 40*time.Second {
		t.Fatal("TimeFilled not recomputed after compaction")
	}
}

func TestRemoveGaps_Idempotent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 2*time.Second, baseNow)
	show := env.addShow(t, false)
	start := baseNow.Add(time.Hour)
	instance := env.addInstance(t, show.ID, start, start.Add(time.Hour))

	refA := env.registerFile(env.addFile(t, 30*time.Second).ID, 30*time.Second)
	refB := env.registerFile(env.addFile(t, 20*time.Second).ID, 20*time.Second)
	if err := env.eng.InsertAfter(context.Background(),
		[]AnchorRequest{anchorHead(instance.ID, baseNow)},
		[]MediaRef{refA, refB}, "user-1"); err != nil {
		t.Fatalf("seed insert: %v", err)
	}
	before := env.entries(t, instance.ID)

	if err := env.eng.RemoveGaps(context.Background(), show.ID, nil, "user-1"); err != nil {
		t.Fatalf("first RemoveGaps: %v", err)
	}
	if err := env.eng.RemoveGaps(context.Background(), show.ID, nil, "user-1"); err != nil {
		t.Fatalf("second RemoveGaps: %v", err)
	}

	after := env.entries(t, instance.ID)
	if len(before) != len(after) {
		t.Fatalf("entry count changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if !before[i].StartsAt.Equal(after[i].StartsAt) || !before[i].EndsAt.Equal(after[i].EndsAt) || before[i].Position != after[i].Position {
			t.Fatalf("entry %d changed on an already-contiguous timeline", i)
		}
	}
}

func TestRemoveGaps_FillerStaysPinned(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 2*time.Second, baseNow)
	show := env.addShow(t, false)
	instance := env.addInstance(t, show.ID, baseNow.Add(-2*time.Minute), baseNow.Add(time.Hour))

	refA := env.registerFile(env.addFile(t, 30*time.Second).ID, 30*time.Second)
	refB := env.registerFile(env.addFile(t, 20*time.Second).ID, 20*time.Second)
	if err := env.eng.InsertAfter(context.Background(),
		[]AnchorRequest{anchorHead(instance.ID, baseNow)},
		[]MediaRef{refA, refB}, "user-1"); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	seeded := env.entries(t, instance.ID)
	if len(seeded) != 3 || !seeded[0].IsFiller() {
		t.Fatalf("expected filler + 2 entries, got %d rows", len(seeded))
	}

	// Remove the first playable entry; content after the filler must
	// restart at the filler's end, never earlier.
	if err := env.db.Delete(&models.ScheduleEntry{}, "id = ?", seeded[1].ID).Error; err != nil {
		t.Fatalf("delete entry: %v", err)
	}
	if err := env.eng.RemoveGaps(context.Background(), show.ID, nil, "user-1"); err != nil {
		t.Fatalf("RemoveGaps: %v", err)
	}

	entries := env.entries(t, instance.ID)
	if len(entries) != 2 {
		t.Fatalf("expected filler + entry, got %d rows", len(entries))
	}
	if !entries[0].IsFiller() || !entries[0].StartsAt.Equal(seeded[0].StartsAt) || !entries[0].EndsAt.Equal(seeded[0].EndsAt) {
		t.Fatal("filler moved during compaction")
	}
	// No crossfade against the filler boundary.
	if !entries[1].StartsAt.Equal(entries[0].EndsAt) {
		t.Fatalf("entry after filler starts at %v, want %v", entries[1].StartsAt, entries[0].EndsAt)
	}
}

func TestRemoveGaps_Unauthorized(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 0, baseNow)
	show := env.addShow(t, false)
	env.addInstance(t, show.ID, baseNow.Add(time.Hour), baseNow.Add(2*time.Hour))

	env.eng.authz = denyAllAuthz{}
	err := env.eng.RemoveGaps(context.Background(), show.ID, nil, "dj-without-show")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRemoveGaps_DeletedShowIsStale(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 0, baseNow)
	err := env.eng.RemoveGaps(context.Background(), "no-such-show", nil, "user-1")
	if !errors.Is(err, ErrStaleSchedule) {
		t.Fatalf("expected ErrStaleSchedule, got %v", err)
	}
}

func TestRemoveGaps_CompactsEveryInstanceOfShow(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 0, baseNow)
	show := env.addShow(t, false)
	startA := baseNow.Add(time.Hour)
	startB := baseNow.Add(24 * time.Hour)
	instA := env.addInstance(t, show.ID, startA, startA.Add(time.Hour))
	instB := env.addInstance(t, show.ID, startB, startB.Add(time.Hour))

	refA := env.registerFile(env.addFile(t, 30*time.Second).ID, 30*time.Second)
	refB := env.registerFile(env.addFile(t, 20*time.Second).ID, 20*time.Second)
	for _, inst := range []*models.ShowInstance{instA, instB} {
		if err := env.eng.InsertAfter(context.Background(),
			[]AnchorRequest{anchorHead(inst.ID, baseNow)},
			[]MediaRef{refA, refB}, "user-1"); err != nil {
			t.Fatalf("seed insert: %v", err)
		}
	}

	// Punch a hole into the head of both instances.
	for _, inst := range []*models.ShowInstance{instA, instB} {
		seeded := env.entries(t, inst.ID)
		if err := env.db.Delete(&models.ScheduleEntry{}, "id = ?", seeded[0].ID).Error; err != nil {
			t.Fatalf("delete entry: %v", err)
		}
	}

	if err := env.eng.RemoveGaps(context.Background(), show.ID, nil, "user-1"); err != nil {
		t.Fatalf("RemoveGaps: %v", err)
	}

	for _, tc := range []struct {
		inst  *models.ShowInstance
		start time.Time
	}{{instA, startA}, {instB, startB}} {
		entries := env.entries(t, tc.inst.ID)
		if len(entries) != 1 {
			t.Fatalf("instance %s has %d entries, want 1", tc.inst.ID, len(entries))
		}
		if !entries[0].StartsAt.Equal(tc.start) || entries[0].Position != 0 {
			t.Fatalf("instance %s survivor at %v position %d", tc.inst.ID, entries[0].StartsAt, entries[0].Position)
		}
	}
}

func TestRemoveGaps_ExcludedEntriesTreatedAsRemoved(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 2*time.Second, baseNow)
	show := env.addShow(t, false)
	start := baseNow.Add(time.Hour)
	instance := env.addInstance(t, show.ID, start, start.Add(time.Hour))

	refA := env.registerFile(env.addFile(t, 30*time.Second).ID, 30*time.Second)
	refB := env.registerFile(env.addFile(t, 20*time.Second).ID, 20*time.Second)
	refC := env.registerFile(env.addFile(t, 10*time.Second).ID, 10*time.Second)
	if err := env.eng.InsertAfter(context.Background(),
		[]AnchorRequest{anchorHead(instance.ID, baseNow)},
		[]MediaRef{refA, refB, refC}, "user-1"); err != nil {
		t.Fatalf("seed insert: %v", err)
	}
	seeded := env.entries(t, instance.ID)

	// Compact around the middle entry as if it were already deleted.
	if err := env.eng.RemoveGaps(context.Background(), show.ID, []string{seeded[1].ID}, "user-1"); err != nil {
		t.Fatalf("RemoveGaps: %v", err)
	}

	var third models.ScheduleEntry
	if err := env.db.First(&third, "id = ?", seeded[2].ID).Error; err != nil {
		t.Fatalf("reload entry: %v", err)
	}
	if !third.StartsAt.Equal(start.Add(28 * time.Second)) {
		t.Fatalf("third entry starts at %v, want %v", third.StartsAt, start.Add(28*time.Second))
	}
	if third.Position != 1 {
		t.Fatalf("third entry position %d, want 1", third.Position)
	}

	// The excluded row itself stays untouched for its caller to delete.
	var excluded models.ScheduleEntry
	if err := env.db.First(&excluded, "id = ?", seeded[1].ID).Error; err != nil {
		t.Fatalf("reload excluded entry: %v", err)
	}
	if !excluded.StartsAt.Equal(seeded[1].StartsAt) || excluded.Position != seeded[1].Position {
		t.Fatal("excluded entry must not be re-timed")
	}
}
