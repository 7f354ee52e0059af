package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_scheduler/internal/models"
	"github.com/friendsincode/grimnir_scheduler/internal/store"
)

type fixedPrefs struct {
	crossfade time.Duration
}

func (p fixedPrefs) CrossfadeDuration(context.Context) (time.Duration, error) {
	return p.crossfade, nil
}

type allowAllAuthz struct{}

func (allowAllAuthz) IsAdminOrProducer(context.Context, string) (bool, error) {
	return true, nil
}

func (allowAllAuthz) IsHost(context.Context, string, string) (bool, error) {
	return false, nil
}

type denyAllAuthz struct{}

func (denyAllAuthz) IsAdminOrProducer(context.Context, string) (bool, error) {
	return false, nil
}

func (denyAllAuthz) IsHost(context.Context, string, string) (bool, error) {
	return false, nil
}

type stubResolver struct {
	items map[string][]MediaItem
}

func (r *stubResolver) Resolve(_ context.Context, ref MediaRef) ([]MediaItem, error) {
	items, ok := r.items[ref.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMediaNotFound, ref.ID)
	}
	return items, nil
}

type nopSink struct{}

func (nopSink) ScheduleChanged(context.Context) {}

type countingSink struct {
	calls int
}

func (s *countingSink) ScheduleChanged(context.Context) {
	s.calls++
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.SchedulerSetting{},
		&models.MediaFile{},
		&models.Webstream{},
		&models.Playlist{},
		&models.PlaylistItem{},
		&models.Block{},
		&models.BlockItem{},
		&models.Show{},
		&models.ShowInstance{},
		&models.ScheduleEntry{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type testEnv struct {
	db       *gorm.DB
	eng      *Engine
	resolver *stubResolver
	sink     *countingSink
	now      time.Time
}

func newTestEnv(t *testing.T, crossfade time.Duration, now time.Time) *testEnv {
	t.Helper()
	db := openTestDB(t)
	res := &stubResolver{items: make(map[string][]MediaItem)}
	sink := &countingSink{}
	eng := New(store.New(db), res, allowAllAuthz{}, fixedPrefs{crossfade: crossfade}, sink, zerolog.Nop())
	eng.now = func() time.Time { return now }
	return &testEnv{db: db, eng: eng, resolver: res, sink: sink, now: now}
}

func (env *testEnv) addShow(t *testing.T, linked bool) *models.Show {
	t.Helper()
	show := &models.Show{ID: uuid.NewString(), Name: "Test Show", Linked: linked}
	if err := env.db.Create(show).Error; err != nil {
		t.Fatalf("create show: %v", err)
	}
	return show
}

func (env *testEnv) addInstance(t *testing.T, showID string, starts, ends time.Time) *models.ShowInstance {
	t.Helper()
	instance := &models.ShowInstance{
		ID:       uuid.NewString(),
		ShowID:   showID,
		StartsAt: starts.UTC(),
		EndsAt:   ends.UTC(),
	}
	if err := env.db.Create(instance).Error; err != nil {
		t.Fatalf("create instance: %v", err)
	}
	return instance
}

func (env *testEnv) addFile(t *testing.T, length time.Duration) *models.MediaFile {
	t.Helper()
	file := &models.MediaFile{
		ID:     uuid.NewString(),
		Title:  "Track",
		Length: length,
		CueOut: length,
	}
	if err := env.db.Create(file).Error; err != nil {
		t.Fatalf("create file: %v", err)
	}
	return file
}

// registerFile makes the resolver return a single file item under the
// given ref id.
func (env *testEnv) registerFile(fileID string, length time.Duration) MediaRef {
	env.resolver.items[fileID] = []MediaItem{{
		ID:         fileID,
		Kind:       models.SourceFile,
		ClipLength: length,
		CueOut:     length,
	}}
	return MediaRef{ID: fileID, Kind: RefAudioclip}
}

func (env *testEnv) entries(t *testing.T, instanceID string) []models.ScheduleEntry {
	t.Helper()
	var entries []models.ScheduleEntry
	if err := env.db.Where("instance_id = ?", instanceID).Order("position ASC").Find(&entries).Error; err != nil {
		t.Fatalf("load entries: %v", err)
	}
	return entries
}

func (env *testEnv) reloadInstance(t *testing.T, id string) *models.ShowInstance {
	t.Helper()
	var instance models.ShowInstance
	if err := env.db.First(&instance, "id = ?", id).Error; err != nil {
		t.Fatalf("reload instance: %v", err)
	}
	return &instance
}

func anchorHead(instanceID string, ts time.Time) AnchorRequest {
	return AnchorRequest{InstanceID: instanceID, ClientTimestamp: ts}
}
