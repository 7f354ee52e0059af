package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_scheduler/internal/engine"
	"github.com/friendsincode/grimnir_scheduler/internal/models"
)

type fixedFades struct {
	in, out time.Duration
}

func (f fixedFades) DefaultFades(context.Context) (time.Duration, time.Duration, error) {
	return f.in, f.out, nil
}

func newTestResolver(t *testing.T) (*Resolver, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.MediaFile{},
		&models.Webstream{},
		&models.Playlist{},
		&models.PlaylistItem{},
		&models.Block{},
		&models.BlockItem{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return New(db, fixedFades{in: 400 * time.Millisecond, out: 600 * time.Millisecond}, zerolog.Nop()), db
}

func createFile(t *testing.T, db *gorm.DB, length, cueIn, cueOut time.Duration, hidden bool) *models.MediaFile {
	t.Helper()
	file := &models.MediaFile{
		ID:     uuid.NewString(),
		Title:  "Track",
		Length: length,
		CueIn:  cueIn,
		CueOut: cueOut,
		Hidden: hidden,
	}
	if err := db.Create(file).Error; err != nil {
		t.Fatalf("create file: %v", err)
	}
	return file
}

func TestResolveFile(t *testing.T) {
	t.Parallel()

	r, db := newTestResolver(t)
	file := createFile(t, db, 3*time.Minute, 5*time.Second, 2*time.Minute, false)

	items, err := r.Resolve(context.Background(), engine.MediaRef{ID: file.ID, Kind: engine.RefAudioclip})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	item := items[0]
	if item.Kind != models.SourceFile || item.ID != file.ID {
		t.Fatalf("unexpected item %+v", item)
	}
	// Clip length is the span between the cue points, not the raw length.
	if item.ClipLength != time.Minute+55*time.Second {
		t.Fatalf("clip length %v", item.ClipLength)
	}
	if item.FadeIn != 400*time.Millisecond || item.FadeOut != 600*time.Millisecond {
		t.Fatalf("station fades not applied: %v/%v", item.FadeIn, item.FadeOut)
	}
}

func TestResolveFile_HiddenOrMissing(t *testing.T) {
	t.Parallel()

	r, db := newTestResolver(t)
	hidden := createFile(t, db, time.Minute, 0, time.Minute, true)

	_, err := r.Resolve(context.Background(), engine.MediaRef{ID: hidden.ID, Kind: engine.RefAudioclip})
	if !errors.Is(err, engine.ErrMediaNotFound) {
		t.Fatalf("hidden file: expected ErrMediaNotFound, got %v", err)
	}

	_, err = r.Resolve(context.Background(), engine.MediaRef{ID: uuid.NewString(), Kind: engine.RefAudioclip})
	if !errors.Is(err, engine.ErrMediaNotFound) {
		t.Fatalf("missing file: expected ErrMediaNotFound, got %v", err)
	}
}

func TestResolveStream(t *testing.T) {
	t.Parallel()

	r, db := newTestResolver(t)
	stream := &models.Webstream{
		ID:     uuid.NewString(),
		Name:   "Morning Feed",
		URL:    "https://streams.example.org/morning",
		Length: 30 * time.Minute,
	}
	if err := db.Create(stream).Error; err != nil {
		t.Fatalf("create stream: %v", err)
	}

	items, err := r.Resolve(context.Background(), engine.MediaRef{ID: stream.ID, Kind: engine.RefStream})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].Kind != models.SourceStream || items[0].ClipLength != 30*time.Minute {
		t.Fatalf("unexpected item %+v", items[0])
	}
	if items[0].FadeIn != streamFade || items[0].FadeOut != streamFade {
		t.Fatalf("stream fades %v/%v, want %v", items[0].FadeIn, items[0].FadeOut, streamFade)
	}
}

func TestResolvePlaylist_StoredTimingsWin(t *testing.T) {
	t.Parallel()

	r, db := newTestResolver(t)
	file := createFile(t, db, 3*time.Minute, 0, 3*time.Minute, false)
	stream := &models.Webstream{ID: uuid.NewString(), Length: 10 * time.Minute}
	if err := db.Create(stream).Error; err != nil {
		t.Fatalf("create stream: %v", err)
	}

	playlist := &models.Playlist{ID: uuid.NewString(), Name: "Drive Time"}
	if err := db.Create(playlist).Error; err != nil {
		t.Fatalf("create playlist: %v", err)
	}
	// Out-of-order inserts; resolution must follow position.
	rows := []models.PlaylistItem{
		{
			ID: uuid.NewString(), PlaylistID: playlist.ID, Position: 1,
			Kind: models.PlaylistItemStream, RefID: stream.ID,
			ClipLength: 5 * time.Minute,
		},
		{
			ID: uuid.NewString(), PlaylistID: playlist.ID, Position: 0,
			Kind: models.PlaylistItemFile, RefID: file.ID,
			ClipLength: 90 * time.Second, CueIn: 10 * time.Second, CueOut: 100 * time.Second,
			FadeIn: time.Second, FadeOut: 2 * time.Second,
		},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("create playlist items: %v", err)
	}

	items, err := r.Resolve(context.Background(), engine.MediaRef{ID: playlist.ID, Kind: engine.RefPlaylist})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	// Per-playlist trims override the file's library cues.
	if items[0].ClipLength != 90*time.Second || items[0].CueIn != 10*time.Second {
		t.Fatalf("stored timings lost: %+v", items[0])
	}
	if items[0].FadeIn != time.Second || items[0].FadeOut != 2*time.Second {
		t.Fatalf("stored fades lost: %+v", items[0])
	}
	if items[1].Kind != models.SourceStream || items[1].ClipLength != 5*time.Minute {
		t.Fatalf("stream item %+v", items[1])
	}
}

func TestResolvePlaylist_HiddenFileRejected(t *testing.T) {
	t.Parallel()

	r, db := newTestResolver(t)
	hidden := createFile(t, db, time.Minute, 0, time.Minute, true)

	playlist := &models.Playlist{ID: uuid.NewString()}
	if err := db.Create(playlist).Error; err != nil {
		t.Fatalf("create playlist: %v", err)
	}
	item := models.PlaylistItem{
		ID: uuid.NewString(), PlaylistID: playlist.ID, Position: 0,
		Kind: models.PlaylistItemFile, RefID: hidden.ID,
		ClipLength: time.Minute,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("create playlist item: %v", err)
	}

	_, err := r.Resolve(context.Background(), engine.MediaRef{ID: playlist.ID, Kind: engine.RefPlaylist})
	if !errors.Is(err, engine.ErrMediaNotFound) {
		t.Fatalf("expected ErrMediaNotFound, got %v", err)
	}
}

func TestResolveStaticBlock(t *testing.T) {
	t.Parallel()

	r, db := newTestResolver(t)
	fileA := createFile(t, db, time.Minute, 0, time.Minute, false)
	fileB := createFile(t, db, 2*time.Minute, 0, 2*time.Minute, false)

	block := &models.Block{ID: uuid.NewString(), Name: "Station IDs", Static: true}
	if err := db.Create(block).Error; err != nil {
		t.Fatalf("create block: %v", err)
	}
	rows := []models.BlockItem{
		{ID: uuid.NewString(), BlockID: block.ID, Position: 0, FileID: fileA.ID, ClipLength: time.Minute},
		{ID: uuid.NewString(), BlockID: block.ID, Position: 1, FileID: fileB.ID, ClipLength: 2 * time.Minute},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("create block items: %v", err)
	}

	items, err := r.Resolve(context.Background(), engine.MediaRef{ID: block.ID, Kind: engine.RefBlock})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].ID != fileA.ID || items[1].ID != fileB.ID {
		t.Fatal("block items out of order")
	}
}

func TestResolveDynamicBlock_Limits(t *testing.T) {
	t.Parallel()

	r, db := newTestResolver(t)
	for i := 0; i < 5; i++ {
		createFile(t, db, time.Minute, 0, time.Minute, false)
	}
	createFile(t, db, time.Minute, 0, time.Minute, true) // hidden, never selected

	block := &models.Block{
		ID:          uuid.NewString(),
		Name:        "Recently Added",
		Static:      false,
		ItemLimit:   4,
		LengthLimit: 150 * time.Second,
	}
	if err := db.Create(block).Error; err != nil {
		t.Fatalf("create block: %v", err)
	}

	items, err := r.Resolve(context.Background(), engine.MediaRef{ID: block.ID, Kind: engine.RefBlock})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// The length limit of 2m30s cuts the 4-item cap down to 2 one-minute
	// tracks.
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	var total time.Duration
	for _, item := range items {
		total += item.ClipLength
	}
	if total > block.LengthLimit {
		t.Fatalf("total %v exceeds the length limit %v", total, block.LengthLimit)
	}
}

func TestDynamicBlockFlagSurvivesCreate(t *testing.T) {
	t.Parallel()

	_, db := newTestResolver(t)
	block := &models.Block{ID: uuid.NewString(), Name: "Fresh Cuts", Static: false, ItemLimit: 3}
	if err := db.Create(block).Error; err != nil {
		t.Fatalf("create block: %v", err)
	}

	var reloaded models.Block
	if err := db.First(&reloaded, "id = ?", block.ID).Error; err != nil {
		t.Fatalf("reload block: %v", err)
	}
	if reloaded.Static {
		t.Fatal("dynamic block persisted as static")
	}
}

func TestResolveUnknownKind(t *testing.T) {
	t.Parallel()

	r, _ := newTestResolver(t)
	_, err := r.Resolve(context.Background(), engine.MediaRef{ID: uuid.NewString(), Kind: "vinyl"})
	if !errors.Is(err, engine.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
