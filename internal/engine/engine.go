/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package engine implements the broadcast playout scheduling engine:
// crossfade-aware insertion after an anchor, cascading timing shifts,
// gap compaction, linked-instance synchronization and optimistic
// concurrency checks. Every mutating operation runs inside a single
// store transaction and notifies the sink only after commit.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_scheduler/internal/models"
	"github.com/friendsincode/grimnir_scheduler/internal/store"
)

// RefKind classifies a schedulable media reference.
type RefKind string

const (
	RefAudioclip RefKind = "audioclip"
	RefPlaylist  RefKind = "playlist"
	RefBlock     RefKind = "block"
	RefStream    RefKind = "stream"
)

// MediaRef names content to be resolved into playable items.
type MediaRef struct {
	ID   string
	Kind RefKind
}

// MediaItem is one resolved playable unit ready for placement.
type MediaItem struct {
	ID   string
	Kind models.SourceKind

	ClipLength time.Duration
	CueIn      time.Duration
	CueOut     time.Duration
	FadeIn     time.Duration
	FadeOut    time.Duration

	// SchedID is set when the item relocates an existing schedule entry
	// (a move) rather than adding new content. SchedPosition carries the
	// entry's ordinal at load time so linked siblings can resolve their
	// own row for the same move.
	SchedID       string
	SchedPosition int
}

// AnchorRequest identifies one insertion point plus the client's
// optimistic-concurrency token for the owning instance.
type AnchorRequest struct {
	// EntryID is the schedule entry to insert after; empty means the
	// head of the instance.
	EntryID string
	// InstanceID is the show instance the client believes owns EntryID.
	InstanceID string
	// ClientTimestamp is the instance's LastScheduled value as of the
	// client's last fetch.
	ClientTimestamp time.Time
}

// MediaResolver expands a reference into ordered playable items.
type MediaResolver interface {
	Resolve(ctx context.Context, ref MediaRef) ([]MediaItem, error)
}

// Authorizer answers scheduling permission questions.
type Authorizer interface {
	IsAdminOrProducer(ctx context.Context, userID string) (bool, error)
	IsHost(ctx context.Context, userID, showID string) (bool, error)
}

// Preferences supplies station-wide scheduling defaults.
type Preferences interface {
	CrossfadeDuration(ctx context.Context) (time.Duration, error)
}

// Notifier is told that the schedule changed, strictly after commit.
type Notifier interface {
	ScheduleChanged(ctx context.Context)
}

// Engine orchestrates schedule mutations.
type Engine struct {
	store    store.Store
	resolver MediaResolver
	authz    Authorizer
	prefs    Preferences
	sink     Notifier
	logger   zerolog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// New constructs the scheduling engine.
func New(st store.Store, resolver MediaResolver, authz Authorizer, prefs Preferences, sink Notifier, logger zerolog.Logger) *Engine {
	return &Engine{
		store:    st,
		resolver: resolver,
		authz:    authz,
		prefs:    prefs,
		sink:     sink,
		logger:   logger.With().Str("component", "scheduling_engine").Logger(),
		now:      time.Now,
	}
}

func (e *Engine) clock() runClock {
	return runClockAt(e.now())
}
