/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// SourceKind discriminates the playable source of a schedule entry.
type SourceKind string

const (
	SourceFile   SourceKind = "file"
	SourceStream SourceKind = "stream"
)

// Source is the tagged union of file-vs-stream references. Exactly one
// kind applies per entry; filler entries carry the zero value.
type Source struct {
	Kind  SourceKind `gorm:"column:kind;type:varchar(8)" json:"kind"`
	RefID string     `gorm:"column:ref_id;type:uuid" json:"ref_id"`
}

// FileSource returns a Source referencing a media file.
func FileSource(id string) Source {
	return Source{Kind: SourceFile, RefID: id}
}

// StreamSource returns a Source referencing a webstream.
func StreamSource(id string) Source {
	return Source{Kind: SourceStream, RefID: id}
}

// IsZero reports whether the source references nothing (filler entries).
func (s Source) IsZero() bool {
	return s.Kind == "" && s.RefID == ""
}

// PlayoutStatus defines the playout disposition of a schedule entry.
type PlayoutStatus string

const (
	// PlayoutScheduled is a normal playable entry.
	PlayoutScheduled PlayoutStatus = "scheduled"
	// PlayoutFiller marks a synthetic entry spanning already-elapsed
	// dead air. Fillers are never sent to playout.
	PlayoutFiller PlayoutStatus = "filler"
)

// ScheduleEntry is one playable slot in a show instance's timeline.
//
// Timestamps are UTC with microsecond precision and satisfy
// EndsAt == StartsAt + ClipLength exactly.
type ScheduleEntry struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	InstanceID string `gorm:"type:uuid;index:idx_schedule_entries_instance;not null"`

	Source Source `gorm:"embedded;embeddedPrefix:source_"`

	StartsAt time.Time `gorm:"index:idx_schedule_entries_starts;not null"`
	EndsAt   time.Time `gorm:"not null"`

	// Trim points within the source media and fade durations.
	CueIn   time.Duration
	CueOut  time.Duration
	FadeIn  time.Duration
	FadeOut time.Duration

	// ClipLength is the playable length: cue_out - cue_in for files,
	// the stream length for webstreams.
	ClipLength time.Duration `gorm:"not null"`

	// Position is the zero-based ordinal within the owning instance.
	Position int `gorm:"not null"`

	PlayoutStatus PlayoutStatus `gorm:"type:varchar(16);not null;default:'scheduled'"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (ScheduleEntry) TableName() string {
	return "schedule_entries"
}

// IsFiller reports whether the entry marks elapsed dead air.
func (e *ScheduleEntry) IsFiller() bool {
	return e.PlayoutStatus == PlayoutFiller
}
