/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// MediaFile is an audio asset in the library.
type MediaFile struct {
	ID     string `gorm:"type:uuid;primaryKey"`
	Title  string `gorm:"index"`
	Artist string `gorm:"index"`

	Length time.Duration
	CueIn  time.Duration
	CueOut time.Duration

	// IsScheduled is maintained by the scheduling engine: set when the
	// file is placed on a timeline, cleared when it no longer appears in
	// any future entry.
	IsScheduled bool `gorm:"not null;default:false;index"`

	// Hidden files are invisible to scheduling (soft deleted or still
	// being imported).
	Hidden bool `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (MediaFile) TableName() string {
	return "media_files"
}

// PlayableLength is the real clip length between the cue points.
func (f *MediaFile) PlayableLength() time.Duration {
	if f.CueOut > f.CueIn {
		return f.CueOut - f.CueIn
	}
	return f.Length
}

// Webstream is a remote stream scheduled for a fixed length.
type Webstream struct {
	ID     string `gorm:"type:uuid;primaryKey"`
	Name   string `gorm:"index"`
	URL    string
	Length time.Duration

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (Webstream) TableName() string {
	return "webstreams"
}

// PlaylistItemKind discriminates playlist entries.
type PlaylistItemKind string

const (
	PlaylistItemFile   PlaylistItemKind = "file"
	PlaylistItemStream PlaylistItemKind = "stream"
	PlaylistItemBlock  PlaylistItemKind = "block"
)

// Playlist is an ordered set of files, streams and blocks.
type Playlist struct {
	ID   string `gorm:"type:uuid;primaryKey"`
	Name string `gorm:"index"`

	Items []PlaylistItem `gorm:"foreignKey:PlaylistID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (Playlist) TableName() string {
	return "playlists"
}

// PlaylistItem is one element of a playlist with its stored timings.
type PlaylistItem struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	PlaylistID string `gorm:"type:uuid;index:idx_playlist_items_playlist;not null"`
	Position   int    `gorm:"not null"`

	Kind  PlaylistItemKind `gorm:"type:varchar(8);not null"`
	RefID string           `gorm:"type:uuid;not null"`

	ClipLength time.Duration
	CueIn      time.Duration
	CueOut     time.Duration
	FadeIn     time.Duration
	FadeOut    time.Duration
}

// TableName returns the table name for GORM.
func (PlaylistItem) TableName() string {
	return "playlist_items"
}

// Block is a track container; static blocks hold an explicit item list,
// dynamic blocks select library files up to a limit at resolve time.
type Block struct {
	ID   string `gorm:"type:uuid;primaryKey"`
	Name string `gorm:"index"`
	// No default tag here: gorm omits zero-valued fields that carry one
	// on create, which would silently turn dynamic blocks static.
	Static bool `gorm:"not null"`

	// Limits for dynamic blocks. ItemLimit of 0 means no item cap.
	ItemLimit   int
	LengthLimit time.Duration

	Items []BlockItem `gorm:"foreignKey:BlockID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (Block) TableName() string {
	return "blocks"
}

// BlockItem is one element of a static block.
type BlockItem struct {
	ID       string `gorm:"type:uuid;primaryKey"`
	BlockID  string `gorm:"type:uuid;index:idx_block_items_block;not null"`
	Position int    `gorm:"not null"`
	FileID   string `gorm:"type:uuid;not null"`

	ClipLength time.Duration
	CueIn      time.Duration
	CueOut     time.Duration
	FadeIn     time.Duration
	FadeOut    time.Duration
}

// TableName returns the table name for GORM.
func (BlockItem) TableName() string {
	return "block_items"
}
