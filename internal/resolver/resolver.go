/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package resolver expands media references (files, webstreams,
// playlists, blocks) into the flat ordered item lists the scheduling
// engine places on a timeline.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_scheduler/internal/engine"
	"github.com/friendsincode/grimnir_scheduler/internal/models"
)

// streamFade is applied around webstream entries inside playlists; a
// remote stream has no trailing audio to fade against, so a short fixed
// ramp is used instead of the stored item fades.
const streamFade = 500 * time.Millisecond

// FadeDefaults supplies the station fade-in/out applied to items that
// carry no stored fades of their own.
type FadeDefaults interface {
	DefaultFades(ctx context.Context) (fadeIn, fadeOut time.Duration, err error)
}

// Resolver resolves media references against the library tables.
type Resolver struct {
	db     *gorm.DB
	fades  FadeDefaults
	logger zerolog.Logger
}

// New constructs a library-backed resolver.
func New(db *gorm.DB, fades FadeDefaults, logger zerolog.Logger) *Resolver {
	return &Resolver{
		db:     db,
		fades:  fades,
		logger: logger.With().Str("component", "media_resolver").Logger(),
	}
}

// Resolve expands one reference into zero or more playable items in
// play order. Hidden or missing media resolves to an error, empty
// containers to an empty slice.
func (r *Resolver) Resolve(ctx context.Context, ref engine.MediaRef) ([]engine.MediaItem, error) {
	switch ref.Kind {
	case engine.RefAudioclip:
		item, err := r.resolveFile(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return []engine.MediaItem{*item}, nil
	case engine.RefStream:
		item, err := r.resolveStream(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return []engine.MediaItem{*item}, nil
	case engine.RefPlaylist:
		return r.resolvePlaylist(ctx, ref.ID)
	case engine.RefBlock:
		return r.resolveBlock(ctx, ref.ID)
	default:
		return nil, fmt.Errorf("%w: unknown media kind %q", engine.ErrInvalidRequest, ref.Kind)
	}
}

func (r *Resolver) resolveFile(ctx context.Context, id string) (*engine.MediaItem, error) {
	var file models.MediaFile
	if err := r.db.WithContext(ctx).First(&file, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: file %s", engine.ErrMediaNotFound, id)
		}
		return nil, fmt.Errorf("load file: %w", err)
	}
	if file.Hidden {
		return nil, fmt.Errorf("%w: file %s is hidden", engine.ErrMediaNotFound, id)
	}
	fadeIn, fadeOut, err := r.fades.DefaultFades(ctx)
	if err != nil {
		return nil, err
	}
	return &engine.MediaItem{
		ID:         file.ID,
		Kind:       models.SourceFile,
		ClipLength: file.PlayableLength(),
		CueIn:      file.CueIn,
		CueOut:     file.CueOut,
		FadeIn:     fadeIn,
		FadeOut:    fadeOut,
	}, nil
}

func (r *Resolver) resolveStream(ctx context.Context, id string) (*engine.MediaItem, error) {
	var stream models.Webstream
	if err := r.db.WithContext(ctx).First(&stream, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: webstream %s", engine.ErrMediaNotFound, id)
		}
		return nil, fmt.Errorf("load webstream: %w", err)
	}
	return &engine.MediaItem{
		ID:         stream.ID,
		Kind:       models.SourceStream,
		ClipLength: stream.Length,
		CueOut:     stream.Length,
		FadeIn:     streamFade,
		FadeOut:    streamFade,
	}, nil
}

func (r *Resolver) resolvePlaylist(ctx context.Context, id string) ([]engine.MediaItem, error) {
	var playlist models.Playlist
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&playlist, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: playlist %s", engine.ErrMediaNotFound, id)
		}
		return nil, fmt.Errorf("load playlist: %w", err)
	}

	var items []engine.MediaItem
	for i := range playlist.Items {
		pi := &playlist.Items[i]
		switch pi.Kind {
		case models.PlaylistItemFile:
			// Stored playlist timings win over the file's library cues so
			// per-playlist trims survive.
			if err := r.ensureFilePlayable(ctx, pi.RefID); err != nil {
				return nil, err
			}
			items = append(items, engine.MediaItem{
				ID:         pi.RefID,
				Kind:       models.SourceFile,
				ClipLength: pi.ClipLength,
				CueIn:      pi.CueIn,
				CueOut:     pi.CueOut,
				FadeIn:     pi.FadeIn,
				FadeOut:    pi.FadeOut,
			})
		case models.PlaylistItemStream:
			items = append(items, engine.MediaItem{
				ID:         pi.RefID,
				Kind:       models.SourceStream,
				ClipLength: pi.ClipLength,
				CueOut:     pi.ClipLength,
				FadeIn:     streamFade,
				FadeOut:    streamFade,
			})
		case models.PlaylistItemBlock:
			expanded, err := r.resolveBlock(ctx, pi.RefID)
			if err != nil {
				return nil, err
			}
			items = append(items, expanded...)
		default:
			return nil, fmt.Errorf("%w: playlist item kind %q", engine.ErrInvalidRequest, pi.Kind)
		}
	}
	return items, nil
}

func (r *Resolver) resolveBlock(ctx context.Context, id string) ([]engine.MediaItem, error) {
	var block models.Block
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&block, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: block %s", engine.ErrMediaNotFound, id)
		}
		return nil, fmt.Errorf("load block: %w", err)
	}

	if block.Static {
		items := make([]engine.MediaItem, 0, len(block.Items))
		for i := range block.Items {
			bi := &block.Items[i]
			if err := r.ensureFilePlayable(ctx, bi.FileID); err != nil {
				return nil, err
			}
			items = append(items, engine.MediaItem{
				ID:         bi.FileID,
				Kind:       models.SourceFile,
				ClipLength: bi.ClipLength,
				CueIn:      bi.CueIn,
				CueOut:     bi.CueOut,
				FadeIn:     bi.FadeIn,
				FadeOut:    bi.FadeOut,
			})
		}
		return items, nil
	}
	return r.resolveDynamicBlock(ctx, &block)
}

// resolveDynamicBlock materializes a dynamic block at schedule time:
// newest visible library files first, capped by the block's item and
// length limits.
func (r *Resolver) resolveDynamicBlock(ctx context.Context, block *models.Block) ([]engine.MediaItem, error) {
	query := r.db.WithContext(ctx).
		Where("hidden = ?", false).
		Order("created_at DESC")
	if block.ItemLimit > 0 {
		query = query.Limit(block.ItemLimit)
	}

	var files []models.MediaFile
	if err := query.Find(&files).Error; err != nil {
		return nil, fmt.Errorf("select dynamic block files: %w", err)
	}

	fadeIn, fadeOut, err := r.fades.DefaultFades(ctx)
	if err != nil {
		return nil, err
	}

	var (
		items []engine.MediaItem
		total time.Duration
	)
	for i := range files {
		file := &files[i]
		length := file.PlayableLength()
		if block.LengthLimit > 0 && total+length > block.LengthLimit {
			break
		}
		items = append(items, engine.MediaItem{
			ID:         file.ID,
			Kind:       models.SourceFile,
			ClipLength: length,
			CueIn:      file.CueIn,
			CueOut:     file.CueOut,
			FadeIn:     fadeIn,
			FadeOut:    fadeOut,
		})
		total += length
	}

	r.logger.Debug().
		Str("block", block.ID).
		Int("items", len(items)).
		Dur("total_length", total).
		Msg("dynamic block materialized")
	return items, nil
}

// ensureFilePlayable rejects references to hidden or deleted files even
// when the container stores its own timings.
func (r *Resolver) ensureFilePlayable(ctx context.Context, fileID string) error {
	var file models.MediaFile
	if err := r.db.WithContext(ctx).Select("id", "hidden").First(&file, "id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: file %s", engine.ErrMediaNotFound, fileID)
		}
		return fmt.Errorf("load file: %w", err)
	}
	if file.Hidden {
		return fmt.Errorf("%w: file %s is hidden", engine.ErrMediaNotFound, fileID)
	}
	return nil
}
