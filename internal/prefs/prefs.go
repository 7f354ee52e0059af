/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package prefs serves station-wide scheduling preferences (crossfade
// window, default fades) from the settings table through the Redis
// cache.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_scheduler/internal/cache"
	"github.com/friendsincode/grimnir_scheduler/internal/models"
)

const defaultFade = 500 * time.Millisecond

// Service reads and writes scheduler settings.
type Service struct {
	db     *gorm.DB
	cache  *cache.Cache
	logger zerolog.Logger
}

// New constructs the preferences service.
func New(db *gorm.DB, c *cache.Cache, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		cache:  c,
		logger: logger.With().Str("component", "prefs").Logger(),
	}
}

// CrossfadeDuration returns the station crossfade window. Zero means
// entries abut without overlap.
func (s *Service) CrossfadeDuration(ctx context.Context) (time.Duration, error) {
	setting, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return setting.CrossfadeDuration, nil
}

// DefaultFades returns the fade-in/out applied to items without stored
// fades.
func (s *Service) DefaultFades(ctx context.Context) (time.Duration, time.Duration, error) {
	setting, err := s.load(ctx)
	if err != nil {
		return 0, 0, err
	}
	return setting.DefaultFadeIn, setting.DefaultFadeOut, nil
}

// Update persists new settings and invalidates the cache.
func (s *Service) Update(ctx context.Context, setting models.SchedulerSetting) error {
	setting.ID = 1
	if setting.CrossfadeDuration < 0 || setting.DefaultFadeIn < 0 || setting.DefaultFadeOut < 0 {
		return errors.New("prefs: durations must not be negative")
	}
	if err := s.db.WithContext(ctx).Save(&setting).Error; err != nil {
		return fmt.Errorf("save scheduler settings: %w", err)
	}
	if err := s.cache.Delete(ctx, cache.KeySchedulerSettings); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate settings cache")
	}
	s.logger.Info().
		Dur("crossfade", setting.CrossfadeDuration).
		Dur("fade_in", setting.DefaultFadeIn).
		Dur("fade_out", setting.DefaultFadeOut).
		Msg("scheduler settings updated")
	return nil
}

func (s *Service) load(ctx context.Context) (*models.SchedulerSetting, error) {
	var setting models.SchedulerSetting
	if s.cache.Get(ctx, cache.KeySchedulerSettings, &setting) {
		return &setting, nil
	}

	err := s.db.WithContext(ctx).First(&setting, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		setting = models.SchedulerSetting{
			ID:             1,
			DefaultFadeIn:  defaultFade,
			DefaultFadeOut: defaultFade,
		}
		if err := s.db.WithContext(ctx).FirstOrCreate(&setting, "id = ?", 1).Error; err != nil {
			return nil, fmt.Errorf("seed scheduler settings: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("load scheduler settings: %w", err)
	}

	if err := s.cache.Set(ctx, cache.KeySchedulerSettings, &setting, s.cache.SettingsTTL()); err != nil {
		s.logger.Debug().Err(err).Msg("failed to cache scheduler settings")
	}
	return &setting, nil
}
