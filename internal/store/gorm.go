/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_scheduler/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// GormStore implements Store on a gorm database handle.
type GormStore struct {
	db *gorm.DB
}

// New wraps a gorm handle in a Store.
func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// WithTransaction runs fn with a Store bound to one transaction. Any
// error from fn rolls the whole transaction back.
func (s *GormStore) WithTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) EntryByID(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	var entry models.ScheduleEntry
	err := s.db.WithContext(ctx).First(&entry, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *GormStore) EntriesByIDs(ctx context.Context, ids []string) ([]models.ScheduleEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var entries []models.ScheduleEntry
	err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("position ASC").
		Find(&entries).Error
	return entries, err
}

func (s *GormStore) EntriesByInstance(ctx context.Context, instanceID string) ([]models.ScheduleEntry, error) {
	var entries []models.ScheduleEntry
	err := s.db.WithContext(ctx).
		Where("instance_id = ?", instanceID).
		Order("position ASC").
		Find(&entries).Error
	return entries, err
}

// EntryAtPosition resolves the entry holding a given ordinal within an
// instance, skipping fillers so positions align across linked instances.
func (s *GormStore) EntryAtPosition(ctx context.Context, instanceID string, position int) (*models.ScheduleEntry, error) {
	var entry models.ScheduleEntry
	err := s.db.WithContext(ctx).
		Where("instance_id = ? AND position = ? AND playout_status <> ?",
			instanceID, position, models.PlayoutFiller).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *GormStore) EntriesStartingFrom(ctx context.Context, instanceID string, from time.Time, excludeIDs []string) ([]models.ScheduleEntry, error) {
	q := s.db.WithContext(ctx).
		Where("instance_id = ? AND starts_at >= ? AND playout_status <> ?",
			instanceID, from, models.PlayoutFiller)
	if len(excludeIDs) > 0 {
		q = q.Where("id NOT IN ?", excludeIDs)
	}
	var entries []models.ScheduleEntry
	err := q.Order("starts_at ASC").Find(&entries).Error
	return entries, err
}

func (s *GormStore) InsertEntries(ctx context.Context, entries []models.ScheduleEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&entries).Error
}

func (s *GormStore) SaveEntry(ctx context.Context, entry *models.ScheduleEntry) error {
	return s.db.WithContext(ctx).Save(entry).Error
}

func (s *GormStore) DeleteEntriesByInstances(ctx context.Context, instanceIDs []string) error {
	if len(instanceIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("instance_id IN ?", instanceIDs).
		Delete(&models.ScheduleEntry{}).Error
}

func (s *GormStore) InstanceByID(ctx context.Context, id string) (*models.ShowInstance, error) {
	var instance models.ShowInstance
	err := s.db.WithContext(ctx).First(&instance, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

func (s *GormStore) InstancesByIDs(ctx context.Context, ids []string) ([]models.ShowInstance, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var instances []models.ShowInstance
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&instances).Error
	return instances, err
}

func (s *GormStore) InstancesByShow(ctx context.Context, showID string) ([]models.ShowInstance, error) {
	var instances []models.ShowInstance
	err := s.db.WithContext(ctx).
		Where("show_id = ?", showID).
		Order("starts_at ASC").
		Find(&instances).Error
	return instances, err
}

func (s *GormStore) SaveInstance(ctx context.Context, instance *models.ShowInstance) error {
	return s.db.WithContext(ctx).Save(instance).Error
}

func (s *GormStore) ShowByID(ctx context.Context, id string) (*models.Show, error) {
	var show models.Show
	err := s.db.WithContext(ctx).First(&show, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &show, nil
}

// FileIDsByInstances returns the distinct media file ids referenced by
// the given instances' entries.
func (s *GormStore) FileIDsByInstances(ctx context.Context, instanceIDs []string) ([]string, error) {
	if len(instanceIDs) == 0 {
		return nil, nil
	}
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.ScheduleEntry{}).
		Distinct("source_ref_id").
		Where("instance_id IN ? AND source_kind = ?", instanceIDs, models.SourceFile).
		Pluck("source_ref_id", &ids).Error
	return ids, err
}

// FutureScheduledFileIDs returns the distinct file ids appearing in any
// entry still ending after the given time.
func (s *GormStore) FutureScheduledFileIDs(ctx context.Context, after time.Time) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.ScheduleEntry{}).
		Distinct("source_ref_id").
		Where("source_kind = ? AND ends_at > ?", models.SourceFile, after).
		Pluck("source_ref_id", &ids).Error
	return ids, err
}

func (s *GormStore) SetFilesScheduled(ctx context.Context, fileIDs []string, scheduled bool) error {
	if len(fileIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.MediaFile{}).
		Where("id IN ? AND is_scheduled = ?", fileIDs, !scheduled).
		Update("is_scheduled", scheduled).Error
}

func (s *GormStore) SumClipLength(ctx context.Context, instanceID string) (time.Duration, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.ScheduleEntry{}).
		Where("instance_id = ? AND playout_status <> ?", instanceID, models.PlayoutFiller).
		Select("COALESCE(SUM(clip_length), 0)").
		Scan(&total).Error
	return time.Duration(total), err
}
