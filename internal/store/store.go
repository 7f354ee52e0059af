/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store is the persistence boundary of the scheduling engine.
// All reads and writes of schedule, instance and show rows go through
// the Store interface so an entire engine run can be composed into one
// transaction.
package store

import (
	"context"
	"time"

	"github.com/friendsincode/grimnir_scheduler/internal/models"
)

// Store exposes the schedule persistence operations the engine needs.
// Implementations must make WithTransaction hand the callback a Store
// whose operations all execute inside one transaction.
type Store interface {
	WithTransaction(ctx context.Context, fn func(tx Store) error) error

	// Schedule entries.
	EntryByID(ctx context.Context, id string) (*models.ScheduleEntry, error)
	EntriesByIDs(ctx context.Context, ids []string) ([]models.ScheduleEntry, error)
	EntriesByInstance(ctx context.Context, instanceID string) ([]models.ScheduleEntry, error)
	EntryAtPosition(ctx context.Context, instanceID string, position int) (*models.ScheduleEntry, error)
	EntriesStartingFrom(ctx context.Context, instanceID string, from time.Time, excludeIDs []string) ([]models.ScheduleEntry, error)
	InsertEntries(ctx context.Context, entries []models.ScheduleEntry) error
	SaveEntry(ctx context.Context, entry *models.ScheduleEntry) error
	DeleteEntriesByInstances(ctx context.Context, instanceIDs []string) error

	// Show instances and shows.
	InstanceByID(ctx context.Context, id string) (*models.ShowInstance, error)
	InstancesByIDs(ctx context.Context, ids []string) ([]models.ShowInstance, error)
	InstancesByShow(ctx context.Context, showID string) ([]models.ShowInstance, error)
	SaveInstance(ctx context.Context, instance *models.ShowInstance) error
	ShowByID(ctx context.Context, id string) (*models.Show, error)

	// File scheduling bookkeeping.
	FileIDsByInstances(ctx context.Context, instanceIDs []string) ([]string, error)
	FutureScheduledFileIDs(ctx context.Context, after time.Time) ([]string, error)
	SetFilesScheduled(ctx context.Context, fileIDs []string, scheduled bool) error

	// TimeFilled recompute input.
	SumClipLength(ctx context.Context, instanceID string) (time.Duration, error)
}
