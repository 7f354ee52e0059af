/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_scheduler/internal/models"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.User{},
		&models.SchedulerSetting{},

		// Library
		&models.MediaFile{},
		&models.Webstream{},
		&models.Playlist{},
		&models.PlaylistItem{},
		&models.Block{},
		&models.BlockItem{},

		// Shows and scheduling
		&models.Show{},
		&models.ShowInstance{},
		&models.ScheduleEntry{},
	); err != nil {
		return err
	}

	if err := applyPostgresEntryBoundsGuard(database); err != nil {
		return err
	}

	return nil
}

// applyPostgresEntryBoundsGuard rejects schedule entry rows whose end
// precedes their start or whose clip length is negative. Overlap between
// consecutive entries is legitimate (crossfades), so only interval sanity
// is enforced here.
func applyPostgresEntryBoundsGuard(database *gorm.DB) error {
	if database.Dialector.Name() != "postgres" {
		return nil
	}

	stmt := `
CREATE OR REPLACE FUNCTION prevent_invalid_schedule_entry()
RETURNS trigger
LANGUAGE plpgsql
AS $$
BEGIN
  IF NEW.ends_at < NEW.starts_at THEN
    RAISE EXCEPTION 'schedule entry end must not precede start'
      USING ERRCODE = '23514';
  END IF;

  IF NEW.clip_length < 0 THEN
    RAISE EXCEPTION 'schedule entry clip length must not be negative'
      USING ERRCODE = '23514';
  END IF;

  RETURN NEW;
END;
$$;

DROP TRIGGER IF EXISTS trg_prevent_invalid_schedule_entry ON schedule_entries;

CREATE TRIGGER trg_prevent_invalid_schedule_entry
BEFORE INSERT OR UPDATE OF starts_at, ends_at, clip_length
ON schedule_entries
FOR EACH ROW
EXECUTE FUNCTION prevent_invalid_schedule_entry();
`
	if err := database.Exec(stmt).Error; err != nil {
		return fmt.Errorf("apply postgres schedule entry bounds guard: %w", err)
	}

	return nil
}
