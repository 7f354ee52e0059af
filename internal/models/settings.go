/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// SchedulerSetting stores runtime-configurable scheduling defaults.
// Uses singleton pattern with a fixed ID=1 row.
type SchedulerSetting struct {
	ID int `gorm:"primaryKey"`

	CrossfadeDuration time.Duration `gorm:"not null;default:0"`
	DefaultFadeIn     time.Duration `gorm:"not null;default:500000000"`
	DefaultFadeOut    time.Duration `gorm:"not null;default:500000000"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (SchedulerSetting) TableName() string {
	return "scheduler_settings"
}
