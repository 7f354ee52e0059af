/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Show is a broadcast program definition. When Linked is set, all of
// its instances are expected to carry identical ordered content.
type Show struct {
	ID         string  `gorm:"type:uuid;primaryKey"`
	Name       string  `gorm:"type:varchar(255);not null"`
	HostUserID *string `gorm:"type:uuid;index:idx_shows_host"`
	Linked     bool    `gorm:"not null;default:false"`

	Instances []ShowInstance `gorm:"foreignKey:ShowID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (Show) TableName() string {
	return "shows"
}

// ShowInstance is one scheduled occurrence of a show.
type ShowInstance struct {
	ID     string `gorm:"type:uuid;primaryKey"`
	ShowID string `gorm:"type:uuid;index:idx_show_instances_show;not null"`

	StartsAt time.Time `gorm:"index:idx_show_instances_starts;not null"`
	EndsAt   time.Time `gorm:"not null"`

	// TimeFilled is the cumulative clip length of the instance's entries.
	TimeFilled time.Duration

	// LastScheduled is the timestamp of the last successful schedule
	// mutation on this instance. It doubles as the optimistic-concurrency
	// token: client batches computed against an older view are rejected.
	LastScheduled *time.Time

	// IsRecording locks the instance against manual scheduling.
	IsRecording bool `gorm:"not null;default:false"`

	Show *Show `gorm:"foreignKey:ShowID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (ShowInstance) TableName() string {
	return "show_instances"
}

// Airing reports whether the instance is on air at the given time.
func (si *ShowInstance) Airing(now time.Time) bool {
	return !si.StartsAt.After(now) && si.EndsAt.After(now)
}
