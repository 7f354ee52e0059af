/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// RoleName enumerates the RBAC roles.
type RoleName string

const (
	RoleAdmin    RoleName = "admin"
	RoleProducer RoleName = "producer"
	RoleDJ       RoleName = "dj"
)

// User represents an authenticated account. Passwords live in the
// upstream identity service; this service only needs the role and the
// show-host relation.
type User struct {
	ID        string   `gorm:"type:uuid;primaryKey"`
	Email     string   `gorm:"uniqueIndex"`
	Role      RoleName `gorm:"type:varchar(16)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (User) TableName() string {
	return "users"
}
