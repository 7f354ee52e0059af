/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package auth handles JWT authentication and scheduling authorization.
package auth

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_scheduler/internal/models"
)

// Authz answers the scheduling engine's permission questions from the
// users and shows tables.
type Authz struct {
	db *gorm.DB
}

// NewAuthz constructs the authorization service.
func NewAuthz(db *gorm.DB) *Authz {
	return &Authz{db: db}
}

// IsAdminOrProducer reports whether the user holds a role that may
// schedule any show.
func (a *Authz) IsAdminOrProducer(ctx context.Context, userID string) (bool, error) {
	var user models.User
	err := a.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load user: %w", err)
	}
	return user.Role == models.RoleAdmin || user.Role == models.RoleProducer, nil
}

// IsHost reports whether the user hosts the given show.
func (a *Authz) IsHost(ctx context.Context, userID, showID string) (bool, error) {
	var show models.Show
	err := a.db.WithContext(ctx).First(&show, "id = ?", showID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load show: %w", err)
	}
	return show.HostUserID != nil && *show.HostUserID == userID, nil
}
