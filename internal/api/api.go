/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the scheduling engine over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_scheduler/internal/auth"
	"github.com/friendsincode/grimnir_scheduler/internal/engine"
	"github.com/friendsincode/grimnir_scheduler/internal/prefs"
	"github.com/friendsincode/grimnir_scheduler/internal/store"
)

// API exposes HTTP handlers.
type API struct {
	db        *gorm.DB
	jwtSecret []byte
	engine    *engine.Engine
	prefs     *prefs.Service
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(database *gorm.DB, jwtSecret []byte, eng *engine.Engine, preferences *prefs.Service, logger zerolog.Logger) *API {
	return &API{
		db:        database,
		jwtSecret: jwtSecret,
		engine:    eng,
		prefs:     preferences,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts all API endpoints on the router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(a.jwtSecret))

			pr.Route("/schedule", func(r chi.Router) {
				r.Post("/insert", a.handleScheduleInsert)
				r.Post("/move", a.handleScheduleMove)
				r.Post("/shift", a.handleScheduleShift)
				r.Post("/remove-gaps/{showID}", a.handleScheduleRemoveGaps)
				r.Post("/empty/{instanceID}", a.handleScheduleEmpty)
				r.Post("/sync/{showID}", a.handleScheduleSync)
			})

			pr.Get("/instances/{instanceID}/entries", a.handleInstanceEntries)

			pr.Get("/settings", a.handleSettingsGet)
			pr.Put("/settings", a.handleSettingsUpdate)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// userID pulls the authenticated user from the JWT claims. The auth
// middleware guarantees claims exist on protected routes.
func userID(r *http.Request) string {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		return claims.UserID
	}
	return ""
}

func hasRole(r *http.Request, role string) bool {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return false
	}
	for _, candidate := range claims.Roles {
		if candidate == role {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeEngineError maps engine errors onto HTTP statuses: malformed
// requests 400, permission failures 403, concurrency conflicts 409,
// missing media 404, business rule rejections 422 and storage faults
// 500. The error text is returned so UIs can show the reason.
func (a *API) writeEngineError(w http.ResponseWriter, err error) {
	var storageErr *engine.StorageError
	switch {
	case errors.Is(err, engine.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrStaleSchedule):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrMediaNotFound), errors.Is(err, store.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrRecordingLocked),
		errors.Is(err, engine.ErrShowExpired),
		errors.Is(err, engine.ErrLinkedShowPlaying):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &storageErr):
		a.logger.Error().Err(err).Msg("schedule mutation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		a.logger.Error().Err(err).Msg("schedule mutation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
