/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/grimnir_scheduler/internal/engine"
	"github.com/friendsincode/grimnir_scheduler/internal/models"
)

type anchorPayload struct {
	// EntryID is empty to insert at the head of the instance.
	EntryID         string    `json:"entry_id"`
	InstanceID      string    `json:"instance_id"`
	ClientTimestamp time.Time `json:"client_timestamp"`
}

func (p anchorPayload) toRequest() engine.AnchorRequest {
	return engine.AnchorRequest{
		EntryID:         p.EntryID,
		InstanceID:      p.InstanceID,
		ClientTimestamp: p.ClientTimestamp,
	}
}

type mediaRefPayload struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

type insertRequest struct {
	Anchors []anchorPayload   `json:"anchors"`
	Media   []mediaRefPayload `json:"media"`
}

func (a *API) handleScheduleInsert(w http.ResponseWriter, r *http.Request) {
	var req insertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	anchors := make([]engine.AnchorRequest, 0, len(req.Anchors))
	for _, anchor := range req.Anchors {
		anchors = append(anchors, anchor.toRequest())
	}
	refs := make([]engine.MediaRef, 0, len(req.Media))
	for _, m := range req.Media {
		refs = append(refs, engine.MediaRef{ID: m.ID, Kind: engine.RefKind(m.Kind)})
	}

	if err := a.engine.InsertAfter(r.Context(), anchors, refs, userID(r)); err != nil {
		a.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "scheduled"})
}

type moveRequest struct {
	Anchors  []anchorPayload `json:"anchors"`
	EntryIDs []string        `json:"entry_ids"`
}

func (a *API) handleScheduleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	anchors := make([]engine.AnchorRequest, 0, len(req.Anchors))
	for _, anchor := range req.Anchors {
		anchors = append(anchors, anchor.toRequest())
	}

	if err := a.engine.MoveItems(r.Context(), anchors, req.EntryIDs, userID(r)); err != nil {
		a.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "moved"})
}

type shiftRequest struct {
	InstanceIDs []string   `json:"instance_ids"`
	DeltaMS     int64      `json:"delta_ms"`
	NewStart    *time.Time `json:"new_start,omitempty"`
}

func (a *API) handleScheduleShift(w http.ResponseWriter, r *http.Request) {
	var req shiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	delta := time.Duration(req.DeltaMS) * time.Millisecond
	if err := a.engine.ShiftInstanceEntries(r.Context(), req.InstanceIDs, delta, req.NewStart); err != nil {
		a.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "shifted"})
}

type removeGapsRequest struct {
	// ExcludeEntryIDs are compacted around as if already deleted, so a
	// client can reflow the show before its delete lands.
	ExcludeEntryIDs []string `json:"exclude_entry_ids"`
}

func (a *API) handleScheduleRemoveGaps(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "showID")

	var req removeGapsRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	if err := a.engine.RemoveGaps(r.Context(), showID, req.ExcludeEntryIDs, userID(r)); err != nil {
		a.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "compacted"})
}

func (a *API) handleScheduleEmpty(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "instanceID")
	if err := a.engine.EmptyInstance(r.Context(), instanceID, userID(r)); err != nil {
		a.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "emptied"})
}

func (a *API) handleScheduleSync(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "showID")
	sourceInstanceID := r.URL.Query().Get("source_instance")

	var err error
	if sourceInstanceID != "" {
		err = a.engine.FillPreservedLinkedContent(r.Context(), showID, sourceInstanceID, userID(r))
	} else {
		err = a.engine.FillLinkedInstances(r.Context(), showID, userID(r))
	}
	if err != nil {
		a.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "synchronized"})
}

type entryPayload struct {
	ID            string    `json:"id"`
	InstanceID    string    `json:"instance_id"`
	SourceKind    string    `json:"source_kind,omitempty"`
	SourceRefID   string    `json:"source_ref_id,omitempty"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	CueInMS       int64     `json:"cue_in_ms"`
	CueOutMS      int64     `json:"cue_out_ms"`
	FadeInMS      int64     `json:"fade_in_ms"`
	FadeOutMS     int64     `json:"fade_out_ms"`
	ClipLengthMS  int64     `json:"clip_length_ms"`
	Position      int       `json:"position"`
	PlayoutStatus string    `json:"playout_status"`
}

func (a *API) handleInstanceEntries(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "instanceID")

	var entries []models.ScheduleEntry
	err := a.db.WithContext(r.Context()).
		Where("instance_id = ?", instanceID).
		Order("position ASC").
		Find(&entries).Error
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to list instance entries")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]entryPayload, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		out = append(out, entryPayload{
			ID:            e.ID,
			InstanceID:    e.InstanceID,
			SourceKind:    string(e.Source.Kind),
			SourceRefID:   e.Source.RefID,
			StartsAt:      e.StartsAt,
			EndsAt:        e.EndsAt,
			CueInMS:       e.CueIn.Milliseconds(),
			CueOutMS:      e.CueOut.Milliseconds(),
			FadeInMS:      e.FadeIn.Milliseconds(),
			FadeOutMS:     e.FadeOut.Milliseconds(),
			ClipLengthMS:  e.ClipLength.Milliseconds(),
			Position:      e.Position,
			PlayoutStatus: string(e.PlayoutStatus),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

type settingsPayload struct {
	CrossfadeMS      int64 `json:"crossfade_ms"`
	DefaultFadeInMS  int64 `json:"default_fade_in_ms"`
	DefaultFadeOutMS int64 `json:"default_fade_out_ms"`
}

func (a *API) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	crossfade, err := a.prefs.CrossfadeDuration(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to load settings")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	fadeIn, fadeOut, err := a.prefs.DefaultFades(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to load settings")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, settingsPayload{
		CrossfadeMS:      crossfade.Milliseconds(),
		DefaultFadeInMS:  fadeIn.Milliseconds(),
		DefaultFadeOutMS: fadeOut.Milliseconds(),
	})
}

func (a *API) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	if !hasRole(r, "admin") {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}

	var req settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	setting := models.SchedulerSetting{
		CrossfadeDuration: time.Duration(req.CrossfadeMS) * time.Millisecond,
		DefaultFadeIn:     time.Duration(req.DefaultFadeInMS) * time.Millisecond,
		DefaultFadeOut:    time.Duration(req.DefaultFadeOutMS) * time.Millisecond,
	}
	if err := a.prefs.Update(r.Context(), setting); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, req)
}
