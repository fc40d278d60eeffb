package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MonsterTechnoGits/rainbow-stream/internal/auth"
	"github.com/MonsterTechnoGits/rainbow-stream/internal/catalog"
	"github.com/MonsterTechnoGits/rainbow-stream/internal/stream"
)

type createTrackRequest struct {
	TrackID         string `json:"track_id"`
	OwnerID         string `json:"owner_id"`
	Title           string `json:"title"`
	Artist          string `json:"artist"`
	Premium         bool   `json:"premium"`
	DurationSeconds int    `json:"duration_seconds"`
}

type trackResponse struct {
	TrackID         string    `json:"track_id"`
	OwnerID         string    `json:"owner_id"`
	Title           string    `json:"title"`
	Artist          string    `json:"artist"`
	Premium         bool      `json:"premium"`
	DurationSeconds int       `json:"duration_seconds"`
	AudioURL        string    `json:"audio_url,omitempty"`
	CoverURL        string    `json:"cover_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toTrackResponse(track catalog.Track) trackResponse {
	response := trackResponse{
		TrackID:         track.TrackID,
		OwnerID:         track.OwnerID,
		Title:           track.Title,
		Artist:          track.Artist,
		Premium:         track.Premium,
		DurationSeconds: track.DurationSeconds,
		CreatedAt:       track.CreatedAt,
		UpdatedAt:       track.UpdatedAt,
	}
	if track.AudioKey != "" {
		response.AudioURL = stream.StreamingPath(track.AudioKey)
	}
	if track.CoverKey != "" {
		response.CoverURL = stream.StreamingPath(track.CoverKey)
	}
	return response
}

func handleCreateTrack(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Tracks == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CATALOG_NOT_CONFIGURED", "catalog dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleUploader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request createTrackRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid track request body", false, map[string]any{"details": err.Error()})
		return
	}

	ownerID := strings.TrimSpace(request.OwnerID)
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		ownerID = identity.UserID
	}

	var violations []map[string]string
	if strings.TrimSpace(request.TrackID) == "" {
		violations = append(violations, map[string]string{"field": "track_id", "message": "is required"})
	}
	if strings.TrimSpace(request.Title) == "" {
		violations = append(violations, map[string]string{"field": "title", "message": "is required"})
	}
	if ownerID == "" {
		violations = append(violations, map[string]string{"field": "owner_id", "message": "is required"})
	}
	if request.DurationSeconds < 0 {
		violations = append(violations, map[string]string{"field": "duration_seconds", "message": "must not be negative"})
	}
	if len(violations) > 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_TRACK", "track request failed validation", false, map[string]any{"violations": violations})
		return
	}

	track, err := deps.Tracks.CreateTrack(r.Context(), catalog.CreateTrackInput{
		TrackID:         strings.TrimSpace(request.TrackID),
		OwnerID:         ownerID,
		Title:           strings.TrimSpace(request.Title),
		Artist:          strings.TrimSpace(request.Artist),
		Premium:         request.Premium,
		DurationSeconds: request.DurationSeconds,
	})
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "CATALOG_ERROR", "failed to create track", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, toTrackResponse(track))
}

func handleGetTrack(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Tracks == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CATALOG_NOT_CONFIGURED", "catalog dependencies are not configured", false, nil)
		return
	}
	trackID := strings.TrimSpace(r.PathValue("id"))
	if trackID == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "TRACK_ID_REQUIRED", "track id path parameter is required", false, nil)
		return
	}

	track, err := deps.Tracks.GetTrack(r.Context(), trackID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "TRACK_NOT_FOUND", "track does not exist", false, map[string]any{"track_id": trackID})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "CATALOG_ERROR", "failed to load track", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, toTrackResponse(track))
}

func handleListTracks(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Tracks == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CATALOG_NOT_CONFIGURED", "catalog dependencies are not configured", false, nil)
		return
	}

	tracks, err := deps.Tracks.ListTracks(r.Context(), strings.TrimSpace(r.URL.Query().Get("owner_id")))
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "CATALOG_ERROR", "failed to list tracks", true, map[string]any{"details": err.Error()})
		return
	}

	responses := make([]trackResponse, 0, len(tracks))
	for _, track := range tracks {
		responses = append(responses, toTrackResponse(track))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": responses})
}

func handleDeleteTrack(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Tracks == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CATALOG_NOT_CONFIGURED", "catalog dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleAdmin); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	trackID := strings.TrimSpace(r.PathValue("id"))
	if trackID == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "TRACK_ID_REQUIRED", "track id path parameter is required", false, nil)
		return
	}

	deleted, err := deps.Tracks.DeleteTrack(r.Context(), trackID)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "CATALOG_ERROR", "failed to delete track", true, map[string]any{"details": err.Error()})
		return
	}
	if !deleted {
		writeError(r.Context(), w, http.StatusNotFound, "TRACK_NOT_FOUND", "track does not exist", false, map[string]any{"track_id": trackID})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "track_id": trackID})
}

// requireRole enforces role membership when an identity is present. Requests
// that reach a protected route without an identity were let through by
// configuration (auth disabled), not by a missing check.
func requireRole(r *http.Request, role string) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	if !identity.HasRole(role) {
		return fmt.Errorf("role %q is required", role)
	}
	return nil
}
