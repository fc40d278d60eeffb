package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MonsterTechnoGits/rainbow-stream/internal/auth"
	"github.com/MonsterTechnoGits/rainbow-stream/internal/catalog"
)

func TestCreateTrack(t *testing.T) {
	tracks := newFakeTracks()
	handler := NewHandler(testConfig(), Dependencies{Logger: testLogger(), Tracks: tracks})

	body := `{"track_id":"tr-1","owner_id":"alice","title":"First Light","artist":"Aurora","premium":true,"duration_seconds":214}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tracks", bytes.NewReader([]byte(body))))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeBody(t, rec)
	if payload["track_id"] != "tr-1" {
		t.Fatalf("unexpected track_id %v", payload["track_id"])
	}
	if payload["premium"] != true {
		t.Fatalf("premium flag lost")
	}
	if _, err := tracks.GetTrack(context.Background(), "tr-1"); err != nil {
		t.Fatalf("track was not persisted: %v", err)
	}
}

func TestCreateTrackAggregatesViolations(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{Logger: testLogger(), Tracks: newFakeTracks()})

	body := `{"artist":"Aurora","duration_seconds":-5}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tracks", bytes.NewReader([]byte(body))))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	extra, ok := payload["context"].(map[string]any)
	if !ok {
		t.Fatalf("expected context object, got %v", payload["context"])
	}
	violations, ok := extra["violations"].([]any)
	if !ok {
		t.Fatalf("expected violations list, got %v", extra["violations"])
	}
	if len(violations) != 4 {
		t.Fatalf("expected all 4 violations reported together, got %d: %v", len(violations), violations)
	}
}

func TestCreateTrackOwnerFromIdentity(t *testing.T) {
	validator, err := auth.NewStaticAPIKeyValidator("secret:bob:uploader")
	if err != nil {
		t.Fatalf("build validator: %v", err)
	}
	cfg := testConfig()
	cfg.Auth.Required = true
	tracks := newFakeTracks()
	handler := NewHandler(cfg, Dependencies{
		Logger:         testLogger(),
		AuthMiddleware: auth.Middleware(testLogger(), validator),
		Tracks:         tracks,
	})

	body := `{"track_id":"tr-7","owner_id":"someone-else","title":"Drift"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/tracks", bytes.NewReader([]byte(body)))
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	track, err := tracks.GetTrack(context.Background(), "tr-7")
	if err != nil {
		t.Fatalf("track missing: %v", err)
	}
	if track.OwnerID != "bob" {
		t.Fatalf("owner should come from the authenticated identity, got %q", track.OwnerID)
	}
}

func TestGetTrackIncludesStreamingURLs(t *testing.T) {
	tracks := newFakeTracks(catalog.Track{
		TrackID:  "tr-9",
		OwnerID:  "alice",
		Title:    "Tide",
		AudioKey: "audio/tr-9.mp3",
		CoverKey: "covers/tr-9.jpg",
	})
	handler := NewHandler(testConfig(), Dependencies{Logger: testLogger(), Tracks: tracks})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tracks/tr-9", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["audio_url"] != "/stream/audio%2Ftr-9.mp3" {
		t.Fatalf("unexpected audio_url %v", payload["audio_url"])
	}
	if payload["cover_url"] != "/stream/covers%2Ftr-9.jpg" {
		t.Fatalf("unexpected cover_url %v", payload["cover_url"])
	}
}

func TestGetTrackNotFound(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{Logger: testLogger(), Tracks: newFakeTracks()})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tracks/ghost", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["error_code"] != "TRACK_NOT_FOUND" {
		t.Fatalf("unexpected error code %v", payload["error_code"])
	}
}

func TestListTracksFiltersByOwner(t *testing.T) {
	tracks := newFakeTracks(
		catalog.Track{TrackID: "tr-1", OwnerID: "alice", Title: "One"},
		catalog.Track{TrackID: "tr-2", OwnerID: "bob", Title: "Two"},
	)
	handler := NewHandler(testConfig(), Dependencies{Logger: testLogger(), Tracks: tracks})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tracks?owner_id=alice", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	listed, ok := payload["tracks"].([]any)
	if !ok {
		t.Fatalf("expected tracks list, got %v", payload["tracks"])
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 track for alice, got %d", len(listed))
	}
}

func TestListTracksCatalogError(t *testing.T) {
	tracks := newFakeTracks()
	tracks.listErr = errors.New("connection refused")
	handler := NewHandler(testConfig(), Dependencies{Logger: testLogger(), Tracks: tracks})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tracks", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["retryable"] != true {
		t.Fatalf("catalog outages should be retryable")
	}
}

func TestDeleteTrack(t *testing.T) {
	tracks := newFakeTracks(catalog.Track{TrackID: "tr-1", OwnerID: "alice"})
	handler := NewHandler(testConfig(), Dependencies{Logger: testLogger(), Tracks: tracks})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/tracks/tr-1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(tracks.deletedTracks) != 1 || tracks.deletedTracks[0] != "tr-1" {
		t.Fatalf("track was not deleted: %v", tracks.deletedTracks)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/tracks/tr-1", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestDeleteTrackRequiresAdminRole(t *testing.T) {
	validator, err := auth.NewStaticAPIKeyValidator("secret:alice:uploader")
	if err != nil {
		t.Fatalf("build validator: %v", err)
	}
	cfg := testConfig()
	cfg.Auth.Required = true
	handler := NewHandler(cfg, Dependencies{
		Logger:         testLogger(),
		AuthMiddleware: auth.Middleware(testLogger(), validator),
		Tracks:         newFakeTracks(catalog.Track{TrackID: "tr-1"}),
	})

	req := httptest.NewRequest(http.MethodDelete, "/v1/tracks/tr-1", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without admin role, got %d", rec.Code)
	}
}
