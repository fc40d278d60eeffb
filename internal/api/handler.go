package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MonsterTechnoGits/rainbow-stream/internal/catalog"
	"github.com/MonsterTechnoGits/rainbow-stream/internal/config"
	"github.com/MonsterTechnoGits/rainbow-stream/internal/observability"
	"github.com/MonsterTechnoGits/rainbow-stream/internal/storage"
	"github.com/MonsterTechnoGits/rainbow-stream/internal/stream"
	"github.com/MonsterTechnoGits/rainbow-stream/internal/upload"
)

type ReadinessCheck func(ctx context.Context) error

// StreamBuilder is the streaming core as the handlers see it.
type StreamBuilder interface {
	Build(ctx context.Context, key, rangeHeader string) stream.Descriptor
}

// MediaUploader is the upload pipeline as the handlers see it.
type MediaUploader interface {
	Upload(ctx context.Context, ownerID string, file upload.File, kind storage.MediaKind) (upload.Result, error)
}

type TrackCatalog interface {
	CreateTrack(ctx context.Context, in catalog.CreateTrackInput) (catalog.Track, error)
	GetTrack(ctx context.Context, trackID string) (catalog.Track, error)
	ListTracks(ctx context.Context, ownerID string) ([]catalog.Track, error)
	UpdateTrackAudioKey(ctx context.Context, trackID, audioKey string) error
	UpdateTrackCoverKey(ctx context.Context, trackID, coverKey string) error
	DeleteTrack(ctx context.Context, trackID string) (bool, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Streams           StreamBuilder
	Uploader          MediaUploader
	Tracks            TrackCatalog
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	// Playback and browsing are anonymous; the stream route is matched as a
	// subtree so percent-encoded keys reach the resolver unmangled.
	mux.Handle("GET /stream/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleStream(deps, w, r)
	}))
	mux.HandleFunc("GET /v1/tracks", func(w http.ResponseWriter, r *http.Request) {
		handleListTracks(deps, w, r)
	})
	mux.HandleFunc("GET /v1/tracks/{id}", func(w http.ResponseWriter, r *http.Request) {
		handleGetTrack(deps, w, r)
	})

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/tracks", func(w http.ResponseWriter, r *http.Request) {
		handleCreateTrack(deps, w, r)
	})
	protected.HandleFunc("DELETE /v1/tracks/{id}", func(w http.ResponseWriter, r *http.Request) {
		handleDeleteTrack(deps, w, r)
	})
	protected.HandleFunc("POST /v1/tracks/{id}/audio", func(w http.ResponseWriter, r *http.Request) {
		handleMediaUpload(deps, w, r, storage.KindAudio)
	})
	protected.HandleFunc("POST /v1/tracks/{id}/cover", func(w http.ResponseWriter, r *http.Request) {
		handleMediaUpload(deps, w, r, storage.KindCover)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /v1/tracks", protectedHandler)
	mux.Handle("DELETE /v1/tracks/{id}", protectedHandler)
	mux.Handle("POST /v1/tracks/{id}/audio", protectedHandler)
	mux.Handle("POST /v1/tracks/{id}/cover", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func CheckObjectStoreConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.ObjectStore.Endpoint == "" {
			return errors.New("object store endpoint is not configured")
		}
		if cfg.ObjectStore.Bucket == "" {
			return errors.New("object store bucket is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
