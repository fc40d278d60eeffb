package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MonsterTechnoGits/rainbow-stream/internal/auth"
	"github.com/MonsterTechnoGits/rainbow-stream/internal/catalog"
	"github.com/MonsterTechnoGits/rainbow-stream/internal/storage"
	"github.com/MonsterTechnoGits/rainbow-stream/internal/upload"
)

// maxMultipartMemory bounds the in-memory portion of multipart parsing; larger
// file parts spill to temp files.
const maxMultipartMemory = 16 << 20

func handleMediaUpload(deps Dependencies, w http.ResponseWriter, r *http.Request, kind storage.MediaKind) {
	if deps.Uploader == nil || deps.Tracks == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "UPLOAD_NOT_CONFIGURED", "upload dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleUploader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
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

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_MULTIPART", "request body must be multipart form data", false, map[string]any{"details": err.Error()})
		return
	}
	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "FILE_PART_REQUIRED", "multipart field \"file\" is required", false, nil)
		return
	}
	defer part.Close()

	file := upload.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        part,
	}

	result, err := deps.Uploader.Upload(r.Context(), track.TrackID, file, kind)
	if err != nil {
		var validationErr *upload.ValidationError
		if errors.As(err, &validationErr) {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_UPLOAD", "upload failed validation", false, map[string]any{"violations": validationErr.Fields})
			return
		}
		writeError(r.Context(), w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "object store rejected the upload", true, map[string]any{"details": err.Error()})
		return
	}

	switch kind {
	case storage.KindAudio:
		err = deps.Tracks.UpdateTrackAudioKey(r.Context(), track.TrackID, result.Key)
	case storage.KindCover:
		err = deps.Tracks.UpdateTrackCoverKey(r.Context(), track.TrackID, result.Key)
	}
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "CATALOG_ERROR", "uploaded object could not be linked to the track", true, map[string]any{"details": err.Error(), "key": result.Key})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"track_id":      track.TrackID,
		"key":           result.Key,
		"streaming_url": result.StreamingURL,
	})
}
