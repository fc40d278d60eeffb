package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/MonsterTechnoGits/rainbow-stream/internal/stream"
)

func handleStream(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Streams == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "STREAMING_NOT_CONFIGURED", "streaming dependencies are not configured", false, nil)
		return
	}

	// EscapedPath keeps percent-encoded separators intact so keys that were
	// escaped into a single path segment survive the round trip.
	key, ok := stream.ResolveKey(r.URL.EscapedPath())
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "file not found"})
		return
	}

	desc := deps.Streams.Build(r.Context(), key, r.Header.Get("Range"))
	for name, value := range desc.Headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(desc.Status)
	if desc.Body == nil {
		return
	}
	defer func() { _ = desc.Body.Close() }()

	if _, err := io.Copy(w, desc.Body); err != nil {
		// Headers are already on the wire; returning short of the declared
		// Content-Length makes the server drop the connection so the client
		// sees a truncated stream instead of a silently incomplete 200.
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "stream copy aborted",
				slog.String("key", key),
				slog.Any("error", err),
			)
		}
	}
}
