package upload

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/MonsterTechnoGits/rainbow-stream/internal/storage"
	"github.com/MonsterTechnoGits/rainbow-stream/internal/stream"
)

const (
	DefaultMaxAudioBytes int64 = 100 << 20
	DefaultMaxImageBytes int64 = 10 << 20
)

var allowedContentTypes = map[storage.MediaKind]map[string]struct{}{
	storage.KindAudio: {
		"audio/mpeg": {},
		"audio/mp4":  {},
		"audio/aac":  {},
		"audio/ogg":  {},
		"audio/wav":  {},
		"audio/flac": {},
	},
	storage.KindCover: {
		"image/jpeg": {},
		"image/png":  {},
		"image/webp": {},
	},
}

var defaultExtensions = map[storage.MediaKind]string{
	storage.KindAudio: "mp3",
	storage.KindCover: "jpg",
}

type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Result struct {
	Key          string
	ETag         string
	StreamingURL string
}

// FieldError names one violated constraint of the inbound payload.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every violation found at the boundary so the
// caller sees the full list at once instead of one failure per attempt.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid upload: " + strings.Join(parts, "; ")
}

type Metrics interface {
	UploadCompleted(kind string, bytesStored int64, failed bool)
}

type NopMetrics struct{}

func (NopMetrics) UploadCompleted(string, int64, bool) {}

// Pipeline validates an inbound media file, derives its deterministic key,
// writes it to the object store, and hands back the proxy streaming URL.
type Pipeline struct {
	Store         storage.ObjectStore
	Metrics       Metrics
	MaxAudioBytes int64
	MaxImageBytes int64
}

func (p *Pipeline) Upload(ctx context.Context, ownerID string, file File, kind storage.MediaKind) (Result, error) {
	if err := p.validate(ownerID, file, kind); err != nil {
		p.observe(kind, 0, true)
		return Result{}, err
	}

	key, err := storage.BuildMediaKey(kind, ownerID, extensionFor(file.Name, kind))
	if err != nil {
		p.observe(kind, 0, true)
		return Result{}, err
	}

	info, err := p.Store.Put(ctx, key, file.Body, file.Size, storage.PutOptions{
		ContentType: file.ContentType,
		Metadata: map[string]string{
			"type":     string(kind),
			"owner_id": ownerID,
		},
	})
	if err != nil {
		p.observe(kind, 0, true)
		return Result{}, fmt.Errorf("store upload %q: %w", key, err)
	}

	p.observe(kind, info.Size, false)
	return Result{Key: key, ETag: info.ETag, StreamingURL: stream.StreamingPath(key)}, nil
}

func (p *Pipeline) validate(ownerID string, file File, kind storage.MediaKind) error {
	var fields []FieldError

	if !kind.Valid() {
		fields = append(fields, FieldError{Field: "kind", Message: fmt.Sprintf("must be %q or %q", storage.KindAudio, storage.KindCover)})
	}
	if strings.TrimSpace(ownerID) == "" {
		fields = append(fields, FieldError{Field: "owner_id", Message: "is required"})
	}
	if file.Body == nil || file.Size <= 0 {
		fields = append(fields, FieldError{Field: "file", Message: "must not be empty"})
	}
	if kind.Valid() {
		if limit := p.sizeLimit(kind); file.Size > limit {
			fields = append(fields, FieldError{Field: "file", Message: fmt.Sprintf("exceeds the %d byte limit", limit)})
		}
		if _, ok := allowedContentTypes[kind][normalizeContentType(file.ContentType)]; !ok {
			fields = append(fields, FieldError{Field: "content_type", Message: fmt.Sprintf("%q is not allowed for %s uploads", file.ContentType, kind)})
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (p *Pipeline) sizeLimit(kind storage.MediaKind) int64 {
	if kind == storage.KindCover {
		if p.MaxImageBytes > 0 {
			return p.MaxImageBytes
		}
		return DefaultMaxImageBytes
	}
	if p.MaxAudioBytes > 0 {
		return p.MaxAudioBytes
	}
	return DefaultMaxAudioBytes
}

func (p *Pipeline) observe(kind storage.MediaKind, bytesStored int64, failed bool) {
	if p.Metrics == nil {
		return
	}
	p.Metrics.UploadCompleted(string(kind), bytesStored, failed)
}

func extensionFor(filename string, kind storage.MediaKind) string {
	ext := strings.TrimPrefix(path.Ext(strings.TrimSpace(filename)), ".")
	if ext == "" {
		return defaultExtensions[kind]
	}
	return strings.ToLower(ext)
}

func normalizeContentType(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if idx := strings.Index(value, ";"); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	return value
}
