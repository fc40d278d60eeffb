package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MonsterTechnoGits/rainbow-stream/internal/storage"
)

const (
	defaultStatTimeout = 5 * time.Second
	defaultCacheMaxAge = time.Hour
)

// Descriptor is the fully-computed HTTP outcome for one streaming request.
// Body is lazy: the transport pulls bytes and must Close it, which also
// releases the underlying store connection.
type Descriptor struct {
	Status        int
	Headers       map[string]string
	Body          io.ReadCloser
	ContentLength int64
}

// Streamer turns an object key plus an optional Range header into a
// Descriptor. It is read-only with respect to the store and safe for
// arbitrary concurrent use.
type Streamer struct {
	Store       storage.ObjectStore
	Logger      *slog.Logger
	Metrics     Metrics
	StatTimeout time.Duration
	CacheMaxAge time.Duration
}

// Build resolves metadata, validates the range, and opens the byte source.
// Every outcome, including store failures, is expressed as a response
// descriptor; no store error escapes this boundary.
func (s *Streamer) Build(ctx context.Context, key, rangeHeader string) Descriptor {
	start := time.Now()

	statCtx, cancel := context.WithTimeout(ctx, s.statTimeout())
	info, err := s.Store.Stat(statCtx, key)
	cancel()
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return s.errorDescriptor(http.StatusNotFound, "file not found", start)
		}
		s.logError(ctx, "stat object failed", key, err)
		return s.errorDescriptor(http.StatusServiceUnavailable, "storage temporarily unavailable", start)
	}

	result := ParseRange(rangeHeader, info.Size)
	switch result.Kind {
	case RangeUnsatisfiable:
		desc := Descriptor{
			Status: http.StatusRequestedRangeNotSatisfiable,
			Headers: map[string]string{
				"Content-Range": fmt.Sprintf("bytes */%d", info.Size),
				"Content-Type":  "text/plain",
			},
		}
		s.observe(desc.Status, 0, start)
		return desc

	case RangeSatisfiable:
		rng := storage.ByteRange{Start: result.Start, End: result.End}
		body, err := s.Store.Get(ctx, key, &rng)
		if err != nil {
			return s.getFailureDescriptor(ctx, key, err, start)
		}
		headers := s.baseHeaders(info)
		headers["Content-Range"] = fmt.Sprintf("bytes %d-%d/%d", rng.Start, rng.End, info.Size)
		headers["Content-Length"] = strconv.FormatInt(rng.Length(), 10)
		return Descriptor{
			Status:        http.StatusPartialContent,
			Headers:       headers,
			Body:          s.meterBody(body, http.StatusPartialContent, start),
			ContentLength: rng.Length(),
		}

	default:
		body, err := s.Store.Get(ctx, key, nil)
		if err != nil {
			return s.getFailureDescriptor(ctx, key, err, start)
		}
		headers := s.baseHeaders(info)
		headers["Content-Length"] = strconv.FormatInt(info.Size, 10)
		return Descriptor{
			Status:        http.StatusOK,
			Headers:       headers,
			Body:          s.meterBody(body, http.StatusOK, start),
			ContentLength: info.Size,
		}
	}
}

func (s *Streamer) baseHeaders(info storage.ObjectInfo) map[string]string {
	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return map[string]string{
		"Content-Type":  contentType,
		"Accept-Ranges": "bytes",
		"Cache-Control": fmt.Sprintf("public, max-age=%d", int(s.cacheMaxAge().Seconds())),
		"ETag":          strconv.Quote(info.Key),
	}
}

func (s *Streamer) getFailureDescriptor(ctx context.Context, key string, err error, start time.Time) Descriptor {
	if errors.Is(err, storage.ErrObjectNotFound) {
		return s.errorDescriptor(http.StatusNotFound, "file not found", start)
	}
	s.logError(ctx, "open object stream failed", key, err)
	return s.errorDescriptor(http.StatusServiceUnavailable, "storage temporarily unavailable", start)
}

func (s *Streamer) errorDescriptor(status int, message string, start time.Time) Descriptor {
	payload, _ := json.Marshal(map[string]string{"error": message})
	s.observe(status, 0, start)
	return Descriptor{
		Status: status,
		Headers: map[string]string{
			"Content-Type":   "application/json",
			"Content-Length": strconv.Itoa(len(payload)),
		},
		Body:          io.NopCloser(bytes.NewReader(payload)),
		ContentLength: int64(len(payload)),
	}
}

func (s *Streamer) meterBody(body io.ReadCloser, status int, start time.Time) io.ReadCloser {
	return &meteredBody{
		inner:   body,
		status:  status,
		started: start,
		observe: s.observe,
	}
}

func (s *Streamer) observe(status int, bytesSent int64, start time.Time) {
	if s.Metrics == nil {
		return
	}
	s.Metrics.StreamServed(status, bytesSent, time.Since(start))
}

func (s *Streamer) logError(ctx context.Context, msg, key string, err error) {
	if s.Logger == nil {
		return
	}
	s.Logger.ErrorContext(ctx, msg, slog.String("key", key), slog.Any("error", err))
}

func (s *Streamer) statTimeout() time.Duration {
	if s.StatTimeout > 0 {
		return s.StatTimeout
	}
	return defaultStatTimeout
}

func (s *Streamer) cacheMaxAge() time.Duration {
	if s.CacheMaxAge > 0 {
		return s.CacheMaxAge
	}
	return defaultCacheMaxAge
}

// meteredBody counts bytes handed to the transport and reports the stream
// once on Close, whether the body was drained or abandoned mid-flight.
type meteredBody struct {
	inner   io.ReadCloser
	status  int
	started time.Time
	read    int64
	once    sync.Once
	observe func(status int, bytesSent int64, start time.Time)
}

func (m *meteredBody) Read(p []byte) (int, error) {
	n, err := m.inner.Read(p)
	m.read += int64(n)
	return n, err
}

func (m *meteredBody) Close() error {
	err := m.inner.Close()
	m.once.Do(func() {
		m.observe(m.status, m.read, m.started)
	})
	return err
}
