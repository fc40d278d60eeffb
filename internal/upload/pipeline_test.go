package upload

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/MonsterTechnoGits/rainbow-stream/internal/storage"
)

func TestUploadAudioReturnsStreamingURL(t *testing.T) {
	store := &recordingStore{}
	pipeline := &Pipeline{Store: store}

	result, err := pipeline.Upload(context.Background(), "story-1", File{
		Name:        "episode.mp3",
		ContentType: "audio/mpeg",
		Size:        3,
		Body:        strings.NewReader("abc"),
	}, storage.KindAudio)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if result.Key != "audio/story-1.mp3" {
		t.Fatalf("Key = %q", result.Key)
	}
	if result.StreamingURL != "/stream/audio%2Fstory-1.mp3" {
		t.Fatalf("StreamingURL = %q", result.StreamingURL)
	}
	if store.lastOpts.Metadata["owner_id"] != "story-1" || store.lastOpts.Metadata["type"] != "audio" {
		t.Fatalf("metadata = %v", store.lastOpts.Metadata)
	}
}

func TestUploadDerivesExtensionDefaults(t *testing.T) {
	store := &recordingStore{}
	pipeline := &Pipeline{Store: store}

	result, err := pipeline.Upload(context.Background(), "story-1", File{
		Name:        "nameless",
		ContentType: "audio/ogg",
		Size:        3,
		Body:        strings.NewReader("abc"),
	}, storage.KindAudio)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if result.Key != "audio/story-1.mp3" {
		t.Fatalf("Key = %q", result.Key)
	}

	result, err = pipeline.Upload(context.Background(), "story-1", File{
		Name:        "",
		ContentType: "image/png",
		Size:        3,
		Body:        strings.NewReader("abc"),
	}, storage.KindCover)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if result.Key != "covers/story-1.jpg" {
		t.Fatalf("Key = %q", result.Key)
	}
}

func TestUploadIsIdempotentByOwner(t *testing.T) {
	store := &recordingStore{}
	pipeline := &Pipeline{Store: store}

	for i := 0; i < 2; i++ {
		result, err := pipeline.Upload(context.Background(), "story-1", File{
			Name:        "take2.mp3",
			ContentType: "audio/mpeg",
			Size:        3,
			Body:        strings.NewReader("abc"),
		}, storage.KindAudio)
		if err != nil {
			t.Fatalf("Upload() error = %v", err)
		}
		if result.Key != "audio/story-1.mp3" {
			t.Fatalf("Key = %q", result.Key)
		}
	}
	if store.putCalls != 2 {
		t.Fatalf("putCalls = %d", store.putCalls)
	}
}

func TestUploadAggregatesAllViolations(t *testing.T) {
	pipeline := &Pipeline{Store: &recordingStore{}}

	_, err := pipeline.Upload(context.Background(), "", File{
		Name:        "track.mp3",
		ContentType: "text/plain",
		Size:        0,
	}, storage.KindAudio)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("error type = %T", err)
	}
	if len(validation.Fields) != 3 {
		t.Fatalf("violations = %d (%v)", len(validation.Fields), validation.Fields)
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	pipeline := &Pipeline{Store: &recordingStore{}, MaxAudioBytes: 10}

	_, err := pipeline.Upload(context.Background(), "story-1", File{
		Name:        "big.mp3",
		ContentType: "audio/mpeg",
		Size:        11,
		Body:        strings.NewReader("aaaaaaaaaaa"),
	}, storage.KindAudio)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("error = %v", err)
	}
}

func TestUploadRejectsDisallowedContentType(t *testing.T) {
	store := &recordingStore{}
	pipeline := &Pipeline{Store: store}

	_, err := pipeline.Upload(context.Background(), "story-1", File{
		Name:        "track.exe",
		ContentType: "application/octet-stream",
		Size:        3,
		Body:        strings.NewReader("abc"),
	}, storage.KindAudio)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("error = %v", err)
	}
	if store.putCalls != 0 {
		t.Fatalf("putCalls = %d", store.putCalls)
	}
}

func TestUploadAcceptsContentTypeParameters(t *testing.T) {
	store := &recordingStore{}
	pipeline := &Pipeline{Store: store}

	_, err := pipeline.Upload(context.Background(), "story-1", File{
		Name:        "track.wav",
		ContentType: "audio/wav; rate=44100",
		Size:        3,
		Body:        strings.NewReader("abc"),
	}, storage.KindAudio)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
}

func TestUploadReportsMetrics(t *testing.T) {
	metrics := &captureUploadMetrics{}
	pipeline := &Pipeline{Store: &recordingStore{}, Metrics: metrics}

	_, err := pipeline.Upload(context.Background(), "story-1", File{
		Name:        "track.mp3",
		ContentType: "audio/mpeg",
		Size:        3,
		Body:        strings.NewReader("abc"),
	}, storage.KindAudio)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if metrics.calls != 1 || metrics.lastFailed || metrics.lastKind != "audio" {
		t.Fatalf("metrics = %+v", metrics)
	}

	_, _ = pipeline.Upload(context.Background(), "", File{}, storage.KindAudio)
	if metrics.calls != 2 || !metrics.lastFailed {
		t.Fatalf("metrics after failure = %+v", metrics)
	}
}

type captureUploadMetrics struct {
	calls      int
	lastKind   string
	lastFailed bool
}

func (c *captureUploadMetrics) UploadCompleted(kind string, _ int64, failed bool) {
	c.calls++
	c.lastKind = kind
	c.lastFailed = failed
}

type recordingStore struct {
	putCalls int
	lastKey  string
	lastOpts storage.PutOptions
	putErr   error
}

func (r *recordingStore) Put(_ context.Context, key string, body io.Reader, size int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	r.putCalls++
	r.lastKey = key
	r.lastOpts = opts
	if r.putErr != nil {
		return storage.ObjectInfo{}, r.putErr
	}
	if body != nil {
		_, _ = io.Copy(io.Discard, body)
	}
	return storage.ObjectInfo{Key: key, Size: size, ETag: "etag", ContentType: opts.ContentType}, nil
}

func (r *recordingStore) Get(context.Context, string, *storage.ByteRange) (io.ReadCloser, error) {
	return nil, storage.ErrObjectNotFound
}

func (r *recordingStore) Stat(context.Context, string) (storage.ObjectInfo, error) {
	return storage.ObjectInfo{}, storage.ErrObjectNotFound
}

func (r *recordingStore) Exists(context.Context, string) (bool, error) {
	return false, nil
}

func (r *recordingStore) Delete(context.Context, string) error {
	return nil
}
