package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	cfg, err := Load("rainbow-stream-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.WriteTimeout != 0 {
		t.Fatalf("HTTP.WriteTimeout = %v, want 0 for streaming", cfg.HTTP.WriteTimeout)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Auth.Required {
		t.Fatal("Auth.Required should default to false in dev")
	}
	if cfg.ObjectStore.Endpoint != "localhost:9000" {
		t.Fatalf("ObjectStore.Endpoint = %q", cfg.ObjectStore.Endpoint)
	}
	if cfg.Media.MaxAudioBytes != 100<<20 {
		t.Fatalf("Media.MaxAudioBytes = %d", cfg.Media.MaxAudioBytes)
	}
	if cfg.Media.CacheMaxAge != time.Hour {
		t.Fatalf("Media.CacheMaxAge = %v", cfg.Media.CacheMaxAge)
	}
	if cfg.Catalog.MaxOpenConns != 20 {
		t.Fatalf("Catalog.MaxOpenConns = %d", cfg.Catalog.MaxOpenConns)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	cfg, err := Load("rainbow-stream-api", mapLookup(map[string]string{
		"RAINBOW_HTTP_ADDR":             ":9090",
		"RAINBOW_OBJECTSTORE_BUCKET":    "media-test",
		"RAINBOW_MEDIA_MAX_AUDIO_BYTES": "1048576",
		"RAINBOW_MEDIA_STAT_TIMEOUT":    "2s",
		"RAINBOW_LOG_LEVEL":             "error",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Address != ":9090" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.ObjectStore.Bucket != "media-test" {
		t.Fatalf("ObjectStore.Bucket = %q", cfg.ObjectStore.Bucket)
	}
	if cfg.Media.MaxAudioBytes != 1048576 {
		t.Fatalf("Media.MaxAudioBytes = %d", cfg.Media.MaxAudioBytes)
	}
	if cfg.Media.StatTimeout != 2*time.Second {
		t.Fatalf("Media.StatTimeout = %v", cfg.Media.StatTimeout)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadRejectsInvalidProfile(t *testing.T) {
	_, err := Load("rainbow-stream-api", mapLookup(map[string]string{
		"RAINBOW_PROFILE": "staging",
	}))
	if err == nil {
		t.Fatal("expected invalid profile error")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	_, err := Load("rainbow-stream-api", mapLookup(map[string]string{
		"RAINBOW_HTTP_READ_TIMEOUT": "not-a-duration",
	}))
	if err == nil {
		t.Fatal("expected invalid duration error")
	}
}

func TestProdProfileRequiresCredentials(t *testing.T) {
	_, err := Load("rainbow-stream-api", mapLookup(map[string]string{
		"RAINBOW_PROFILE": "prod",
	}))
	if err == nil {
		t.Fatal("expected missing credentials error in prod")
	}

	cfg, err := Load("rainbow-stream-api", mapLookup(map[string]string{
		"RAINBOW_PROFILE":                "prod",
		"RAINBOW_OBJECTSTORE_ACCESS_KEY": "key",
		"RAINBOW_OBJECTSTORE_SECRET_KEY": "secret",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required should default to true in prod")
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("UseSSL should default to true in prod")
	}
	if cfg.ObjectStore.AutoCreateBucket {
		t.Fatal("AutoCreateBucket should default to false in prod")
	}
}

func TestLoadRejectsMissingBucket(t *testing.T) {
	_, err := Load("rainbow-stream-api", mapLookup(map[string]string{
		"RAINBOW_OBJECTSTORE_BUCKET": "   ",
	}))
	if err == nil {
		t.Fatal("expected missing bucket error")
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
