package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MonsterTechnoGits/rainbow-stream/internal/api"
	"github.com/MonsterTechnoGits/rainbow-stream/internal/auth"
	catalogpostgres "github.com/MonsterTechnoGits/rainbow-stream/internal/catalog/postgres"
	"github.com/MonsterTechnoGits/rainbow-stream/internal/config"
	"github.com/MonsterTechnoGits/rainbow-stream/internal/observability"
	s3store "github.com/MonsterTechnoGits/rainbow-stream/internal/storage/s3"
	"github.com/MonsterTechnoGits/rainbow-stream/internal/stream"
	"github.com/MonsterTechnoGits/rainbow-stream/internal/upload"
)

func main() {
	cfg, err := config.LoadFromEnv("rainbow-stream-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	catalogDB, err := catalogpostgres.Open(context.Background(), catalogpostgres.DBConfig{
		DSN:             cfg.Catalog.DSN,
		MaxOpenConns:    cfg.Catalog.MaxOpenConns,
		MaxIdleConns:    cfg.Catalog.MaxIdleConns,
		ConnMaxIdleTime: cfg.Catalog.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Catalog.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open catalog db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = catalogDB.Close() }()

	catalogRepo := catalogpostgres.NewRepository(catalogDB)
	objectStore, err := s3store.New(context.Background(), s3store.Config{
		Endpoint:         cfg.ObjectStore.Endpoint,
		Region:           cfg.ObjectStore.Region,
		Bucket:           cfg.ObjectStore.Bucket,
		AccessKeyID:      cfg.ObjectStore.AccessKeyID,
		SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
		UseSSL:           cfg.ObjectStore.UseSSL,
		Prefix:           cfg.ObjectStore.Prefix,
		AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
	})
	if err != nil {
		logger.Error("failed to initialize object store", slog.Any("error", err))
		os.Exit(1)
	}

	collector := observability.Collector{}
	streamer := &stream.Streamer{
		Store:       objectStore,
		Logger:      logger,
		Metrics:     collector,
		StatTimeout: cfg.Media.StatTimeout,
		CacheMaxAge: cfg.Media.CacheMaxAge,
	}
	uploader := &upload.Pipeline{
		Store:         objectStore,
		Metrics:       collector,
		MaxAudioBytes: cfg.Media.MaxAudioBytes,
		MaxImageBytes: cfg.Media.MaxImageBytes,
	}

	deps := api.Dependencies{
		Logger:   logger,
		Streams:  streamer,
		Uploader: uploader,
		Tracks:   catalogRepo,
		Readiness: api.CombineReadinessChecks(
			catalogRepo.HealthCheck,
			api.CheckObjectStoreConfig(cfg),
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:        cfg.HTTP.Address,
		Handler:     handler,
		ReadTimeout: cfg.HTTP.ReadTimeout,
		// WriteTimeout stays at its configured zero default; a bounded write
		// timeout would cut long audio streams mid-body.
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
