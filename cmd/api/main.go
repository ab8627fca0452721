package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"movie-review-backend/internal/admin"
	"movie-review-backend/internal/api"
	"movie-review-backend/internal/config"
	"movie-review-backend/internal/health"
	"movie-review-backend/internal/logging"
	"movie-review-backend/internal/overload"
	"movie-review-backend/internal/review"
	"movie-review-backend/internal/sentiment"
	"movie-review-backend/internal/state"
	"movie-review-backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logging.New(os.Stderr, cfg.LogLevel)

	store, closeStore, err := openStore(cfg, log)
	if err != nil {
		log.Error("open review store", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	simulator := overload.NewSimulator(overload.Config{
		CPUWorkers:    cfg.OverloadCPUWorkers,
		ChunkSize:     cfg.OverloadChunkBytes,
		MaxChunks:     cfg.OverloadMaxChunks,
		AllocInterval: cfg.OverloadAllocInterval,
		StopTimeout:   cfg.OverloadStopTimeout,
	}, log)
	flags := state.New(simulator, log)

	analyzer := sentiment.NewGateway(sentiment.NewHTTPClient(cfg.ModelServerURL), flags, cfg.ModelTimeout, cfg.ModelProbeTimeout, log)
	reviews := storage.NewGateway(store, flags, cfg.StoreTimeout, log)
	composer := health.NewComposer(flags, reviews, analyzer)
	adminSvc := admin.NewService(flags, composer, reviews, simulator, cfg.Version)
	svc := review.NewService(analyzer, reviews, flags, log)

	h := api.NewHandler(svc, adminSvc, flags, reviews, log)
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("api listening", "port", cfg.HTTPPort, "storage", cfg.StorageBackend, "model_server", cfg.ModelServerURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if err := simulator.Stop(shutdownCtx); err != nil {
		log.Warn("overload simulation did not stop cleanly", "error", err)
	}
}

// openStore connects the configured backend and checks it is reachable.
// An unreachable store is logged, not fatal: history stays unavailable until
// it comes back.
func openStore(cfg config.Config, log *slog.Logger) (storage.ReviewStore, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, closeStore, err := newStore(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	if err := store.Ping(ctx); err != nil {
		log.Warn("review store not reachable at startup, history will be unavailable until it is", "backend", cfg.StorageBackend, "error", err)
		return store, closeStore, nil
	}

	if pg, ok := store.(*storage.PostgresStore); ok && cfg.AutoMigrate {
		if err := pg.Migrate(); err != nil {
			closeStore()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return store, closeStore, nil
}

func newStore(ctx context.Context, cfg config.Config, log *slog.Logger) (storage.ReviewStore, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageMinio:
		store, err := storage.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.MinioBucket)
		if err != nil {
			return nil, nil, fmt.Errorf("connect minio: %w", err)
		}
		return store, func() {}, nil
	case config.StorageMemory:
		log.Warn("using in-memory review store; reviews are lost on restart")
		return storage.NewMemoryStore(), func() {}, nil
	default:
		store, err := storage.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	}
}
