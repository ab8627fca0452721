package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"

	"movie-review-backend/internal/config"
	"movie-review-backend/internal/logging"
	"movie-review-backend/internal/storage"
)

func main() {
	command := flag.String("command", "up", "goose command: up, down, status, version")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logging.New(os.Stderr, cfg.LogLevel)
	if cfg.StorageBackend != config.StoragePostgres {
		log.Info("nothing to migrate", "storage", cfg.StorageBackend)
		return
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Error("open postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Error("postgres ping", "error", err)
		os.Exit(1)
	}

	if err := storage.RunMigrations(db, *command, flag.Args()...); err != nil {
		log.Error("migration failed", "command", *command, "error", err)
		os.Exit(1)
	}
	log.Info("migration finished", "command", *command)
}
