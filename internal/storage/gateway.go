package storage

import (
	"context"
	"log/slog"
	"time"

	"movie-review-backend/internal/domain"
	"movie-review-backend/internal/metrics"
)

const (
	DefaultTimeout = 2 * time.Second

	dependencyName = "database"
)

// ReviewStore is implemented by PostgresStore, MinioStore and MemoryStore.
type ReviewStore interface {
	Ping(ctx context.Context) error
	Insert(ctx context.Context, review domain.Review) (domain.Review, error)
	FindByMovie(ctx context.Context, movieID string) ([]domain.Review, error)
	FindLatest(ctx context.Context, limit int) ([]domain.Review, error)
	Count(ctx context.Context) (int64, error)
}

var (
	_ ReviewStore = (*PostgresStore)(nil)
	_ ReviewStore = (*MinioStore)(nil)
	_ ReviewStore = (*MemoryStore)(nil)
)

type FlagReader interface {
	StorageEnabled() bool
}

type Gateway struct {
	store   ReviewStore
	flags   FlagReader
	timeout time.Duration
	log     *slog.Logger
}

func NewGateway(store ReviewStore, flags FlagReader, timeout time.Duration, log *slog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{store: store, flags: flags, timeout: timeout, log: log.With("dependency", dependencyName)}
}

func (g *Gateway) Enabled() bool {
	return g.flags.StorageEnabled()
}

func (g *Gateway) FindByMovie(ctx context.Context, movieID string) ([]domain.Review, error) {
	if !g.Enabled() {
		metrics.DependencyCalls.WithLabelValues(dependencyName, "find_by_movie", "disabled").Inc()
		return nil, domain.StorageUnavailable("Database connection is disabled - review history is not available", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	items, err := g.store.FindByMovie(ctx, movieID)
	g.observe("find_by_movie", started, err)
	if err != nil {
		g.log.Error("database error while fetching reviews", "movie_id", movieID, "error", err)
		return nil, domain.StorageUnavailable("Database is down - review history does not work at this moment", err)
	}
	g.log.Debug("fetched reviews", "movie_id", movieID, "count", len(items))
	return items, nil
}

func (g *Gateway) FindLatest(ctx context.Context, limit int) ([]domain.Review, error) {
	if !g.Enabled() {
		metrics.DependencyCalls.WithLabelValues(dependencyName, "find_latest", "disabled").Inc()
		return nil, domain.StorageUnavailable("Database connection is disabled - latest reviews are not available", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	items, err := g.store.FindLatest(ctx, limit)
	g.observe("find_latest", started, err)
	if err != nil {
		g.log.Error("database error while fetching latest reviews", "error", err)
		return nil, domain.StorageUnavailable("Database is down - latest reviews are not available", err)
	}
	return items, nil
}

// Save does not swallow store errors; the caller decides how to degrade.
func (g *Gateway) Save(ctx context.Context, review domain.Review) (domain.Review, error) {
	if !g.Enabled() {
		return domain.Review{}, domain.StorageUnavailable("Database connection is disabled", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	saved, err := g.store.Insert(ctx, review)
	g.observe("save", started, err)
	if err != nil {
		return domain.Review{}, err
	}
	return saved, nil
}

func (g *Gateway) Count(ctx context.Context) (int64, error) {
	if !g.Enabled() {
		return 0, domain.StorageUnavailable("Database connection is disabled", nil)
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	n, err := g.store.Count(ctx)
	if err != nil {
		return 0, domain.StorageUnavailable("Database unavailable", err)
	}
	return n, nil
}

// Probe never returns an error; any failure reads as false.
func (g *Gateway) Probe(ctx context.Context) bool {
	if !g.Enabled() {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	_, err := g.store.Count(ctx)
	g.observe("probe", started, err)
	if err != nil {
		g.log.Warn("database health check failed", "error", err)
		return false
	}
	return true
}

func (g *Gateway) observe(op string, started time.Time, err error) {
	metrics.DependencyLatency.WithLabelValues(dependencyName, op).Observe(time.Since(started).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.DependencyCalls.WithLabelValues(dependencyName, op, result).Inc()
}
