// Package health derives the overall service status from the runtime flags
// and live dependency probes.
package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"movie-review-backend/internal/domain"
)

// Prober reports dependency reachability. Implementations never error.
type Prober interface {
	Probe(ctx context.Context) bool
}

type FlagReader interface {
	BackendHealthy() bool
	Overloaded() bool
}

type Report struct {
	Status         domain.HealthStatus `json:"status"`
	BackendHealthy bool                `json:"backendHealthy"`
	DatabaseUp     bool                `json:"database"`
	ModelServerUp  bool                `json:"modelServer"`
	Overloaded     bool                `json:"overloaded"`
	Timestamp      time.Time           `json:"timestamp"`
}

type Composer struct {
	flags     FlagReader
	storage   Prober
	sentiment Prober
	now       func() time.Time
}

func NewComposer(flags FlagReader, storage, sentiment Prober) *Composer {
	return &Composer{flags: flags, storage: storage, sentiment: sentiment, now: time.Now}
}

// Check probes both dependencies on every call.
func (c *Composer) Check(ctx context.Context) Report {
	var dbUp, modelUp bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dbUp = c.storage.Probe(gctx)
		return nil
	})
	g.Go(func() error {
		modelUp = c.sentiment.Probe(gctx)
		return nil
	})
	_ = g.Wait()

	healthy := c.flags.BackendHealthy()
	return Report{
		Status:         Compose(healthy, dbUp, modelUp),
		BackendHealthy: healthy,
		DatabaseUp:     dbUp,
		ModelServerUp:  modelUp,
		Overloaded:     c.flags.Overloaded(),
		Timestamp:      c.now().UTC(),
	}
}

func Compose(backendHealthy, databaseUp, modelUp bool) domain.HealthStatus {
	switch {
	case !backendHealthy:
		return domain.HealthUnhealthy
	case databaseUp && modelUp:
		return domain.HealthHealthy
	default:
		return domain.HealthDegraded
	}
}
