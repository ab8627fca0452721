// Package state holds the process-wide failure-simulation flags.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"movie-review-backend/internal/domain"
	"movie-review-backend/internal/metrics"
)

// OverloadController is driven by the overload flag.
type OverloadController interface {
	Start()
	Stop(ctx context.Context) error
}

type Runtime struct {
	healthy  atomic.Bool
	overload atomic.Bool
	database atomic.Bool
	model    atomic.Bool

	overloadMu sync.Mutex
	simulator  OverloadController
	log        *slog.Logger
}

func New(simulator OverloadController, log *slog.Logger) *Runtime {
	if log == nil {
		log = slog.Default()
	}
	r := &Runtime{simulator: simulator, log: log}
	r.healthy.Store(true)
	r.database.Store(true)
	r.model.Store(true)
	for _, f := range domain.AllFlags {
		metrics.FlagState.WithLabelValues(string(f)).Set(metrics.BoolValue(r.Get(f)))
	}
	return r
}

func (r *Runtime) flag(f domain.Flag) (*atomic.Bool, error) {
	switch f {
	case domain.FlagHealth:
		return &r.healthy, nil
	case domain.FlagOverload:
		return &r.overload, nil
	case domain.FlagDatabase:
		return &r.database, nil
	case domain.FlagModel:
		return &r.model, nil
	default:
		return nil, fmt.Errorf("unknown flag %q", f)
	}
}

// Get returns false for unknown flags.
func (r *Runtime) Get(f domain.Flag) bool {
	b, err := r.flag(f)
	if err != nil {
		return false
	}
	return b.Load()
}

func (r *Runtime) BackendHealthy() bool  { return r.healthy.Load() }
func (r *Runtime) Overloaded() bool      { return r.overload.Load() }
func (r *Runtime) StorageEnabled() bool  { return r.database.Load() }
func (r *Runtime) AnalysisEnabled() bool { return r.model.Load() }

// Toggle flips f and returns its new value. It never refuses a known flag,
// whatever the current value, so a degraded system can always be restored.
func (r *Runtime) Toggle(ctx context.Context, f domain.Flag) (bool, error) {
	b, err := r.flag(f)
	if err != nil {
		return false, err
	}

	var next bool
	if f == domain.FlagOverload {
		next = r.toggleOverload(ctx)
	} else {
		next = flip(b)
	}

	metrics.AdminToggles.WithLabelValues(string(f)).Inc()
	metrics.FlagState.WithLabelValues(string(f)).Set(metrics.BoolValue(next))
	r.log.Info("runtime flag toggled", "flag", f, "value", next)
	return next, nil
}

func (r *Runtime) toggleOverload(ctx context.Context) bool {
	r.overloadMu.Lock()
	defer r.overloadMu.Unlock()

	next := flip(&r.overload)
	if r.simulator == nil {
		return next
	}
	if next {
		r.simulator.Start()
		return next
	}
	if err := r.simulator.Stop(ctx); err != nil {
		r.log.Warn("overload simulation did not stop cleanly", "error", err)
	}
	return next
}

func (r *Runtime) Snapshot() map[domain.Flag]bool {
	out := make(map[domain.Flag]bool, len(domain.AllFlags))
	for _, f := range domain.AllFlags {
		out[f] = r.Get(f)
	}
	return out
}

func flip(b *atomic.Bool) bool {
	for {
		old := b.Load()
		if b.CompareAndSwap(old, !old) {
			return !old
		}
	}
}
