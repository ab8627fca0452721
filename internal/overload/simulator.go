package overload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"movie-review-backend/internal/metrics"
)

const (
	defaultCPUWorkers    = 3
	defaultCPUIterations = 1_000_000
	defaultCPUPause      = 10 * time.Millisecond
	defaultChunkSize     = 1 << 20
	defaultMaxChunks     = 50
	defaultAllocInterval = 100 * time.Millisecond
	defaultStopTimeout   = 2 * time.Second

	// cancellation is polled this often inside a CPU burn
	checkEvery = 1 << 14
)

type Config struct {
	CPUWorkers    int
	CPUIterations int
	CPUPause      time.Duration
	ChunkSize     int
	MaxChunks     int
	AllocInterval time.Duration
	StopTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.CPUWorkers <= 0 {
		c.CPUWorkers = defaultCPUWorkers
	}
	if c.CPUIterations <= 0 {
		c.CPUIterations = defaultCPUIterations
	}
	if c.CPUPause <= 0 {
		c.CPUPause = defaultCPUPause
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = defaultChunkSize
	}
	if c.MaxChunks <= 0 {
		c.MaxChunks = defaultMaxChunks
	}
	if c.AllocInterval <= 0 {
		c.AllocInterval = defaultAllocInterval
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = defaultStopTimeout
	}
	return c
}

// Simulator burns CPU and holds a bounded amount of memory while running.
// Workers never touch locks used by request handling.
type Simulator struct {
	cfg Config
	log *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// draining is the done channel of a pool that outlived its Stop.
	draining chan struct{}

	workers  atomic.Int32
	retained atomic.Int64
	sink     atomic.Uint64

	// allocate is replaced in tests to simulate allocation failure.
	allocate func(size int) []byte
}

func NewSimulator(cfg Config, log *slog.Logger) *Simulator {
	if log == nil {
		log = slog.Default()
	}
	return &Simulator{
		cfg:      cfg.withDefaults(),
		log:      log,
		allocate: func(size int) []byte { return make([]byte, size) },
	}
}

func (s *Simulator) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	if s.draining != nil {
		<-s.draining
		s.draining = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.cfg.CPUWorkers; i++ {
		g.Go(func() error { return s.runCPU(gctx) })
	}
	g.Go(func() error { return s.runMemory(gctx) })

	done := make(chan struct{})
	go func() {
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("overload worker exited with error", "error", err)
		}
		close(done)
	}()

	s.cancel = cancel
	s.done = done
	s.log.Info("overload simulation started", "cpu_workers", s.cfg.CPUWorkers, "max_retained_bytes", s.cfg.ChunkSize*s.cfg.MaxChunks)
}

// Stop cancels all workers and waits for them up to StopTimeout or ctx.
func (s *Simulator) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return nil
	}

	s.cancel()
	done := s.done
	s.cancel = nil
	s.done = nil

	timer := time.NewTimer(s.cfg.StopTimeout)
	defer timer.Stop()

	var err error
	select {
	case <-done:
	case <-timer.C:
		s.draining = done
		err = fmt.Errorf("overload workers still running after %s", s.cfg.StopTimeout)
	case <-ctx.Done():
		s.draining = done
		err = fmt.Errorf("wait for overload workers: %w", ctx.Err())
	}

	debug.FreeOSMemory()
	s.log.Info("overload simulation stopped", "workers_left", s.Workers())
	return err
}

func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Simulator) Workers() int {
	return int(s.workers.Load())
}

func (s *Simulator) RetainedBytes() int64 {
	return s.retained.Load()
}

func (s *Simulator) enter() {
	metrics.OverloadWorkers.Set(float64(s.workers.Add(1)))
}

func (s *Simulator) exit() {
	metrics.OverloadWorkers.Set(float64(s.workers.Add(-1)))
}

func (s *Simulator) runCPU(ctx context.Context) error {
	s.enter()
	defer s.exit()

	for {
		result, ok := burn(ctx, s.cfg.CPUIterations)
		s.sink.Store(math.Float64bits(result))
		if !ok {
			return nil
		}
		if !sleep(ctx, s.cfg.CPUPause) {
			return nil
		}
	}
}

func burn(ctx context.Context, iterations int) (float64, bool) {
	var result float64
	for j := 0; j < iterations; j++ {
		if j%checkEvery == 0 && ctx.Err() != nil {
			return result, false
		}
		result += math.Sqrt(float64(j)) * math.Sin(float64(j))
	}
	return result, true
}

func (s *Simulator) runMemory(ctx context.Context) error {
	s.enter()
	defer s.exit()

	ring := newChunkRing(s.cfg.MaxChunks)
	defer func() {
		ring.reset()
		s.setRetained(0)
	}()

	for {
		chunk, err := s.tryAllocate(s.cfg.ChunkSize)
		if err != nil {
			s.log.Warn("overload hit memory limit, reducing load", "error", err)
			ring.reset()
			s.setRetained(0)
		} else {
			ring.push(chunk)
			s.setRetained(ring.bytes())
		}
		if !sleep(ctx, s.cfg.AllocInterval) {
			return nil
		}
	}
}

func (s *Simulator) tryAllocate(size int) (chunk []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			chunk = nil
			err = fmt.Errorf("allocate %d bytes: %v", size, r)
		}
	}()
	chunk = s.allocate(size)
	// touch every page so the memory is actually committed
	for i := 0; i < len(chunk); i += 4096 {
		chunk[i] = 1
	}
	return chunk, nil
}

func (s *Simulator) setRetained(n int64) {
	s.retained.Store(n)
	metrics.OverloadRetainedBytes.Set(float64(n))
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
