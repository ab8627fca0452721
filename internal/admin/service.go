// Package admin implements the failure-simulation control surface.
package admin

import (
	"context"
	"runtime"
	"time"

	"movie-review-backend/internal/domain"
	"movie-review-backend/internal/health"
)

const ServiceName = "movie-review-backend"

type Flags interface {
	Toggle(ctx context.Context, f domain.Flag) (bool, error)
	Snapshot() map[domain.Flag]bool
}

type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

type ReviewCounter interface {
	Count(ctx context.Context) (int64, error)
	Enabled() bool
}

type OverloadStats interface {
	Workers() int
	RetainedBytes() int64
}

type ToggleResult struct {
	Flag      domain.Flag `json:"flag"`
	Message   string      `json:"message"`
	Value     bool        `json:"value"`
	Timestamp time.Time   `json:"timestamp"`
}

type Status struct {
	Flags       map[domain.Flag]bool `json:"flags"`
	Health      health.Report        `json:"health"`
	ReviewStats domain.ReviewStats   `json:"reviewStats"`
	Timestamp   time.Time            `json:"timestamp"`
}

type MemoryInfo struct {
	AllocBytes     uint64 `json:"allocBytes"`
	HeapInuseBytes uint64 `json:"heapInuseBytes"`
	SysBytes       uint64 `json:"sysBytes"`
	NumGC          uint32 `json:"numGC"`
}

type Info struct {
	Service               string     `json:"service"`
	Version               string     `json:"version"`
	GoVersion             string     `json:"goVersion"`
	Uptime                string     `json:"uptime"`
	NumCPU                int        `json:"numCPU"`
	Goroutines            int        `json:"goroutines"`
	Memory                MemoryInfo `json:"memory"`
	OverloadWorkers       int        `json:"overloadWorkers"`
	OverloadRetainedBytes int64      `json:"overloadRetainedBytes"`
	Timestamp             time.Time  `json:"timestamp"`
}

type Service struct {
	flags    Flags
	health   HealthChecker
	reviews  ReviewCounter
	overload OverloadStats
	version  string
	started  time.Time
	now      func() time.Time
}

func NewService(flags Flags, checker HealthChecker, reviews ReviewCounter, overload OverloadStats, version string) *Service {
	return &Service{
		flags:    flags,
		health:   checker,
		reviews:  reviews,
		overload: overload,
		version:  version,
		started:  time.Now(),
		now:      time.Now,
	}
}

// Toggle flips f. Only an unknown flag is an error.
func (s *Service) Toggle(ctx context.Context, f domain.Flag) (ToggleResult, error) {
	value, err := s.flags.Toggle(ctx, f)
	if err != nil {
		return ToggleResult{}, domain.ValidationError(err.Error())
	}
	return ToggleResult{Flag: f, Message: toggleMessage(f, value), Value: value, Timestamp: s.now().UTC()}, nil
}

func toggleMessage(f domain.Flag, value bool) string {
	switch f {
	case domain.FlagHealth:
		return "Backend health " + onOff(value, "enabled", "disabled")
	case domain.FlagOverload:
		return "Backend overload " + onOff(value, "started", "stopped")
	case domain.FlagDatabase:
		return "Database connection " + onOff(value, "enabled", "disabled")
	case domain.FlagModel:
		return "Model server connection " + onOff(value, "enabled", "disabled")
	}
	return string(f) + " " + onOff(value, "enabled", "disabled")
}

func onOff(v bool, on, off string) string {
	if v {
		return on
	}
	return off
}

func (s *Service) Health(ctx context.Context) health.Report {
	return s.health.Check(ctx)
}

func (s *Service) Status(ctx context.Context) Status {
	return Status{
		Flags:       s.flags.Snapshot(),
		Health:      s.health.Check(ctx),
		ReviewStats: s.ReviewStats(ctx),
		Timestamp:   s.now().UTC(),
	}
}

// ReviewStats reports zero reviews with an error note while storage is down.
func (s *Service) ReviewStats(ctx context.Context) domain.ReviewStats {
	if !s.reviews.Enabled() {
		return domain.ReviewStats{Error: "Database connection is disabled"}
	}
	n, err := s.reviews.Count(ctx)
	if err != nil {
		return domain.ReviewStats{Error: "Database is down"}
	}
	return domain.ReviewStats{TotalReviews: n, DatabaseConnected: true}
}

func (s *Service) Info() Info {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	info := Info{
		Service:    ServiceName,
		Version:    s.version,
		GoVersion:  runtime.Version(),
		Uptime:     s.now().Sub(s.started).Round(time.Second).String(),
		NumCPU:     runtime.NumCPU(),
		Goroutines: runtime.NumGoroutine(),
		Memory: MemoryInfo{
			AllocBytes:     mem.Alloc,
			HeapInuseBytes: mem.HeapInuse,
			SysBytes:       mem.Sys,
			NumGC:          mem.NumGC,
		},
		Timestamp: s.now().UTC(),
	}
	if s.overload != nil {
		info.OverloadWorkers = s.overload.Workers()
		info.OverloadRetainedBytes = s.overload.RetainedBytes()
	}
	return info
}
