package sentiment

import (
	"context"
	"log/slog"
	"time"

	"movie-review-backend/internal/domain"
	"movie-review-backend/internal/metrics"
)

const (
	DefaultTimeout      = time.Second
	DefaultProbeTimeout = 3 * time.Second

	dependencyName = "model_server"
)

type FlagReader interface {
	AnalysisEnabled() bool
}

// Gateway guards the model server with the admin "model" flag and collapses
// every remote failure into AnalysisUnavailable.
type Gateway struct {
	client       Client
	flags        FlagReader
	timeout      time.Duration
	probeTimeout time.Duration
	log          *slog.Logger
}

func NewGateway(client Client, flags FlagReader, timeout, probeTimeout time.Duration, log *slog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{
		client:       client,
		flags:        flags,
		timeout:      timeout,
		probeTimeout: probeTimeout,
		log:          log.With("dependency", dependencyName),
	}
}

func (g *Gateway) Analyze(ctx context.Context, text string) (domain.SentimentResult, error) {
	if !g.flags.AnalysisEnabled() {
		metrics.DependencyCalls.WithLabelValues(dependencyName, "analyze", "disabled").Inc()
		return domain.SentimentResult{}, domain.AnalysisUnavailable("Model server connection is disabled - analysis cannot be done at this moment", nil)
	}

	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	g.log.Debug("calling model server for sentiment analysis", "text_length", len(text))
	started := time.Now()
	result, err := g.client.Analyze(reqCtx, text)
	metrics.DependencyLatency.WithLabelValues(dependencyName, "analyze").Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.DependencyCalls.WithLabelValues(dependencyName, "analyze", "error").Inc()
		g.log.Warn("sentiment analysis failed", "error", err)
		return domain.SentimentResult{}, domain.AnalysisUnavailable("Model server is down - analysis cannot be done at this moment", err)
	}

	metrics.DependencyCalls.WithLabelValues(dependencyName, "analyze", "ok").Inc()
	g.log.Debug("model server response", "sentiment", result.Sentiment, "score", result.Score, "rating", result.Rating)
	return result, nil
}

// Probe never returns an error; any failure reads as false.
func (g *Gateway) Probe(ctx context.Context) bool {
	if !g.flags.AnalysisEnabled() {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, g.probeTimeout)
	defer cancel()

	status, err := g.client.Health(probeCtx)
	if err != nil {
		metrics.DependencyCalls.WithLabelValues(dependencyName, "probe", "error").Inc()
		g.log.Warn("model server health check failed", "error", err)
		return false
	}
	up := status == "healthy"
	metrics.DependencyCalls.WithLabelValues(dependencyName, "probe", resultLabel(up)).Inc()
	return up
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "down"
}
