package review

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"movie-review-backend/internal/domain"
	"movie-review-backend/internal/metrics"
)

const (
	DefaultLatestLimit = 5
	MaxLatestLimit     = 50

	MessageSubmitted = "Review submitted successfully"
	MessageNotSaved  = "Review was analyzed but could not be saved - database is down. History does not work at this moment."
)

type Analyzer interface {
	Analyze(ctx context.Context, text string) (domain.SentimentResult, error)
}

type Store interface {
	Save(ctx context.Context, review domain.Review) (domain.Review, error)
	FindByMovie(ctx context.Context, movieID string) ([]domain.Review, error)
	FindLatest(ctx context.Context, limit int) ([]domain.Review, error)
}

type FlagReader interface {
	StorageEnabled() bool
}

// Service sequences sentiment analysis (mandatory) and persistence
// (best-effort) for each submission.
type Service struct {
	analyzer Analyzer
	store    Store
	flags    FlagReader
	log      *slog.Logger
	now      func() time.Time
}

func NewService(analyzer Analyzer, store Store, flags FlagReader, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{analyzer: analyzer, store: store, flags: flags, log: log, now: time.Now}
}

func (s *Service) Submit(ctx context.Context, movieID, text string) (domain.SubmissionResult, error) {
	sub, err := domain.NormalizeSubmission(movieID, text)
	if err != nil {
		metrics.Submissions.WithLabelValues(string(domain.OutcomeInvalid)).Inc()
		return domain.SubmissionResult{}, err
	}
	log := s.log.With("movie_id", sub.MovieID)
	log.Info("submitting review")

	sentiment, err := s.analyzer.Analyze(ctx, sub.ReviewText)
	if err != nil {
		metrics.Submissions.WithLabelValues(string(domain.OutcomeRejected)).Inc()
		log.Error("cannot submit review", "error", err)
		if domain.KindOf(err) != domain.KindAnalysisUnavailable {
			return domain.SubmissionResult{}, domain.AnalysisUnavailable("Model server is down - analysis cannot be done at this moment", err)
		}
		return domain.SubmissionResult{}, err
	}

	review := domain.NewReview(sub.MovieID, sub.ReviewText, sentiment, s.now())

	if !s.flags.StorageEnabled() {
		log.Warn("review analyzed but cannot be saved: database connection disabled")
		return s.degraded(review), nil
	}

	saved, err := s.store.Save(ctx, review)
	if err != nil {
		log.Error("database error while saving review", "error", err)
		return s.degraded(review), nil
	}

	metrics.Submissions.WithLabelValues(string(domain.OutcomeSaved)).Inc()
	log.Info("review saved", "review_id", saved.ID, "sentiment", saved.Sentiment, "rating", saved.Rating)
	return domain.SubmissionResult{Success: true, Review: saved, Message: MessageSubmitted}, nil
}

func (s *Service) degraded(review domain.Review) domain.SubmissionResult {
	metrics.Submissions.WithLabelValues(string(domain.OutcomeDegraded)).Inc()
	review.ID = ""
	return domain.SubmissionResult{Success: false, Review: review, Message: MessageNotSaved}
}

func (s *Service) ListByMovie(ctx context.Context, movieID string) ([]domain.Review, error) {
	movieID = strings.TrimSpace(movieID)
	if movieID == "" {
		return nil, domain.ValidationError("Movie ID is required")
	}
	return s.store.FindByMovie(ctx, movieID)
}

// ListLatest falls back to DefaultLatestLimit for n <= 0 and caps n at MaxLatestLimit.
func (s *Service) ListLatest(ctx context.Context, n int) ([]domain.Review, error) {
	if n <= 0 {
		n = DefaultLatestLimit
	}
	if n > MaxLatestLimit {
		n = MaxLatestLimit
	}
	return s.store.FindLatest(ctx, n)
}
