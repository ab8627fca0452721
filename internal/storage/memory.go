package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"movie-review-backend/internal/domain"
)

// MemoryStore is used for local runs without a database and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	reviews []domain.Review
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) Insert(_ context.Context, review domain.Review) (domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	review.ID = uuid.NewString()
	s.reviews = append(s.reviews, review)
	return review, nil
}

func (s *MemoryStore) FindByMovie(_ context.Context, movieID string) ([]domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]domain.Review, 0)
	for i := len(s.reviews) - 1; i >= 0; i-- {
		if s.reviews[i].MovieID == movieID {
			items = append(items, s.reviews[i])
		}
	}
	sortNewestFirst(items)
	return items, nil
}

func (s *MemoryStore) FindLatest(_ context.Context, limit int) ([]domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]domain.Review, 0, len(s.reviews))
	for i := len(s.reviews) - 1; i >= 0; i-- {
		items = append(items, s.reviews[i])
	}
	sortNewestFirst(items)
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *MemoryStore) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.reviews)), nil
}
