package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"movie-review-backend/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the embedded goose migrations.
func (s *PostgresStore) Migrate() error {
	return MigrateUp(s.db)
}

func MigrateUp(db *sql.DB) error {
	return RunMigrations(db, "up")
}

// RunMigrations runs a goose command (up, down, status, ...) against the
// embedded migrations.
func RunMigrations(db *sql.DB, command string, args ...string) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Run(command, db, "migrations", args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, review domain.Review) (domain.Review, error) {
	review.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (id, movie_id, review_text, sentiment, sentiment_score, rating, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, review.ID, review.MovieID, review.ReviewText, review.Sentiment, review.SentimentScore, review.Rating, review.CreatedAt)
	if err != nil {
		return domain.Review{}, describePQError("insert review", err)
	}
	return review, nil
}

func (s *PostgresStore) FindByMovie(ctx context.Context, movieID string) ([]domain.Review, error) {
	return s.query(ctx, `
		SELECT id, movie_id, review_text, COALESCE(sentiment, ''), COALESCE(sentiment_score, 0), COALESCE(rating, 0), created_at
		FROM reviews
		WHERE movie_id = $1
		ORDER BY created_at DESC
	`, movieID)
}

func (s *PostgresStore) FindLatest(ctx context.Context, limit int) ([]domain.Review, error) {
	return s.query(ctx, `
		SELECT id, movie_id, review_text, COALESCE(sentiment, ''), COALESCE(sentiment_score, 0), COALESCE(rating, 0), created_at
		FROM reviews
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews`)
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]domain.Review, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, describePQError("query reviews", err)
	}
	defer rows.Close()

	items := make([]domain.Review, 0)
	for rows.Next() {
		var r domain.Review
		if err := rows.Scan(&r.ID, &r.MovieID, &r.ReviewText, &r.Sentiment, &r.SentimentScore, &r.Rating, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.CreatedAt = r.CreatedAt.UTC()
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// describePQError keeps the SQLSTATE in the message so constraint violations
// can be told apart from connectivity failures in logs.
func describePQError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%s: %s (sqlstate %s, class %s): %w", op, pqErr.Message, pqErr.Code, pqErr.Code.Class().Name(), err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
