package domain

import (
	"strings"
	"time"
)

const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

const (
	MinRating = 1.0
	MaxRating = 5.0
	MinScore  = -1.0
	MaxScore  = 1.0
)

// Review is transient until a store assigns ID.
type Review struct {
	ID             string    `json:"id,omitempty"`
	MovieID        string    `json:"movieId"`
	ReviewText     string    `json:"reviewText"`
	Sentiment      string    `json:"sentiment"`
	SentimentScore float64   `json:"sentimentScore"`
	Rating         float64   `json:"rating"`
	CreatedAt      time.Time `json:"createdAt"`
}

func NewReview(movieID, text string, sentiment SentimentResult, now time.Time) Review {
	return Review{
		MovieID:        movieID,
		ReviewText:     text,
		Sentiment:      sentiment.Sentiment,
		SentimentScore: sentiment.Score,
		Rating:         sentiment.Rating,
		CreatedAt:      now.UTC(),
	}
}

func (r Review) Persisted() bool {
	return r.ID != ""
}

type SentimentResult struct {
	Sentiment string  `json:"sentiment"`
	Score     float64 `json:"score"`
	Rating    float64 `json:"rating"`
}

func IsKnownSentiment(label string) bool {
	switch strings.ToLower(label) {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	default:
		return false
	}
}

type SubmissionResult struct {
	Success bool   `json:"success"`
	Review  Review `json:"review"`
	Message string `json:"message"`
}

// ReviewStats feeds the admin status view.
type ReviewStats struct {
	TotalReviews      int64  `json:"totalReviews"`
	DatabaseConnected bool   `json:"databaseConnected"`
	Error             string `json:"error,omitempty"`
}
