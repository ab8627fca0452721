package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const MaxReviewTextLength = 2000

type Submission struct {
	MovieID    string
	ReviewText string
}

// NormalizeSubmission trims both fields and rejects empty or oversized input.
func NormalizeSubmission(movieID, text string) (Submission, error) {
	movieID = strings.TrimSpace(movieID)
	text = strings.TrimSpace(text)

	if movieID == "" {
		return Submission{}, ValidationError("Movie ID is required")
	}
	if text == "" {
		return Submission{}, ValidationError("Review text is required")
	}
	if utf8.RuneCountInString(text) > MaxReviewTextLength {
		return Submission{}, ValidationError(fmt.Sprintf("Review text must be at most %d characters", MaxReviewTextLength))
	}
	return Submission{MovieID: movieID, ReviewText: text}, nil
}

func ValidateSentiment(r SentimentResult) []string {
	failed := make([]string, 0)

	if !IsKnownSentiment(r.Sentiment) {
		failed = append(failed, "sentiment.label_known")
	}
	if r.Score < MinScore || r.Score > MaxScore {
		failed = append(failed, "sentiment.score_range")
	}
	if r.Rating < MinRating || r.Rating > MaxRating {
		failed = append(failed, "sentiment.rating_range")
	}
	return failed
}
