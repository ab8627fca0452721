package sentiment

import (
	"encoding/json"
	"fmt"
	"strings"

	"movie-review-backend/internal/domain"
)

const defaultRating = 3.0

// analysisPayload tolerates the extra fields the model server adds
// (confidence, timestamp, text_length, processed_by).
type analysisPayload struct {
	Sentiment *string  `json:"sentiment"`
	Score     *float64 `json:"score"`
	Rating    *float64 `json:"rating"`
}

// ParseAnalysis requires a sentiment label; a missing score reads as 0 and a
// missing rating as 3 stars.
func ParseAnalysis(raw []byte) (domain.SentimentResult, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return domain.SentimentResult{}, fmt.Errorf("empty model server response")
	}

	var p analysisPayload
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
		return domain.SentimentResult{}, fmt.Errorf("unable to parse model server response: %w", err)
	}
	if p.Sentiment == nil || strings.TrimSpace(*p.Sentiment) == "" {
		return domain.SentimentResult{}, fmt.Errorf("invalid response from model server: missing sentiment")
	}

	out := domain.SentimentResult{
		Sentiment: strings.ToLower(strings.TrimSpace(*p.Sentiment)),
		Rating:    defaultRating,
	}
	if p.Score != nil {
		out.Score = *p.Score
	}
	if p.Rating != nil {
		out.Rating = *p.Rating
	}

	if failed := domain.ValidateSentiment(out); len(failed) > 0 {
		return domain.SentimentResult{}, fmt.Errorf("invalid response from model server: %v", failed)
	}
	return out, nil
}
