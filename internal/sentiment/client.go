package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"movie-review-backend/internal/domain"
)

const (
	defaultBaseURL = "http://localhost:5000"
	maxBodyBytes   = 1 << 20
)

// Client talks to the model server.
type Client interface {
	Analyze(ctx context.Context, text string) (domain.SentimentResult, error)
	Health(ctx context.Context) (string, error)
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func (c *HTTPClient) Analyze(ctx context.Context, text string) (domain.SentimentResult, error) {
	body, err := json.Marshal(analyzeRequest{Text: text})
	if err != nil {
		return domain.SentimentResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return domain.SentimentResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.SentimentResult{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.SentimentResult{}, err
	}

	if resp.StatusCode >= 400 {
		var parsed errorResponse
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Error != "" {
			return domain.SentimentResult{}, fmt.Errorf("model server request failed: %s", parsed.Error)
		}
		return domain.SentimentResult{}, fmt.Errorf("model server request failed with status %d", resp.StatusCode)
	}

	return ParseAnalysis(respBody)
}

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed healthResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&parsed); err != nil {
		return "", fmt.Errorf("unable to parse model server health: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return parsed.Status, fmt.Errorf("model server health returned status %d", resp.StatusCode)
	}
	return parsed.Status, nil
}
