package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"movie-review-backend/internal/admin"
	"movie-review-backend/internal/domain"
	"movie-review-backend/internal/health"
)

const (
	maxBodyBytes      = 64 << 10
	storageWarning    = "Review analysis completed but storage failed"
	unhealthyResponse = "Backend service is unhealthy"
)

type ReviewService interface {
	Submit(ctx context.Context, movieID, text string) (domain.SubmissionResult, error)
	ListByMovie(ctx context.Context, movieID string) ([]domain.Review, error)
	ListLatest(ctx context.Context, n int) ([]domain.Review, error)
}

type AdminService interface {
	Toggle(ctx context.Context, f domain.Flag) (admin.ToggleResult, error)
	Health(ctx context.Context) health.Report
	Status(ctx context.Context) admin.Status
	Info() admin.Info
	ReviewStats(ctx context.Context) domain.ReviewStats
}

type FlagReader interface {
	BackendHealthy() bool
}

type Prober interface {
	Probe(ctx context.Context) bool
}

type Handler struct {
	reviews ReviewService
	admin   AdminService
	flags   FlagReader
	ready   Prober
	log     *slog.Logger
}

type submitRequest struct {
	MovieID    string `json:"movieId"`
	ReviewText string `json:"reviewText"`
}

// reviewJSON renders a transient review with "id": null.
type reviewJSON struct {
	ID             *string   `json:"id"`
	MovieID        string    `json:"movieId"`
	ReviewText     string    `json:"reviewText"`
	Sentiment      string    `json:"sentiment"`
	SentimentScore float64   `json:"sentimentScore"`
	Rating         float64   `json:"rating"`
	CreatedAt      time.Time `json:"createdAt"`
}

type submitResponse struct {
	Review  reviewJSON `json:"review"`
	Message string     `json:"message"`
	Warning string     `json:"warning,omitempty"`
}

func NewHandler(reviews ReviewService, adminSvc AdminService, flags FlagReader, ready Prober, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{reviews: reviews, admin: adminSvc, flags: flags, ready: ready, log: log}
}

func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSubmit(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}

	res, err := h.reviews.Submit(r.Context(), req.MovieID, req.ReviewText)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if !res.Success {
		writeJSON(w, http.StatusPartialContent, submitResponse{Review: toReviewJSON(res.Review), Message: res.Message, Warning: storageWarning})
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Review: toReviewJSON(res.Review), Message: res.Message})
}

// decodeSubmit reads the JSON body and falls back to query parameters for
// fields the body leaves out.
func decodeSubmit(r *http.Request) (submitRequest, error) {
	var req submitRequest
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		return submitRequest{}, err
	}
	q := r.URL.Query()
	if req.MovieID == "" {
		req.MovieID = q.Get("movieId")
	}
	if req.ReviewText == "" {
		req.ReviewText = q.Get("reviewText")
	}
	return req, nil
}

func (h *Handler) ReviewsByMovie(w http.ResponseWriter, r *http.Request, movieID string) {
	items, err := h.reviews.ListByMovie(r.Context(), movieID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReviewsJSON(items))
}

func (h *Handler) LatestReviews(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "limit must be an integer"})
			return
		}
		limit = n
	}

	items, err := h.reviews.ListLatest(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReviewsJSON(items))
}

func (h *Handler) ReviewStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.admin.ReviewStats(r.Context()))
}

func (h *Handler) AdminHealth(w http.ResponseWriter, r *http.Request) {
	report := h.admin.Health(r.Context())
	status := http.StatusOK
	if report.Status == domain.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Toggle always answers 200 for a known flag, including while unhealthy.
func (h *Handler) Toggle(f domain.Flag) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h.admin.Toggle(r.Context(), f)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *Handler) AdminStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.admin.Status(r.Context()))
}

func (h *Handler) AdminInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.admin.Info())
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if !h.flags.BackendHealthy() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down", "reason": "Backend manually set to unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if !h.ready.Probe(ctx) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// requireHealthy rejects review traffic while the health override is off.
func (h *Handler) requireHealthy(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.flags.BackendHealthy() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": unhealthyResponse})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindAnalysisUnavailable, domain.KindStorageUnavailable:
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "kind", kind, "error", err)
	}
	writeJSON(w, status, map[string]any{"error": domain.PublicMessage(err)})
}

func toReviewJSON(r domain.Review) reviewJSON {
	out := reviewJSON{
		MovieID:        r.MovieID,
		ReviewText:     r.ReviewText,
		Sentiment:      r.Sentiment,
		SentimentScore: r.SentimentScore,
		Rating:         r.Rating,
		CreatedAt:      r.CreatedAt,
	}
	if r.Persisted() {
		id := r.ID
		out.ID = &id
	}
	return out
}

func toReviewsJSON(items []domain.Review) []reviewJSON {
	out := make([]reviewJSON, 0, len(items))
	for _, r := range items {
		out = append(out, toReviewJSON(r))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
