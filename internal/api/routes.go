package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"movie-review-backend/internal/domain"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/reviews", func(r chi.Router) {
		r.Use(h.requireHealthy)
		r.Post("/", h.SubmitReview)
		r.Post("/submit", h.SubmitReview)
		r.Get("/latest", h.LatestReviews)
		r.Get("/stats", h.ReviewStats)
		r.Get("/{movieId}", func(w http.ResponseWriter, r *http.Request) {
			h.ReviewsByMovie(w, r, chi.URLParam(r, "movieId"))
		})
	})

	// Admin routes stay reachable while unhealthy so the override can be reverted.
	r.Route("/api/admin", func(r chi.Router) {
		r.Get("/health", h.AdminHealth)
		r.Post("/toggle-health", h.Toggle(domain.FlagHealth))
		r.Post("/toggle-overload", h.Toggle(domain.FlagOverload))
		r.Post("/toggle-database", h.Toggle(domain.FlagDatabase))
		r.Post("/toggle-model", h.Toggle(domain.FlagModel))
		r.Get("/status", h.AdminStatus)
		r.Get("/info", h.AdminInfo)
	})

	return r
}
