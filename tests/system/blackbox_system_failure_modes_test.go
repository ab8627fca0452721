//go:build system

package system_test

import (
	"fmt"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("System blackbox failure modes", Ordered, func() {
	var cfg systemTestConfig
	var movieID string

	BeforeAll(func() {
		if os.Getenv("RUN_BLACKBOX_SYSTEM_TEST") != "1" {
			Skip("set RUN_BLACKBOX_SYSTEM_TEST=1 to run real blackbox system test")
		}
		cfg = loadSystemTestConfig()
		movieID = fmt.Sprintf("system-%d", time.Now().UnixNano())

		By("failing fast if infrastructure is unreachable")
		Expect(waitForPostgres(cfg.PostgresDSN, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForHTTPStatus(cfg.ModelHealthURL, http.StatusOK, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForHTTPStatus(cfg.APIBaseURL+"/healthz", http.StatusOK, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForHTTPStatus(cfg.APIBaseURL+"/readyz", http.StatusOK, cfg.PreflightTimeout)).To(Succeed())

		var health healthResponse
		status, err := doJSON(http.MethodGet, cfg.APIBaseURL+"/api/admin/health", nil, &health)
		Expect(err).ToNot(HaveOccurred())
		Expect(status).To(Equal(http.StatusOK))
		Expect(health.Status).To(Equal("healthy"), "all flags must start enabled")
	})

	It("stores a review when every dependency is up", func() {
		status, res, err := submitReview(cfg.APIBaseURL, movieID, "Great movie!")
		Expect(err).ToNot(HaveOccurred())
		Expect(status).To(Equal(http.StatusOK))
		Expect(res.Review.ID).ToNot(BeNil())
		Expect(res.Review.Sentiment).To(BeElementOf("positive", "negative", "neutral"))
		Expect(res.Review.Rating).To(BeNumerically(">=", 1))
		Expect(res.Review.Rating).To(BeNumerically("<=", 5))

		Expect(countRows(cfg.PostgresDSN, movieID)).To(Equal(1))
	})

	It("degrades to a transient review while the database is disabled", func() {
		out, err := toggle(cfg.APIBaseURL, "database")
		Expect(err).ToNot(HaveOccurred())
		Expect(out.Message).To(Equal("Database connection disabled"))
		DeferCleanup(func() {
			_, err := toggle(cfg.APIBaseURL, "database")
			Expect(err).ToNot(HaveOccurred())
		})

		status, res, err := submitReview(cfg.APIBaseURL, movieID, "Still great")
		Expect(err).ToNot(HaveOccurred())
		Expect(status).To(Equal(http.StatusPartialContent))
		Expect(res.Review.ID).To(BeNil())
		Expect(res.Message).To(ContainSubstring("could not be saved"))

		var body map[string]any
		status, err = doJSON(http.MethodGet, cfg.APIBaseURL+"/api/reviews/"+movieID, nil, &body)
		Expect(err).ToNot(HaveOccurred())
		Expect(status).To(Equal(http.StatusServiceUnavailable))

		Expect(countRows(cfg.PostgresDSN, movieID)).To(Equal(1))
	})

	It("rejects submissions while the model server is disabled", func() {
		_, err := toggle(cfg.APIBaseURL, "model")
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(func() {
			_, err := toggle(cfg.APIBaseURL, "model")
			Expect(err).ToNot(HaveOccurred())
		})

		status, res, err := submitReview(cfg.APIBaseURL, movieID, "Would not save")
		Expect(err).ToNot(HaveOccurred())
		Expect(status).To(Equal(http.StatusServiceUnavailable))
		Expect(res.Error).To(ContainSubstring("analysis cannot be done"))

		var health healthResponse
		status, err = doJSON(http.MethodGet, cfg.APIBaseURL+"/api/admin/health", nil, &health)
		Expect(err).ToNot(HaveOccurred())
		Expect(status).To(Equal(http.StatusOK))
		Expect(health.Status).To(Equal("degraded"))
		Expect(health.ModelServerUp).To(BeFalse())

		Expect(countRows(cfg.PostgresDSN, movieID)).To(Equal(1))
	})

	It("answers 503 while unhealthy and recovers through the admin toggle", func() {
		_, err := toggle(cfg.APIBaseURL, "health")
		Expect(err).ToNot(HaveOccurred())

		Expect(waitForHTTPStatus(cfg.APIBaseURL+"/api/reviews/"+movieID, http.StatusServiceUnavailable, 3*time.Second)).To(Succeed())

		out, err := toggle(cfg.APIBaseURL, "health")
		Expect(err).ToNot(HaveOccurred())
		Expect(out.Value).To(BeTrue())
		Expect(waitForHTTPStatus(cfg.APIBaseURL+"/api/reviews/"+movieID, http.StatusOK, 3*time.Second)).To(Succeed())
	})

	It("starts and stops the overload simulation", func() {
		out, err := toggle(cfg.APIBaseURL, "overload")
		Expect(err).ToNot(HaveOccurred())
		Expect(out.Message).To(Equal("Backend overload started"))

		out, err = toggle(cfg.APIBaseURL, "overload")
		Expect(err).ToNot(HaveOccurred())
		Expect(out.Message).To(Equal("Backend overload stopped"))

		var info struct {
			OverloadWorkers int `json:"overloadWorkers"`
		}
		_, err = doJSON(http.MethodGet, cfg.APIBaseURL+"/api/admin/info", nil, &info)
		Expect(err).ToNot(HaveOccurred())
		Expect(info.OverloadWorkers).To(BeZero())
	})
})
