package review

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"movie-review-backend/internal/domain"
	"movie-review-backend/internal/sentiment"
	"movie-review-backend/internal/state"
	"movie-review-backend/internal/storage"
)

type stubModel struct {
	mu     sync.Mutex
	result domain.SentimentResult
	err    error
	texts  []string
}

func (s *stubModel) Analyze(_ context.Context, text string) (domain.SentimentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	if s.err != nil {
		return domain.SentimentResult{}, s.err
	}
	return s.result, nil
}

func (s *stubModel) Health(context.Context) (string, error) {
	return "healthy", nil
}

func (s *stubModel) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.texts)
}

// brokenStore accepts reads but fails every insert.
type brokenStore struct {
	*storage.MemoryStore
	inserts int
}

func (b *brokenStore) Insert(context.Context, domain.Review) (domain.Review, error) {
	b.inserts++
	return domain.Review{}, errors.New(`pq: value too long for type character varying(2000)`)
}

var _ = Describe("Service.Submit", func() {
	var (
		ctx     context.Context
		flags   *state.Runtime
		model   *stubModel
		mem     *storage.MemoryStore
		service *Service
		fixed   time.Time
	)

	toggle := func(f domain.Flag) {
		_, err := flags.Toggle(ctx, f)
		Expect(err).ToNot(HaveOccurred())
	}

	build := func(store storage.ReviewStore) {
		analyzer := sentiment.NewGateway(model, flags, time.Second, time.Second, nil)
		gateway := storage.NewGateway(store, flags, time.Second, nil)
		service = NewService(analyzer, gateway, flags, nil)
		service.now = func() time.Time { return fixed }
	}

	BeforeEach(func() {
		ctx = context.Background()
		flags = state.New(nil, nil)
		model = &stubModel{result: domain.SentimentResult{Sentiment: "positive", Score: 1.0, Rating: 5.0}}
		mem = storage.NewMemoryStore()
		fixed = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
		build(mem)
	})

	Context("with every dependency up", func() {
		It("saves the review and returns it with an identity", func() {
			res, err := service.Submit(ctx, "m1", "Great movie!")
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Success).To(BeTrue())
			Expect(res.Message).To(ContainSubstring("submitted successfully"))
			Expect(res.Review.ID).ToNot(BeEmpty())
			Expect(res.Review.MovieID).To(Equal("m1"))
			Expect(res.Review.Sentiment).To(Equal("positive"))
			Expect(res.Review.Rating).To(Equal(5.0))
			Expect(res.Review.CreatedAt).To(Equal(fixed))

			listed, err := service.ListByMovie(ctx, "m1")
			Expect(err).ToNot(HaveOccurred())
			Expect(listed).To(HaveLen(1))
			Expect(listed[0].ID).To(Equal(res.Review.ID))
		})

		It("trims inputs before analysing", func() {
			res, err := service.Submit(ctx, "  m1 ", "  Great movie!\n")
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Review.MovieID).To(Equal("m1"))
			Expect(model.texts).To(Equal([]string{"Great movie!"}))
		})
	})

	Context("with invalid input", func() {
		DescribeTable("rejects before any dependency call",
			func(movieID, text string) {
				_, err := service.Submit(ctx, movieID, text)
				Expect(domain.KindOf(err)).To(Equal(domain.KindValidation))
				Expect(model.calls()).To(BeZero())
				n, _ := mem.Count(ctx)
				Expect(n).To(BeZero())
			},
			Entry("empty movie id", "", "Great movie!"),
			Entry("blank movie id", "   ", "Great movie!"),
			Entry("empty text", "m1", ""),
			Entry("blank text", "m1", "\t \n"),
		)
	})

	Context("when analysis is disabled", func() {
		BeforeEach(func() { toggle(domain.FlagModel) })

		It("aborts with AnalysisUnavailable and stores nothing", func() {
			for _, text := range []string{"Great movie!", "Terrible plot", "meh"} {
				res, err := service.Submit(ctx, "m1", text)
				Expect(domain.KindOf(err)).To(Equal(domain.KindAnalysisUnavailable))
				Expect(res).To(Equal(domain.SubmissionResult{}))
			}
			Expect(model.calls()).To(BeZero())
			n, err := mem.Count(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(BeZero())
		})

		It("aborts even when storage is also disabled", func() {
			toggle(domain.FlagDatabase)
			_, err := service.Submit(ctx, "m1", "Great movie!")
			Expect(domain.KindOf(err)).To(Equal(domain.KindAnalysisUnavailable))
		})
	})

	Context("when the model server fails", func() {
		It("surfaces AnalysisUnavailable and skips persistence", func() {
			model.err = errors.New("context deadline exceeded")
			_, err := service.Submit(ctx, "m1", "Great movie!")
			Expect(domain.KindOf(err)).To(Equal(domain.KindAnalysisUnavailable))
			n, _ := mem.Count(ctx)
			Expect(n).To(BeZero())
		})
	})

	Context("when storage is disabled", func() {
		BeforeEach(func() { toggle(domain.FlagDatabase) })

		It("returns a transient review as a degraded success", func() {
			res, err := service.Submit(ctx, "m1", "Great movie!")
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Success).To(BeFalse())
			Expect(res.Review.ID).To(BeEmpty())
			Expect(res.Review.Persisted()).To(BeFalse())
			Expect(res.Review.MovieID).To(Equal("m1"))
			Expect(res.Review.Sentiment).To(Equal("positive"))
			Expect(res.Review.CreatedAt).To(Equal(fixed))
			Expect(res.Message).To(ContainSubstring("could not be saved"))

			toggle(domain.FlagDatabase)
			listed, err := service.ListByMovie(ctx, "m1")
			Expect(err).ToNot(HaveOccurred())
			Expect(listed).To(BeEmpty())
		})

		It("fails reads with StorageUnavailable", func() {
			_, err := service.ListByMovie(ctx, "m1")
			Expect(domain.KindOf(err)).To(Equal(domain.KindStorageUnavailable))
			_, err = service.ListLatest(ctx, 5)
			Expect(domain.KindOf(err)).To(Equal(domain.KindStorageUnavailable))
		})
	})

	Context("when the store rejects the insert", func() {
		It("downgrades the failure instead of returning an error", func() {
			broken := &brokenStore{MemoryStore: storage.NewMemoryStore()}
			build(broken)

			res, err := service.Submit(ctx, "m1", "Great movie!")
			Expect(err).ToNot(HaveOccurred())
			Expect(broken.inserts).To(Equal(1))
			Expect(res.Success).To(BeFalse())
			Expect(res.Review.ID).To(BeEmpty())
			Expect(res.Review.Sentiment).To(Equal("positive"))
			Expect(res.Message).To(Equal(MessageNotSaved))
		})
	})
})

var _ = Describe("Service.ListLatest", func() {
	It("defaults and caps the limit", func() {
		rec := &limitRecorder{}
		service := NewService(&stubModel{}, rec, alwaysEnabled{}, nil)

		_, _ = service.ListLatest(context.Background(), 0)
		_, _ = service.ListLatest(context.Background(), -3)
		_, _ = service.ListLatest(context.Background(), 12)
		_, _ = service.ListLatest(context.Background(), 500)
		Expect(rec.limits).To(Equal([]int{DefaultLatestLimit, DefaultLatestLimit, 12, MaxLatestLimit}))
	})

	It("rejects an empty movie id for history", func() {
		service := NewService(&stubModel{}, &limitRecorder{}, alwaysEnabled{}, nil)
		_, err := service.ListByMovie(context.Background(), " ")
		Expect(domain.KindOf(err)).To(Equal(domain.KindValidation))
	})
})

type alwaysEnabled struct{}

func (alwaysEnabled) StorageEnabled() bool { return true }

type limitRecorder struct {
	limits []int
}

func (l *limitRecorder) Save(_ context.Context, r domain.Review) (domain.Review, error) {
	return r, nil
}

func (l *limitRecorder) FindByMovie(context.Context, string) ([]domain.Review, error) {
	return nil, nil
}

func (l *limitRecorder) FindLatest(_ context.Context, limit int) ([]domain.Review, error) {
	l.limits = append(l.limits, limit)
	return nil, nil
}
