package review

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/conorfennell/qbank/internal/domain"
	"github.com/conorfennell/qbank/internal/metrics"
	"github.com/conorfennell/qbank/internal/srs"
	"github.com/conorfennell/qbank/internal/storage"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// memStore is an in-memory Store. writeErr, when set, fails every schedule
// write after apply has run.
type memStore struct {
	mu        sync.Mutex
	questions map[string]domain.Question
	writeErr  error
	listErr   error
}

func newMemStore(qs ...domain.Question) *memStore {
	s := &memStore{questions: make(map[string]domain.Question)}
	for _, q := range qs {
		s.questions[q.ID] = q
	}
	return s
}

func (s *memStore) UpdateSchedule(_ context.Context, accountID, id string, apply func(domain.Question) (domain.Schedule, error)) (*domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[id]
	if !ok || q.AccountID != accountID {
		return nil, fmt.Errorf("question %s: %w", id, domain.ErrNotFound)
	}
	next, err := apply(q)
	if err != nil {
		return nil, err
	}
	if s.writeErr != nil {
		return nil, s.writeErr
	}
	q.Schedule = next
	q.Version++
	s.questions[id] = q
	return &q, nil
}

func (s *memStore) ListQuestions(_ context.Context, f storage.QuestionFilter) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}

	out := []domain.Question{}
	for _, q := range s.questions {
		if q.AccountID != f.AccountID {
			continue
		}
		if f.DueAt != nil && !q.IsDue(*f.DueAt) {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) get(id string) domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions[id]
}

func freshQuestion(id, accountID string, tags ...string) domain.Question {
	return domain.Question{
		ID:           id,
		AccountID:    accountID,
		QuestionText: "question " + id,
		Difficulty:   domain.DefaultDifficulty,
		Tags:         tags,
		CreatedAt:    t0,
		Version:      1,
		Schedule:     domain.Schedule{NextReviewAt: t0, UpdatedAt: t0},
	}
}

func newTestEngine(t *testing.T, store Store, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(store, srs.DefaultParams(), opts...)
	if err != nil {
		t.Fatalf("NewEngine() returned an unexpected error: %v", err)
	}
	return e
}

func TestNewEngineRejectsInvalidParams(t *testing.T) {
	params := srs.DefaultParams()
	params.KnewFactor = 0
	if _, err := NewEngine(newMemStore(), params); !errors.Is(err, srs.ErrInvalidParams) {
		t.Errorf("Expected ErrInvalidParams, got %v", err)
	}
}

func TestReviewForgotThenKnew(t *testing.T) {
	store := newMemStore(freshQuestion("q1", "a1"))
	engine := newTestEngine(t, store)
	ctx := context.Background()

	now := t0
	ev, err := engine.Review(ctx, "a1", "q1", domain.Forgot, now)
	if err != nil {
		t.Fatalf("Review(forgot) returned an unexpected error: %v", err)
	}
	if ev.MasteryScore > 0.2 {
		t.Errorf("Expected mastery near the floor after forgot, got %v", ev.MasteryScore)
	}
	if ev.NextReviewAt.Sub(now) > 24*time.Hour {
		t.Errorf("Expected the question due within a day, got %v", ev.NextReviewAt.Sub(now))
	}
	if ev.ReviewCount != 1 {
		t.Errorf("Expected review count 1, got %d", ev.ReviewCount)
	}

	prevGap := ev.NextReviewAt.Sub(now)
	prevMastery := ev.MasteryScore
	for i := 0; i < 3; i++ {
		now = ev.NextReviewAt
		ev, err = engine.Review(ctx, "a1", "q1", domain.Knew, now)
		if err != nil {
			t.Fatalf("Review(knew) #%d returned an unexpected error: %v", i+1, err)
		}
		gap := ev.NextReviewAt.Sub(now)
		if gap <= prevGap {
			t.Errorf("knew #%d: expected gap to grow past %v, got %v", i+1, prevGap, gap)
		}
		if ev.MasteryScore <= prevMastery || ev.MasteryScore >= 1 {
			t.Errorf("knew #%d: expected mastery in (%v, 1), got %v", i+1, prevMastery, ev.MasteryScore)
		}
		prevGap, prevMastery = gap, ev.MasteryScore
	}

	stored := store.get("q1")
	if stored.ReviewCount != 4 {
		t.Errorf("Expected review count 4, got %d", stored.ReviewCount)
	}
	if !stored.UpdatedAt.Equal(now) {
		t.Errorf("Expected updated_at %v, got %v", now, stored.UpdatedAt)
	}
}

func TestReviewForgotAfterKnewResets(t *testing.T) {
	store := newMemStore(freshQuestion("q1", "a1"))
	engine := newTestEngine(t, store)
	ctx := context.Background()

	now := t0
	for i := 0; i < 4; i++ {
		ev, err := engine.Review(ctx, "a1", "q1", domain.Knew, now)
		if err != nil {
			t.Fatalf("Review(knew) returned an unexpected error: %v", err)
		}
		now = ev.NextReviewAt
	}
	ev, err := engine.Review(ctx, "a1", "q1", domain.Forgot, now)
	if err != nil {
		t.Fatalf("Review(forgot) returned an unexpected error: %v", err)
	}
	if got, want := ev.NextReviewAt.Sub(now), srs.DefaultParams().MinInterval; got != want {
		t.Errorf("Expected gap reset to %v, got %v", want, got)
	}
}

func TestReviewErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		store := newMemStore(freshQuestion("q1", "a1"))
		engine := newTestEngine(t, store)
		if _, err := engine.Review(ctx, "a1", "missing", domain.Knew, t0); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("foreign owner", func(t *testing.T) {
		store := newMemStore(freshQuestion("q1", "a1"))
		engine := newTestEngine(t, store)
		before := store.get("q1")
		if _, err := engine.Review(ctx, "a2", "q1", domain.Knew, t0); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		if after := store.get("q1"); after.Version != before.Version || after.ReviewCount != 0 {
			t.Errorf("Expected untouched question, got %+v", after)
		}
	})

	t.Run("invalid rating", func(t *testing.T) {
		store := newMemStore(freshQuestion("q1", "a1"))
		engine := newTestEngine(t, store)
		if _, err := engine.Review(ctx, "a1", "q1", domain.Rating(7), t0); !errors.Is(err, domain.ErrInvalidRating) {
			t.Errorf("Expected ErrInvalidRating, got %v", err)
		}
		if store.get("q1").Version != 1 {
			t.Error("Expected no write for an invalid rating")
		}
	})

	t.Run("storage failure leaves schedule unchanged", func(t *testing.T) {
		store := newMemStore(freshQuestion("q1", "a1"))
		store.writeErr = fmt.Errorf("disk gone: %w", domain.ErrStorageUnavailable)
		engine := newTestEngine(t, store)
		before := store.get("q1")

		ev, err := engine.Review(ctx, "a1", "q1", domain.Knew, t0)
		if !errors.Is(err, domain.ErrStorageUnavailable) {
			t.Fatalf("Expected ErrStorageUnavailable, got %v", err)
		}
		if ev != (domain.ReviewEvent{}) {
			t.Errorf("Expected no partial result, got %+v", ev)
		}
		if after := store.get("q1"); after.Schedule != before.Schedule {
			t.Errorf("Expected schedule %+v, got %+v", before.Schedule, after.Schedule)
		}
	})

	t.Run("conflict is surfaced", func(t *testing.T) {
		store := newMemStore(freshQuestion("q1", "a1"))
		store.writeErr = fmt.Errorf("question q1: %w", domain.ErrConflict)
		m := metrics.New()
		engine := newTestEngine(t, store, WithMetrics(m))

		if _, err := engine.Review(ctx, "a1", "q1", domain.Almost, t0); !errors.Is(err, domain.ErrConflict) {
			t.Errorf("Expected ErrConflict, got %v", err)
		}
		if got := testutil.ToFloat64(m.ReviewFailuresTotal.WithLabelValues("conflict")); got != 1 {
			t.Errorf("Expected one conflict recorded, got %v", got)
		}
	})
}

func TestReviewRecordsMetrics(t *testing.T) {
	m := metrics.New()
	engine := newTestEngine(t, newMemStore(freshQuestion("q1", "a1")), WithMetrics(m))

	if _, err := engine.Review(context.Background(), "a1", "q1", domain.Knew, t0); err != nil {
		t.Fatalf("Review() returned an unexpected error: %v", err)
	}
	if got := testutil.ToFloat64(m.ReviewsTotal.WithLabelValues("knew")); got != 1 {
		t.Errorf("Expected one knew review recorded, got %v", got)
	}
}

func TestNextScheduleIndependentOfMastery(t *testing.T) {
	params := srs.DefaultParams()
	low := domain.Schedule{MasteryScore: 0.1, Interval: 48 * time.Hour}
	high := domain.Schedule{MasteryScore: 0.9, Interval: 48 * time.Hour}

	a, err := NextSchedule(params, low, domain.Almost, t0)
	if err != nil {
		t.Fatalf("NextSchedule() returned an unexpected error: %v", err)
	}
	b, err := NextSchedule(params, high, domain.Almost, t0)
	if err != nil {
		t.Fatalf("NextSchedule() returned an unexpected error: %v", err)
	}
	if a.Interval != b.Interval {
		t.Errorf("Expected the interval to depend on the rating only, got %v and %v", a.Interval, b.Interval)
	}
}
