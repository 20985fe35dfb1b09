// Package review applies ratings to questions and answers the read queries a
// study session and the dashboard depend on.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/conorfennell/qbank/internal/domain"
	"github.com/conorfennell/qbank/internal/metrics"
	"github.com/conorfennell/qbank/internal/srs"
	"github.com/conorfennell/qbank/internal/storage"
)

// DefaultWeakestTagsLimit is how many tags Stats reports.
const DefaultWeakestTagsLimit = 5

// Store is the storage the engine needs. *storage.DB implements it.
type Store interface {
	UpdateSchedule(ctx context.Context, accountID, id string, apply func(domain.Question) (domain.Schedule, error)) (*domain.Question, error)
	ListQuestions(ctx context.Context, f storage.QuestionFilter) ([]domain.Question, error)
}

// Engine runs reviews against a Store.
type Engine struct {
	store            Store
	params           srs.Params
	metrics          *metrics.Metrics
	logger           *slog.Logger
	weakestTagsLimit int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records review outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithWeakestTagsLimit sets how many tags Stats returns; 0 means all.
func WithWeakestTagsLimit(n int) Option {
	return func(e *Engine) { e.weakestTagsLimit = n }
}

// NewEngine creates an Engine. params must pass srs.Params.Validate.
func NewEngine(store Store, params srs.Params, opts ...Option) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		store:            store,
		params:           params,
		logger:           slog.Default(),
		weakestTagsLimit: DefaultWeakestTagsLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Review applies rating to the question at now and returns the stored result.
// It fails with domain.ErrInvalidRating, domain.ErrNotFound (missing or
// foreign question), domain.ErrConflict or domain.ErrStorageUnavailable; on
// failure the question is left unchanged.
func (e *Engine) Review(ctx context.Context, accountID, questionID string, rating domain.Rating, now time.Time) (domain.ReviewEvent, error) {
	if !rating.IsValid() {
		e.metrics.ObserveReviewFailure(failureReason(domain.ErrInvalidRating))
		return domain.ReviewEvent{}, fmt.Errorf("%w: %v", domain.ErrInvalidRating, rating)
	}

	q, err := e.store.UpdateSchedule(ctx, accountID, questionID, func(current domain.Question) (domain.Schedule, error) {
		return NextSchedule(e.params, current.Schedule, rating, now)
	})
	if err != nil {
		reason := failureReason(err)
		e.metrics.ObserveReviewFailure(reason)
		e.logger.Warn("review rejected",
			"account_id", accountID,
			"question_id", questionID,
			"rating", rating.String(),
			"reason", reason,
			"error", err,
		)
		return domain.ReviewEvent{}, fmt.Errorf("review question %s: %w", questionID, err)
	}

	e.metrics.ObserveReview(rating.String())
	e.logger.Debug("review applied",
		"question_id", q.ID,
		"rating", rating.String(),
		"mastery", q.MasteryScore,
		"interval", q.Interval,
		"next_review_at", q.NextReviewAt,
	)

	return domain.ReviewEvent{
		QuestionID:   q.ID,
		Rating:       rating,
		ReviewedAt:   now,
		MasteryScore: q.MasteryScore,
		Interval:     q.Interval,
		NextReviewAt: q.NextReviewAt,
		ReviewCount:  q.ReviewCount,
	}, nil
}

// NextSchedule computes the schedule that follows s after a review. Mastery
// and interval are both derived from the rating; neither feeds the other.
func NextSchedule(p srs.Params, s domain.Schedule, rating domain.Rating, now time.Time) (domain.Schedule, error) {
	mastery, err := p.NextMastery(s.MasteryScore, rating)
	if err != nil {
		return s, err
	}
	interval, due, err := p.NextInterval(s.Interval, rating, now)
	if err != nil {
		return s, err
	}
	return domain.Schedule{
		ReviewCount:  s.ReviewCount + 1,
		MasteryScore: mastery,
		Interval:     interval,
		NextReviewAt: due,
		UpdatedAt:    now,
	}, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidRating):
		return "invalid_rating"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrStorageUnavailable):
		return "storage"
	default:
		return "other"
	}
}
