// Package question implements create, read, update and delete for questions.
// Scheduling fields are initialised here and afterwards only changed by the
// review engine.
package question

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/conorfennell/qbank/internal/domain"
	"github.com/conorfennell/qbank/internal/storage"
	"github.com/conorfennell/qbank/internal/validate"
	"github.com/google/uuid"
)

// InitialMastery is the mastery score of a question that was never reviewed.
const InitialMastery = 0.0

// Store is the storage the service needs. *storage.DB implements it.
type Store interface {
	InsertQuestion(ctx context.Context, q *domain.Question) error
	GetQuestion(ctx context.Context, accountID, id string) (*domain.Question, error)
	ListQuestions(ctx context.Context, f storage.QuestionFilter) ([]domain.Question, error)
	UpdateQuestion(ctx context.Context, q *domain.Question) error
	DeleteQuestion(ctx context.Context, accountID, id string) error
}

// CreateInput holds the fields a client supplies for a new question.
type CreateInput struct {
	QuestionText string   `json:"question_text" validate:"required,min=3,max=5000"`
	AnswerMD     string   `json:"answer_md" validate:"max=50000"`
	Difficulty   int      `json:"difficulty" validate:"min=1,max=5"`
	Source       string   `json:"source" validate:"max=300"`
	Tags         []string `json:"tags" validate:"max=20,dive,max=50"`
}

// UpdateInput is a partial update; nil fields are left as they are.
type UpdateInput struct {
	QuestionText *string  `json:"question_text" validate:"omitnil,min=3,max=5000"`
	AnswerMD     *string  `json:"answer_md" validate:"omitnil,max=50000"`
	Difficulty   *int     `json:"difficulty" validate:"omitnil,min=1,max=5"`
	Source       *string  `json:"source" validate:"omitnil,max=300"`
	IsFlagged    *bool    `json:"is_flagged"`
	Tags         []string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
}

// ListOptions filters List.
type ListOptions struct {
	Search  string
	Tag     string
	Flagged *bool
	DueOnly bool
}

// Service manages questions.
type Service struct {
	store    Store
	validate *validate.Validator
	newID    func() string
}

// NewService creates a Service backed by store.
func NewService(store Store) *Service {
	return &Service{
		store:    store,
		validate: validate.New(),
		newID:    uuid.NewString,
	}
}

// Create stores a new question that is due immediately.
func (s *Service) Create(ctx context.Context, accountID string, in CreateInput, now time.Time) (*domain.Question, error) {
	in.QuestionText = strings.TrimSpace(in.QuestionText)
	if in.Difficulty == 0 {
		in.Difficulty = domain.DefaultDifficulty
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	q := &domain.Question{
		ID:           s.newID(),
		AccountID:    accountID,
		QuestionText: in.QuestionText,
		AnswerMD:     in.AnswerMD,
		Difficulty:   in.Difficulty,
		Source:       strings.TrimSpace(in.Source),
		Tags:         domain.NormalizeTags(in.Tags),
		CreatedAt:    now,
		Version:      1,
		Schedule: domain.Schedule{
			ReviewCount:  0,
			MasteryScore: InitialMastery,
			NextReviewAt: now,
			UpdatedAt:    now,
		},
	}
	if err := s.store.InsertQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// Get returns one of the account's questions.
func (s *Service) Get(ctx context.Context, accountID, id string) (*domain.Question, error) {
	return s.store.GetQuestion(ctx, accountID, id)
}

// List returns the account's questions. With DueOnly only questions due at
// now are returned, ordered by due time; otherwise the most recently updated
// come first.
func (s *Service) List(ctx context.Context, accountID string, opts ListOptions, now time.Time) ([]domain.Question, error) {
	f := storage.QuestionFilter{
		AccountID: accountID,
		Search:    opts.Search,
		Tag:       opts.Tag,
		Flagged:   opts.Flagged,
	}
	if opts.DueOnly {
		f.DueAt = &now
	}
	return s.store.ListQuestions(ctx, f)
}

// Update applies a partial update to the question's content.
func (s *Service) Update(ctx context.Context, accountID, id string, in UpdateInput, now time.Time) (*domain.Question, error) {
	if in.QuestionText != nil {
		trimmed := strings.TrimSpace(*in.QuestionText)
		in.QuestionText = &trimmed
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	q, err := s.store.GetQuestion(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	if in.QuestionText != nil {
		q.QuestionText = *in.QuestionText
	}
	if in.AnswerMD != nil {
		q.AnswerMD = *in.AnswerMD
	}
	if in.Difficulty != nil {
		q.Difficulty = *in.Difficulty
	}
	if in.Source != nil {
		q.Source = strings.TrimSpace(*in.Source)
	}
	if in.IsFlagged != nil {
		q.IsFlagged = *in.IsFlagged
	}
	if in.Tags != nil {
		q.Tags = domain.NormalizeTags(in.Tags)
	}
	q.UpdatedAt = now

	if err := s.store.UpdateQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}
	q.Version++
	return q, nil
}

// Delete removes one of the account's questions.
func (s *Service) Delete(ctx context.Context, accountID, id string) error {
	return s.store.DeleteQuestion(ctx, accountID, id)
}
