package review

import (
	"context"
	"fmt"
	"time"

	"github.com/conorfennell/qbank/internal/domain"
	"github.com/conorfennell/qbank/internal/storage"
)

// ListDue returns the account's questions with next_review_at <= now, oldest
// due first (ties by id). A non-empty search additionally keeps only
// questions whose text, answer or tags contain it, ignoring case.
func (e *Engine) ListDue(ctx context.Context, accountID string, now time.Time, search string) ([]domain.Question, error) {
	questions, err := e.store.ListQuestions(ctx, storage.QuestionFilter{
		AccountID: accountID,
		Search:    search,
		DueAt:     &now,
	})
	if err != nil {
		return nil, fmt.Errorf("list due questions: %w", err)
	}
	return questions, nil
}
