package review

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/conorfennell/qbank/internal/domain"
	"github.com/conorfennell/qbank/internal/storage"
)

// Stats computes the dashboard aggregates for an account.
func (e *Engine) Stats(ctx context.Context, accountID string, now time.Time) (domain.DashboardStats, error) {
	questions, err := e.store.ListQuestions(ctx, storage.QuestionFilter{AccountID: accountID})
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("load questions for stats: %w", err)
	}
	return Summarize(questions, now, e.weakestTagsLimit), nil
}

// Summarize aggregates questions as of now. Weakest tags are ordered by mean
// mastery ascending, then name, and truncated to limit when limit > 0.
func Summarize(questions []domain.Question, now time.Time, limit int) domain.DashboardStats {
	stats := domain.DashboardStats{
		TotalQuestions: len(questions),
		WeakestTags:    []domain.WeakTag{},
	}

	type tagSum struct {
		mastery float64
		count   int
	}
	tags := make(map[string]*tagSum)

	var masterySum float64
	for _, q := range questions {
		masterySum += q.MasteryScore
		stats.TotalReviews += q.ReviewCount
		if q.IsDue(now) {
			stats.DueNow++
		}
		for _, name := range q.Tags {
			s, ok := tags[name]
			if !ok {
				s = &tagSum{}
				tags[name] = s
			}
			s.mastery += q.MasteryScore
			s.count++
		}
	}
	if len(questions) > 0 {
		stats.AvgMastery = masterySum / float64(len(questions))
	}

	for name, s := range tags {
		stats.WeakestTags = append(stats.WeakestTags, domain.WeakTag{
			Name:          name,
			AvgMastery:    s.mastery / float64(s.count),
			QuestionCount: s.count,
		})
	}
	sort.Slice(stats.WeakestTags, func(i, j int) bool {
		a, b := stats.WeakestTags[i], stats.WeakestTags[j]
		if a.AvgMastery != b.AvgMastery {
			return a.AvgMastery < b.AvgMastery
		}
		return a.Name < b.Name
	})
	if limit > 0 && len(stats.WeakestTags) > limit {
		stats.WeakestTags = stats.WeakestTags[:limit]
	}
	return stats
}
