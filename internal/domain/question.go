package domain

import "time"

const (
	DefaultDifficulty = 3
	MinDifficulty     = 1
	MaxDifficulty     = 5
)

// Schedule is the part of a question owned by the review engine.
type Schedule struct {
	ReviewCount  int
	MasteryScore float64
	Interval     time.Duration
	NextReviewAt time.Time
	UpdatedAt    time.Time
}

// IsDue reports whether the question should be shown at now.
func (s Schedule) IsDue(now time.Time) bool {
	return !s.NextReviewAt.After(now)
}

// Question is a question/answer pair owned by exactly one account.
type Question struct {
	ID           string
	AccountID    string
	QuestionText string
	AnswerMD     string
	Difficulty   int
	Source       string
	Tags         []string
	IsFlagged    bool
	CreatedAt    time.Time
	Schedule

	// Version increments on every stored mutation.
	Version int64
	// SourceID and ContentHash are set for questions imported from a deck.
	SourceID    int64
	ContentHash string
}

// ReviewEvent is the result of one accepted review. It is never mutated.
type ReviewEvent struct {
	QuestionID   string
	Rating       Rating
	ReviewedAt   time.Time
	MasteryScore float64
	Interval     time.Duration
	NextReviewAt time.Time
	ReviewCount  int
}

// WeakTag aggregates mastery across the questions carrying one tag.
type WeakTag struct {
	Name          string  `json:"name"`
	AvgMastery    float64 `json:"avg_mastery"`
	QuestionCount int     `json:"question_count"`
}

// DashboardStats summarizes an account's question bank.
type DashboardStats struct {
	TotalQuestions int       `json:"total_questions"`
	DueNow         int       `json:"due_now"`
	AvgMastery     float64   `json:"avg_mastery"`
	TotalReviews   int       `json:"total_reviews"`
	WeakestTags    []WeakTag `json:"weakest_tags"`
}
