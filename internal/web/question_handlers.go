package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/conorfennell/qbank/internal/domain"
	"github.com/conorfennell/qbank/internal/question"
)

type questionResponse struct {
	ID              string    `json:"id"`
	QuestionText    string    `json:"question_text"`
	AnswerMD        string    `json:"answer_md"`
	Difficulty      int       `json:"difficulty"`
	Source          string    `json:"source"`
	Tags            []string  `json:"tags"`
	IsFlagged       bool      `json:"is_flagged"`
	ReviewCount     int       `json:"review_count"`
	MasteryScore    float64   `json:"mastery_score"`
	IntervalSeconds int64     `json:"interval_seconds"`
	NextReviewAt    time.Time `json:"next_review_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toQuestionResponse(q *domain.Question) questionResponse {
	tags := q.Tags
	if tags == nil {
		tags = []string{}
	}
	return questionResponse{
		ID:              q.ID,
		QuestionText:    q.QuestionText,
		AnswerMD:        q.AnswerMD,
		Difficulty:      q.Difficulty,
		Source:          q.Source,
		Tags:            tags,
		IsFlagged:       q.IsFlagged,
		ReviewCount:     q.ReviewCount,
		MasteryScore:    q.MasteryScore,
		IntervalSeconds: int64(q.Interval / time.Second),
		NextReviewAt:    q.NextReviewAt,
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
}

func toQuestionList(qs []domain.Question) []questionResponse {
	out := make([]questionResponse, 0, len(qs))
	for i := range qs {
		out = append(out, toQuestionResponse(&qs[i]))
	}
	return out
}

func (s *Server) handleListQuestions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		opts := question.ListOptions{
			Search: q.Get("search"),
			Tag:    q.Get("tag"),
		}
		if v := q.Get("flagged"); v != "" {
			flagged, err := strconv.ParseBool(v)
			if err != nil {
				s.writeError(w, r, fmt.Errorf("%w: flagged must be a boolean", domain.ErrInvalidInput))
				return
			}
			opts.Flagged = &flagged
		}
		if v := q.Get("due_only"); v != "" {
			dueOnly, err := strconv.ParseBool(v)
			if err != nil {
				s.writeError(w, r, fmt.Errorf("%w: due_only must be a boolean", domain.ErrInvalidInput))
				return
			}
			opts.DueOnly = dueOnly
		}

		questions, err := s.deps.Questions.List(r.Context(), accountID(r), opts, s.opts.Now())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toQuestionList(questions))
	}
}

func (s *Server) handleCreateQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in question.CreateInput
		if err := decodeJSON(w, r, &in); err != nil {
			s.writeError(w, r, err)
			return
		}
		q, err := s.deps.Questions.Create(r.Context(), accountID(r), in, s.opts.Now())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toQuestionResponse(q))
	}
}

func (s *Server) handleGetQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := s.deps.Questions.Get(r.Context(), accountID(r), r.PathValue("id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toQuestionResponse(q))
	}
}

func (s *Server) handleUpdateQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in question.UpdateInput
		if err := decodeJSON(w, r, &in); err != nil {
			s.writeError(w, r, err)
			return
		}
		q, err := s.deps.Questions.Update(r.Context(), accountID(r), r.PathValue("id"), in, s.opts.Now())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toQuestionResponse(q))
	}
}

func (s *Server) handleDeleteQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.deps.Questions.Delete(r.Context(), accountID(r), r.PathValue("id")); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
