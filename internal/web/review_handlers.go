package web

import (
	"net/http"
	"time"

	"github.com/conorfennell/qbank/internal/domain"
)

type reviewResponse struct {
	Status          string        `json:"status"`
	QuestionID      string        `json:"question_id"`
	Rating          domain.Rating `json:"rating"`
	MasteryScore    float64       `json:"mastery_score"`
	ReviewCount     int           `json:"review_count"`
	IntervalSeconds int64         `json:"interval_seconds"`
	NextReviewAt    time.Time     `json:"next_review_at"`
}

// handleReview applies a rating. The rating comes from the "rating" query
// parameter or, when that is absent, from a {"rating": "..."} body.
func (s *Server) handleReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("rating")
		if token == "" {
			var req struct {
				Rating string `json:"rating"`
			}
			if err := decodeJSON(w, r, &req); err != nil {
				s.writeError(w, r, err)
				return
			}
			token = req.Rating
		}

		rating, err := domain.ParseRating(token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ev, err := s.deps.Engine.Review(r.Context(), accountID(r), r.PathValue("id"), rating, s.opts.Now())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, reviewResponse{
			Status:          "ok",
			QuestionID:      ev.QuestionID,
			Rating:          ev.Rating,
			MasteryScore:    ev.MasteryScore,
			ReviewCount:     ev.ReviewCount,
			IntervalSeconds: int64(ev.Interval / time.Second),
			NextReviewAt:    ev.NextReviewAt,
		})
	}
}

func (s *Server) handleDue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questions, err := s.deps.Engine.ListDue(r.Context(), accountID(r), s.opts.Now(), r.URL.Query().Get("search"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toQuestionList(questions))
	}
}

func (s *Server) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.deps.Engine.Stats(r.Context(), accountID(r), s.opts.Now())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
