// Package web serves the JSON API on top of the question, review, account
// and deck-sync services.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/conorfennell/qbank/internal/auth"
	"github.com/conorfennell/qbank/internal/metrics"
	"github.com/conorfennell/qbank/internal/question"
	"github.com/conorfennell/qbank/internal/review"
	"github.com/conorfennell/qbank/internal/storage"
)

// Deps are the services the server dispatches to.
type Deps struct {
	DB        *storage.DB
	Engine    *review.Engine
	Questions *question.Service
	Auth      *auth.Service
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Options tune the HTTP surface.
type Options struct {
	CORSOrigins  []string
	CookieSecure bool
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	// AuthRate (events per second) and AuthBurst limit login and
	// registration attempts per client address.
	AuthRate  float64
	AuthBurst int
	// ReposDir and SyncConcurrency are passed to deck imports.
	ReposDir        string
	SyncConcurrency int
	// DecksDir confines local sources added over HTTP. Empty rejects them.
	DecksDir string
	// Now is the clock used for reviews and due queries.
	Now func() time.Time
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	deps        Deps
	opts        Options
	router      *http.ServeMux
	handler     http.Handler
	authLimiter *RateLimiter
	logger      *slog.Logger
}

// NewServer creates and configures a new server.
func NewServer(deps Deps, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AuthRate <= 0 {
		opts.AuthRate = 1
	}
	if opts.AuthBurst <= 0 {
		opts.AuthBurst = 5
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		deps:        deps,
		opts:        opts,
		router:      http.NewServeMux(),
		authLimiter: NewRateLimiter(opts.AuthRate, opts.AuthBurst),
		logger:      logger,
	}
	s.routes()
	s.handler = s.logRequests(s.recordMetrics(s.cors(s.router)))
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("GET /health", s.handleHealth())
	s.router.Handle("GET /metrics", s.deps.Metrics.Handler())

	// Accounts
	s.router.Handle("POST /v1/auth/register", s.rateLimited(s.handleRegister()))
	s.router.Handle("POST /v1/auth/login", s.rateLimited(s.handleLogin()))
	s.router.HandleFunc("POST /v1/auth/refresh", s.handleRefresh())
	s.router.HandleFunc("POST /v1/auth/logout", s.handleLogout())
	s.router.Handle("GET /v1/auth/me", s.requireAccount(s.handleMe()))

	// Questions
	s.router.Handle("GET /v1/questions", s.requireAccount(s.handleListQuestions()))
	s.router.Handle("POST /v1/questions", s.requireAccount(s.handleCreateQuestion()))
	s.router.Handle("GET /v1/questions/{id}", s.requireAccount(s.handleGetQuestion()))
	s.router.Handle("PATCH /v1/questions/{id}", s.requireAccount(s.handleUpdateQuestion()))
	s.router.Handle("DELETE /v1/questions/{id}", s.requireAccount(s.handleDeleteQuestion()))

	// Reviews
	s.router.Handle("POST /v1/questions/{id}/review", s.requireAccount(s.handleReview()))
	s.router.Handle("GET /v1/review/due", s.requireAccount(s.handleDue()))
	s.router.Handle("GET /v1/dashboard/stats", s.requireAccount(s.handleStats()))

	// Deck sources
	s.router.Handle("GET /v1/sources", s.requireAccount(s.handleListSources()))
	s.router.Handle("POST /v1/sources", s.requireAccount(s.handleAddSource()))
	s.router.Handle("DELETE /v1/sources/{id}", s.requireAccount(s.handleDeleteSource()))
	s.router.Handle("POST /v1/sync", s.requireAccount(s.handleSync()))
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.deps.DB.Ping(r.Context()); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}
