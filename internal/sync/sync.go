// Package sync imports markdown decks from local directories and git
// repositories into an account's question bank.
//
// Each card is identified by its content hash. Cards seen for the first time
// become new, immediately due questions; cards that disappeared from the
// source are deleted; unchanged cards keep their review history.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conorfennell/qbank/internal/domain"
	"github.com/conorfennell/qbank/internal/gitsource"
	"github.com/conorfennell/qbank/internal/knol"
	"github.com/conorfennell/qbank/internal/metrics"
	"github.com/conorfennell/qbank/internal/parser"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of sources reconciled at once.
const DefaultConcurrency = 4

// Store is the storage the importer needs. *storage.DB implements it.
type Store interface {
	GetAllSources(ctx context.Context) ([]domain.Source, error)
	ListSources(ctx context.Context, accountID string) ([]domain.Source, error)
	QuestionHashesBySource(ctx context.Context, sourceID int64) (map[string]string, error)
	InsertQuestion(ctx context.Context, q *domain.Question) error
	DeleteQuestion(ctx context.Context, accountID, id string) error
	UpdateSourceLastScanned(ctx context.Context, sourceID int64, at time.Time) error
}

// Options configures a sync run.
type Options struct {
	// ReposDir holds the checkouts of git sources.
	ReposDir string
	// Concurrency bounds how many sources are reconciled in parallel.
	Concurrency int
	// AccountID restricts the run to one account's sources; empty means all.
	AccountID string
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// Result summarises the reconciliation of one source.
type Result struct {
	SourceID int64    `json:"source_id"`
	Path     string   `json:"path"`
	Parsed   int      `json:"parsed"`
	Inserted int      `json:"inserted"`
	Deleted  int      `json:"deleted"`
	Errors   []string `json:"errors,omitempty"`
}

// Run reconciles every selected source. A failing source does not stop the
// others; its problems are reported in its Result. The returned error is
// only set when the sources could not be listed or ctx was cancelled.
func Run(ctx context.Context, db Store, opts Options) ([]Result, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ReposDir == "" {
		opts.ReposDir = "repos"
	}

	var (
		sources []domain.Source
		err     error
	)
	if opts.AccountID != "" {
		sources, err = db.ListSources(ctx, opts.AccountID)
	} else {
		sources, err = db.GetAllSources(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("No sources configured. Add one with --add-source <path/or/url.git>")
		return []Result{}, nil
	}

	slog.Info("Starting sync", "sources", len(sources), "concurrency", opts.Concurrency)

	results := make([]Result, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, source := range sources {
		g.Go(func() error {
			results[i] = syncSource(gctx, db, source, opts)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	slog.Info("Sync process complete.")
	return results, nil
}

func syncSource(ctx context.Context, db Store, source domain.Source, opts Options) Result {
	slog.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

	dir := source.Path
	if source.Type == domain.SourceGit {
		localRepoPath, err := gitsource.LocalPath(opts.ReposDir, source.Path)
		if err != nil {
			slog.Error("Error determining local path for git repo", "url", source.Path, "error", err)
			return failed(source, err)
		}
		if err := os.MkdirAll(filepath.Dir(localRepoPath), 0o755); err != nil {
			return failed(source, fmt.Errorf("failed to create repos directory: %w", err))
		}
		if err := gitsource.Sync(ctx, source.Path, localRepoPath); err != nil {
			slog.Error("Error syncing git repo", "url", source.Path, "error", err)
			return failed(source, err)
		}
		dir = localRepoPath
	}

	return reconcile(ctx, db, source, dir, opts)
}

func reconcile(ctx context.Context, db Store, source domain.Source, dir string, opts Options) Result {
	res := Result{SourceID: source.ID, Path: source.Path}

	cards, parseErrors, err := collectCards(dir)
	if err != nil {
		slog.Error("Error walking directory", "path", dir, "error", err)
		return failed(source, err)
	}
	for _, perr := range parseErrors {
		res.Errors = append(res.Errors, perr.Error())
	}
	res.Parsed = len(cards)

	existing, err := db.QuestionHashesBySource(ctx, source.ID)
	if err != nil {
		slog.Error("Error getting questions for source", "source_id", source.ID, "error", err)
		return failed(source, err)
	}

	now := opts.Now().UTC()
	for hash, card := range cards {
		if _, found := existing[hash]; found {
			continue
		}
		q := newQuestion(source, card, hash, now)
		if err := db.InsertQuestion(ctx, q); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("insert %s: %v", hash, err))
			continue
		}
		slog.Debug("New card imported", "hash", hash, "question_id", q.ID)
		res.Inserted++
	}

	// A parse failure may hide cards that still exist, so nothing is removed
	// until every file parses.
	if len(parseErrors) == 0 {
		for hash, id := range existing {
			if _, found := cards[hash]; found {
				continue
			}
			slog.Info("Orphaned card, deleting", "hash", hash, "question_id", id)
			if err := db.DeleteQuestion(ctx, source.AccountID, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
				slog.Warn("Failed to delete orphaned card", "hash", hash, "error", err)
				res.Errors = append(res.Errors, fmt.Sprintf("delete %s: %v", hash, err))
				continue
			}
			res.Deleted++
		}
	}

	if err := db.UpdateSourceLastScanned(ctx, source.ID, now); err != nil {
		slog.Warn("Failed to update last scanned for source", "source_id", source.ID, "error", err)
		res.Errors = append(res.Errors, err.Error())
	}

	opts.Metrics.ObserveSync(res.Inserted, res.Deleted)
	slog.Info("reconciliation complete",
		"path", source.Path,
		"parsed_cards", res.Parsed,
		"inserted", res.Inserted,
		"orphaned_deleted", res.Deleted,
		"errors", len(res.Errors),
	)
	return res
}

// collectCards parses every markdown file below dir and returns the cards
// keyed by content hash. Identical cards in several files count once.
func collectCards(dir string) (map[string]domain.Card, []error, error) {
	cards := make(map[string]domain.Card)
	var parseErrors []error

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		fileCards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			parseErrors = append(parseErrors, parseErr)
			return nil
		}
		for _, card := range fileCards {
			card.Hash = knol.Hash(card)
			cards[card.Hash] = card
		}
		return nil
	})
	if walkErr != nil {
		return nil, nil, walkErr
	}
	return cards, parseErrors, nil
}

func newQuestion(source domain.Source, card domain.Card, hash string, now time.Time) *domain.Question {
	difficulty := card.Difficulty
	if difficulty == 0 {
		difficulty = domain.DefaultDifficulty
	}
	return &domain.Question{
		ID:           uuid.NewString(),
		AccountID:    source.AccountID,
		QuestionText: card.Question,
		AnswerMD:     card.Answer,
		Difficulty:   difficulty,
		Source:       source.Path,
		Tags:         domain.NormalizeTags(card.Tags),
		CreatedAt:    now,
		Version:      1,
		SourceID:     source.ID,
		ContentHash:  hash,
		Schedule: domain.Schedule{
			NextReviewAt: now,
			UpdatedAt:    now,
		},
	}
}

func failed(source domain.Source, err error) Result {
	return Result{SourceID: source.ID, Path: source.Path, Errors: []string{err.Error()}}
}
