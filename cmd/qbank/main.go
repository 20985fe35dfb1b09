package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/conorfennell/qbank/internal/auth"
	"github.com/conorfennell/qbank/internal/config"
	"github.com/conorfennell/qbank/internal/domain"
	"github.com/conorfennell/qbank/internal/metrics"
	"github.com/conorfennell/qbank/internal/parser"
	"github.com/conorfennell/qbank/internal/question"
	"github.com/conorfennell/qbank/internal/review"
	"github.com/conorfennell/qbank/internal/storage"
	"github.com/conorfennell/qbank/internal/sync"
	"github.com/conorfennell/qbank/internal/web"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		slog.Error("qbank failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration and logging
	flags := config.NewFlagSet("qbank")
	cfg, err := config.Load(flags, os.Args[1:])
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(cfg.Log.NewHandler()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if dir, _ := flags.GetString("check"); dir != "" {
		return checkDecks(dir)
	}

	// 2. Open the database
	db, err := storage.Open(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	slog.Info("Database opened successfully", "path", cfg.DB.Path)

	// 3. One-shot commands
	if path, _ := flags.GetString("add-source"); path != "" {
		email, _ := flags.GetString("account")
		return addSource(ctx, db, email, path)
	}
	if doSync, _ := flags.GetBool("sync"); doSync {
		email, _ := flags.GetString("account")
		return runSync(ctx, db, cfg, email)
	}

	// 4. Serve
	return serve(ctx, db, cfg)
}

func serve(ctx context.Context, db *storage.DB, cfg *config.Config) error {
	m := metrics.New()
	engine, err := review.NewEngine(db, cfg.SRS,
		review.WithMetrics(m),
		review.WithWeakestTagsLimit(cfg.Stats.WeakestTagsLimit),
	)
	if err != nil {
		return err
	}
	authSvc, err := auth.NewService(db, auth.Config{
		Secret:     []byte(cfg.Auth.JWTSecret),
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	})
	if err != nil {
		return err
	}

	handler := web.NewServer(web.Deps{
		DB:        db,
		Engine:    engine,
		Questions: question.NewService(db),
		Auth:      authSvc,
		Metrics:   m,
	}, web.Options{
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		CookieSecure:    cfg.Auth.CookieSecure,
		AccessTTL:       cfg.Auth.AccessTTL,
		RefreshTTL:      cfg.Auth.RefreshTTL,
		AuthRate:        cfg.HTTP.AuthRate,
		AuthBurst:       cfg.HTTP.AuthBurst,
		ReposDir:        cfg.Sync.ReposDir,
		DecksDir:        cfg.Sync.DecksDir,
		SyncConcurrency: cfg.Sync.Concurrency,
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Starting server", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		slog.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func addSource(ctx context.Context, db *storage.DB, email, path string) error {
	if email == "" {
		return errors.New("--add-source needs --account <email>")
	}
	account, err := db.FindAccountByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("failed to find account %s: %w", email, err)
	}

	sourceType := domain.DetectSourceType(path)
	if sourceType == domain.SourceLocal {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		path = abs
	}

	existing, err := db.FindSourceByPath(ctx, account.ID, path)
	switch {
	case err == nil:
		slog.Info("Source already registered", "id", existing.ID, "type", existing.Type, "path", existing.Path, "account", account.Email)
		return nil
	case !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("failed to look up source: %w", err)
	}

	id, err := db.InsertSource(ctx, account.ID, path, sourceType)
	if err != nil {
		return fmt.Errorf("failed to add source: %w", err)
	}
	slog.Info("Source added", "id", id, "type", sourceType, "path", path, "account", account.Email)
	return nil
}

func runSync(ctx context.Context, db *storage.DB, cfg *config.Config, email string) error {
	opts := sync.Options{
		ReposDir:    cfg.Sync.ReposDir,
		Concurrency: cfg.Sync.Concurrency,
	}
	if email != "" {
		account, err := db.FindAccountByEmail(ctx, domain.NormalizeEmail(email))
		if err != nil {
			return fmt.Errorf("failed to find account %s: %w", email, err)
		}
		opts.AccountID = account.ID
	}

	results, err := sync.Run(ctx, db, opts)
	if err != nil {
		return err
	}
	for _, res := range results {
		fmt.Printf("%s: %d cards, %d new, %d removed, %d errors\n", res.Path, res.Parsed, res.Inserted, res.Deleted, len(res.Errors))
		for _, e := range res.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	return nil
}

// checkDecks parses every markdown file below dir and prints a report.
func checkDecks(dir string) error {
	var cards []domain.Card
	var problems []error

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			fileCards, parseErr := parser.ParseFile(path)
			if parseErr != nil {
				problems = append(problems, parseErr)
			}
			cards = append(cards, fileCards...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error walking directory %s: %w", dir, err)
	}

	fmt.Printf("Found %d cards, %d errors.\n", len(cards), len(problems))
	if len(problems) > 0 {
		fmt.Println("\nErrors:")
		for _, e := range problems {
			fmt.Printf("- %s\n", e)
		}
		return fmt.Errorf("%d deck files failed to parse", len(problems))
	}
	return nil
}
