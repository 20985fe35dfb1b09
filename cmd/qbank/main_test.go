package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/conorfennell/qbank/internal/domain"
	"github.com/conorfennell/qbank/internal/storage"
)

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "cli.db"))
	if err != nil {
		t.Fatalf("storage.Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	err = db.CreateAccount(context.Background(), &domain.Account{
		ID: "a1", Email: "alice@example.com", PasswordHash: "hash", CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateAccount() returned an unexpected error: %v", err)
	}
	return db
}

func TestAddSource(t *testing.T) {
	deckDir := t.TempDir()

	testCases := []struct {
		name     string
		path     string
		expected domain.SourceType
	}{
		{"local directory", deckDir, domain.SourceLocal},
		{"git URL", "https://github.com/example/decks.git", domain.SourceGit},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db := openTestDB(t)
			ctx := context.Background()

			// Adding the same source twice reports the existing one.
			for i := 0; i < 2; i++ {
				if err := addSource(ctx, db, "Alice@Example.com", tc.path); err != nil {
					t.Fatalf("addSource() attempt %d returned an unexpected error: %v", i+1, err)
				}
			}

			sources, err := db.ListSources(ctx, "a1")
			if err != nil {
				t.Fatalf("ListSources() returned an unexpected error: %v", err)
			}
			if len(sources) != 1 {
				t.Fatalf("Expected 1 source, got %d", len(sources))
			}
			if sources[0].Type != tc.expected {
				t.Errorf("Expected type %q, got %q", tc.expected, sources[0].Type)
			}
			if sources[0].Path != tc.path {
				t.Errorf("Expected path %q, got %q", tc.path, sources[0].Path)
			}
		})
	}
}

func TestAddSourceErrors(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := addSource(ctx, db, "", "/tmp/decks"); err == nil {
		t.Error("Expected an error without an account")
	}
	if err := addSource(ctx, db, "nobody@example.com", "/tmp/decks"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for an unknown account, got %v", err)
	}
}
