package domain

import (
	"strings"
	"time"
)

// Account owns questions and sources.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SourceType distinguishes local directories from git remotes.
type SourceType string

const (
	SourceLocal SourceType = "local"
	SourceGit   SourceType = "git"
)

// DetectSourceType guesses the kind of source from its path.
func DetectSourceType(path string) SourceType {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") || strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return SourceGit
	}
	return SourceLocal
}

// Source is a directory or git repository of markdown decks owned by an account.
type Source struct {
	ID          int64
	AccountID   string
	Path        string
	Type        SourceType
	LastScanned time.Time
}
