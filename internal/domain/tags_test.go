package domain

import (
	"reflect"
	"testing"
)

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" ML ", "go", "ml", "", "  "})
	want := []string{"go", "ml"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if got := NormalizeTags(nil); got == nil || len(got) != 0 {
		t.Errorf("Expected an empty non-nil slice, got %#v", got)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Errorf("Expected 'alice@example.com', got %q", got)
	}
}

func TestDetectSourceType(t *testing.T) {
	cases := map[string]SourceType{
		"./decks":                     SourceLocal,
		"git@github.com:me/decks.git": SourceGit,
		"https://github.com/me/decks": SourceGit,
		"/home/me/notes":              SourceLocal,
	}
	for path, want := range cases {
		if got := DetectSourceType(path); got != want {
			t.Errorf("DetectSourceType(%q) = %q, want %q", path, got, want)
		}
	}
}
