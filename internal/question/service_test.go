package question

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/conorfennell/qbank/internal/domain"
	"github.com/conorfennell/qbank/internal/storage"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "questions.db"))
	if err != nil {
		t.Fatalf("storage.Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for _, id := range []string{"a1", "a2"} {
		err := db.CreateAccount(context.Background(), &domain.Account{ID: id, Email: id + "@example.com", PasswordHash: "x", CreatedAt: t0})
		if err != nil {
			t.Fatalf("CreateAccount() returned an unexpected error: %v", err)
		}
	}
	return NewService(db)
}

func TestCreateDefaults(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	q, err := svc.Create(ctx, "a1", CreateInput{
		QuestionText: "  What is a closure?  ",
		Tags:         []string{"Go", "go", " functions"},
	}, t0)
	if err != nil {
		t.Fatalf("Create() returned an unexpected error: %v", err)
	}

	if q.QuestionText != "What is a closure?" {
		t.Errorf("Expected trimmed text, got %q", q.QuestionText)
	}
	if q.Difficulty != domain.DefaultDifficulty {
		t.Errorf("Expected default difficulty %d, got %d", domain.DefaultDifficulty, q.Difficulty)
	}
	if q.ReviewCount != 0 || q.MasteryScore != InitialMastery || !q.NextReviewAt.Equal(t0) {
		t.Errorf("Unexpected initial schedule %+v", q.Schedule)
	}
	if !q.IsDue(t0) {
		t.Error("Expected a new question to be due immediately")
	}

	stored, err := svc.Get(ctx, "a1", q.ID)
	if err != nil {
		t.Fatalf("Get() returned an unexpected error: %v", err)
	}
	if want := []string{"functions", "go"}; !reflect.DeepEqual(stored.Tags, want) {
		t.Errorf("Expected tags %v, got %v", want, stored.Tags)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	testCases := []struct {
		name  string
		input CreateInput
	}{
		{"text too short", CreateInput{QuestionText: " ab "}},
		{"difficulty too high", CreateInput{QuestionText: "Valid question", Difficulty: 6}},
		{"difficulty negative", CreateInput{QuestionText: "Valid question", Difficulty: -1}},
		{"tag too long", CreateInput{QuestionText: "Valid question", Tags: []string{string(make([]byte, 51))}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, "a1", tc.input, t0); !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestUpdateKeepsSchedule(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	q, err := svc.Create(ctx, "a1", CreateInput{QuestionText: "Original question", Tags: []string{"a"}}, t0)
	if err != nil {
		t.Fatalf("Create() returned an unexpected error: %v", err)
	}

	text, flagged := "Edited question", true
	later := t0.Add(time.Hour)
	updated, err := svc.Update(ctx, "a1", q.ID, UpdateInput{QuestionText: &text, IsFlagged: &flagged, Tags: []string{"b"}}, later)
	if err != nil {
		t.Fatalf("Update() returned an unexpected error: %v", err)
	}
	if updated.QuestionText != text || !updated.IsFlagged || !reflect.DeepEqual(updated.Tags, []string{"b"}) {
		t.Errorf("Update not applied: %+v", updated)
	}
	if !updated.NextReviewAt.Equal(t0) || updated.ReviewCount != 0 {
		t.Errorf("Expected the schedule to be untouched, got %+v", updated.Schedule)
	}

	short := "no"
	if _, err := svc.Update(ctx, "a1", q.ID, UpdateInput{QuestionText: &short}, later); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Update(ctx, "a2", q.ID, UpdateInput{IsFlagged: &flagged}, later); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a foreign question, got %v", err)
	}
}

func TestListAndDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, _ := svc.Create(ctx, "a1", CreateInput{QuestionText: "Due question", Tags: []string{"ml"}}, t0)
	_, _ = svc.Create(ctx, "a1", CreateInput{QuestionText: "Future question"}, t0.Add(time.Hour))

	due, err := svc.List(ctx, "a1", ListOptions{DueOnly: true}, t0)
	if err != nil {
		t.Fatalf("List() returned an unexpected error: %v", err)
	}
	if len(due) != 1 || due[0].ID != first.ID {
		t.Errorf("Expected only the first question due, got %+v", due)
	}

	all, err := svc.List(ctx, "a1", ListOptions{}, t0)
	if err != nil {
		t.Fatalf("List() returned an unexpected error: %v", err)
	}
	if len(all) != 2 || all[0].QuestionText != "Future question" {
		t.Errorf("Expected both questions, newest first, got %+v", all)
	}

	if err := svc.Delete(ctx, "a2", first.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting a foreign question, got %v", err)
	}
	if err := svc.Delete(ctx, "a1", first.ID); err != nil {
		t.Fatalf("Delete() returned an unexpected error: %v", err)
	}
	if _, err := svc.Get(ctx, "a1", first.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}
