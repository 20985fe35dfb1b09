package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/conorfennell/qbank/internal/domain"
)

type sample struct {
	Name  string   `json:"name" validate:"required,min=3"`
	Level int      `json:"level" validate:"min=1,max=5"`
	Email string   `koanf:"email" validate:"omitempty,email"`
	Tags  []string `json:"tags" validate:"dive,max=4"`
}

func TestStruct(t *testing.T) {
	v := New()

	if err := v.Struct(sample{Name: "abc", Level: 2, Tags: []string{"go"}}); err != nil {
		t.Fatalf("Expected a valid struct, got %v", err)
	}

	err := v.Struct(sample{Name: "ab", Level: 9, Email: "nope", Tags: []string{"toolong"}})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput, got %v", err)
	}
	for _, want := range []string{
		"name must be at least 3 characters",
		"level must be at most 5",
		"email must be a valid email address",
		"tags[0] must be at most 4 characters",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected error to contain %q, got %q", want, err.Error())
		}
	}
}
