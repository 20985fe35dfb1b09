package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseRating(t *testing.T) {
	testCases := []struct {
		input    string
		expected Rating
		wantErr  bool
	}{
		{input: "forgot", expected: Forgot},
		{input: "almost", expected: Almost},
		{input: "knew", expected: Knew},
		{input: "  KNEW ", expected: Knew},
		{input: "easy", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			r, err := ParseRating(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidRating) {
					t.Fatalf("Expected ErrInvalidRating, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRating(%q) returned an unexpected error: %v", tc.input, err)
			}
			if r != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, r)
			}
		})
	}
}

func TestRatingsRoundTrip(t *testing.T) {
	ratings := Ratings()
	if len(ratings) != 3 {
		t.Fatalf("Expected 3 ratings, got %d", len(ratings))
	}
	for i, r := range ratings {
		if !r.IsValid() {
			t.Errorf("Expected %v to be valid", r)
		}
		if i > 0 && ratings[i-1] >= r {
			t.Errorf("Expected ratings weakest first, got %v before %v", ratings[i-1], r)
		}
		parsed, err := ParseRating(r.String())
		if err != nil {
			t.Fatalf("ParseRating(%q) returned an unexpected error: %v", r.String(), err)
		}
		if parsed != r {
			t.Errorf("Expected %v, got %v", r, parsed)
		}
	}
}

func TestRatingString(t *testing.T) {
	if Knew.String() != "knew" {
		t.Errorf("Expected 'knew', got %q", Knew.String())
	}
	if Rating(9).String() != "Rating(9)" {
		t.Errorf("Expected 'Rating(9)', got %q", Rating(9).String())
	}
}

func TestRatingJSON(t *testing.T) {
	var body struct {
		Rating Rating `json:"rating"`
	}
	if err := json.Unmarshal([]byte(`{"rating":"almost"}`), &body); err != nil {
		t.Fatalf("Unmarshal returned an unexpected error: %v", err)
	}
	if body.Rating != Almost {
		t.Errorf("Expected Almost, got %v", body.Rating)
	}

	if err := json.Unmarshal([]byte(`{"rating":3}`), &body); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("Expected ErrInvalidRating for a numeric rating, got %v", err)
	}

	if _, err := json.Marshal(Rating(0)); err == nil {
		t.Error("Expected marshalling the zero Rating to fail")
	}
}
