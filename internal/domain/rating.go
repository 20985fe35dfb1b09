package domain

import (
	"encoding"
	"encoding/json"
	"fmt"
	"strings"
)

// Rating is the user's self-assessment after trying to recall an answer.
type Rating int

const (
	Forgot Rating = iota + 1 // Could not recall the answer.
	Almost                   // Partial recall.
	Knew                     // Recalled it.
)

var (
	ratingNames  = [...]string{Forgot: "forgot", Almost: "almost", Knew: "knew"}
	ratingByName = map[string]Rating{
		"forgot": Forgot,
		"almost": Almost,
		"knew":   Knew,
	}
)

var (
	_ fmt.Stringer             = Rating(0)
	_ encoding.TextMarshaler   = Rating(0)
	_ encoding.TextUnmarshaler = (*Rating)(nil)
	_ json.Marshaler           = Rating(0)
	_ json.Unmarshaler         = (*Rating)(nil)
)

// Ratings lists every valid rating, weakest first.
func Ratings() []Rating {
	return []Rating{Forgot, Almost, Knew}
}

// ParseRating converts a wire token ("forgot", "almost", "knew") into a Rating.
// Surrounding whitespace and letter case are ignored.
func ParseRating(s string) (Rating, error) {
	r, ok := ratingByName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
	return r, nil
}

// IsValid reports whether r is one of Forgot, Almost or Knew.
func (r Rating) IsValid() bool {
	return r >= Forgot && r <= Knew
}

func (r Rating) String() string {
	if r.IsValid() {
		return ratingNames[r]
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// MarshalText implements encoding.TextMarshaler.
func (r Rating) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRating, int(r))
	}
	return []byte(ratingNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rating) UnmarshalText(text []byte) error {
	v, err := ParseRating(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// MarshalJSON implements json.Marshaler. A Rating serializes as its token.
func (r Rating) MarshalJSON() ([]byte, error) {
	text, err := r.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Rating) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRating, data)
	}
	return r.UnmarshalText([]byte(s))
}
