package srs

import (
	"fmt"
	"time"

	"github.com/conorfennell/qbank/internal/domain"
)

// NextInterval calculates the interval that follows prev for the given rating
// and the resulting due time.
//
// "forgot" always resets to MinInterval. "almost" grows the interval by
// AlmostFactor and "knew" by KnewFactor, with "knew" never scheduling sooner
// than GraduatingInterval. Every result lies in [MinInterval, MaxInterval].
func (p Params) NextInterval(prev time.Duration, rating domain.Rating, now time.Time) (time.Duration, time.Time, error) {
	base := max(prev, p.MinInterval)

	var next time.Duration
	switch rating {
	case domain.Forgot:
		next = p.MinInterval
	case domain.Almost:
		next = scale(base, p.AlmostFactor)
	case domain.Knew:
		next = max(scale(base, p.KnewFactor), p.GraduatingInterval)
	default:
		return prev, time.Time{}, fmt.Errorf("%w: %v", domain.ErrInvalidRating, rating)
	}

	next = min(max(next, p.MinInterval), p.MaxInterval)
	return next, now.Add(next), nil
}

// scale multiplies d by f, saturating instead of overflowing.
func scale(d time.Duration, f float64) time.Duration {
	v := float64(d) * f
	if v >= float64(1<<63-1) {
		return time.Duration(1<<63 - 1)
	}
	return time.Duration(v).Round(time.Second)
}
