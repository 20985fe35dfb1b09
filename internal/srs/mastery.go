package srs

import (
	"fmt"
	"math"

	"github.com/conorfennell/qbank/internal/domain"
)

// MaxMastery is the largest score a question can hold: the float64 just
// below 1.0.
var MaxMastery = math.Nextafter(1, 0)

// NextMastery returns the mastery score after a review with the given rating.
//
// "forgot" keeps a fraction of the score, "almost" and "knew" close part of
// the gap to 1.0. The result is always in [0, MaxMastery]. "almost" never
// lowers the score and "knew" raises it whenever a larger float64 below 1.0
// exists, so forgot < almost < knew holds for every score below the ceiling.
func (p Params) NextMastery(current float64, rating domain.Rating) (float64, error) {
	m := clamp(current, 0, MaxMastery)

	var next float64
	switch rating {
	case domain.Forgot:
		next = m * p.ForgotRetain
	case domain.Almost:
		next = m + (1-m)*p.AlmostGain
	case domain.Knew:
		next = m + (1-m)*p.KnewGain
		// Near 1.0 the gain rounds away; step to the next float instead.
		if next <= m && m < MaxMastery {
			next = math.Nextafter(m, 1)
		}
	default:
		return current, fmt.Errorf("%w: %v", domain.ErrInvalidRating, rating)
	}
	return clamp(next, 0, MaxMastery), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
