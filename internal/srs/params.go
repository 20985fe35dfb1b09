// Package srs holds the spaced-repetition rules: how a rating moves a
// question's mastery score and how long until it is shown again.
package srs

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidParams is returned by Validate for out-of-range constants.
var ErrInvalidParams = errors.New("srs: parameters out of bounds")

// Params holds the tunable constants of the mastery model and the scheduler.
type Params struct {
	// Mastery model.
	ForgotRetain float64 `koanf:"forgot_retain"` // share of mastery kept after "forgot"
	AlmostGain   float64 `koanf:"almost_gain"`   // share of the gap to 1.0 gained on "almost"
	KnewGain     float64 `koanf:"knew_gain"`     // share of the gap to 1.0 gained on "knew"

	// Scheduler.
	MinInterval        time.Duration `koanf:"min_interval"`        // floor, and the interval after "forgot"
	GraduatingInterval time.Duration `koanf:"graduating_interval"` // smallest interval after "knew"
	MaxInterval        time.Duration `koanf:"max_interval"`
	AlmostFactor       float64       `koanf:"almost_factor"`
	KnewFactor         float64       `koanf:"knew_factor"`
}

// DefaultParams returns the constants the service ships with.
func DefaultParams() Params {
	return Params{
		ForgotRetain: 0.4,
		AlmostGain:   0.15,
		KnewGain:     0.4,

		MinInterval:        10 * time.Minute,
		GraduatingInterval: 24 * time.Hour,
		MaxInterval:        180 * 24 * time.Hour,
		AlmostFactor:       1.3,
		KnewFactor:         2.5,
	}
}

// Validate checks the invariants the rating ordering and interval
// monotonicity depend on.
func (p Params) Validate() error {
	switch {
	case p.ForgotRetain < 0 || p.ForgotRetain >= 1:
		return fmt.Errorf("%w: forgot_retain %v must be in [0, 1)", ErrInvalidParams, p.ForgotRetain)
	case p.AlmostGain <= 0 || p.AlmostGain >= p.KnewGain:
		return fmt.Errorf("%w: almost_gain %v must be in (0, knew_gain)", ErrInvalidParams, p.AlmostGain)
	case p.KnewGain >= 1:
		return fmt.Errorf("%w: knew_gain %v must be below 1", ErrInvalidParams, p.KnewGain)
	case p.MinInterval <= 0:
		return fmt.Errorf("%w: min_interval %v must be positive", ErrInvalidParams, p.MinInterval)
	case p.GraduatingInterval < p.MinInterval:
		return fmt.Errorf("%w: graduating_interval %v is below min_interval", ErrInvalidParams, p.GraduatingInterval)
	case p.MaxInterval < p.GraduatingInterval:
		return fmt.Errorf("%w: max_interval %v is below graduating_interval", ErrInvalidParams, p.MaxInterval)
	case p.AlmostFactor <= 1:
		return fmt.Errorf("%w: almost_factor %v must exceed 1", ErrInvalidParams, p.AlmostFactor)
	case p.KnewFactor <= p.AlmostFactor:
		return fmt.Errorf("%w: knew_factor %v must exceed almost_factor", ErrInvalidParams, p.KnewFactor)
	}
	return nil
}
