package srs

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultParamsAreValid(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("DefaultParams().Validate() returned an unexpected error: %v", err)
	}
}

func TestValidateRejectsBadParams(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"forgot retain of one", func(p *Params) { p.ForgotRetain = 1 }},
		{"almost gain above knew gain", func(p *Params) { p.AlmostGain = 0.5 }},
		{"knew gain of one", func(p *Params) { p.KnewGain = 1 }},
		{"negative forgot retain", func(p *Params) { p.ForgotRetain = -0.1 }},
		{"zero min interval", func(p *Params) { p.MinInterval = 0 }},
		{"graduating below min", func(p *Params) { p.GraduatingInterval = time.Minute }},
		{"max below graduating", func(p *Params) { p.MaxInterval = time.Hour }},
		{"almost factor of one", func(p *Params) { p.AlmostFactor = 1 }},
		{"knew factor below almost", func(p *Params) { p.KnewFactor = 1.1 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.mutate(&p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Expected ErrInvalidParams, got %v", err)
			}
		})
	}
}
