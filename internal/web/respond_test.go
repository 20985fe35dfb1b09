package web

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/conorfennell/qbank/internal/domain"
)

func TestStatusFor(t *testing.T) {
	testCases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("question x: %w", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: great", domain.ErrInvalidRating), http.StatusBadRequest},
		{fmt.Errorf("%w: name is required", domain.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("review: %w", domain.ErrConflict), http.StatusConflict},
		{domain.ErrEmailTaken, http.StatusConflict},
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{fmt.Errorf("failed to read: %w: %w", domain.ErrStorageUnavailable, errors.New("disk I/O error")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			if got := statusFor(tc.err); got != tc.want {
				t.Errorf("Expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestRateLimiterPerKey(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	if !rl.Allow("a") || rl.Allow("a") {
		t.Error("Expected one request for key a, then a rejection")
	}
	if !rl.Allow("b") {
		t.Error("Expected key b to have its own bucket")
	}
}
