package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMapErrorToStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrNotFound, http.StatusNotFound},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"bad request", ErrBadRequest, http.StatusBadRequest},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"rate limit", ErrRateLimitExceeded, http.StatusTooManyRequests},
		{"service unavailable", ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MapErrorToStatus(tc.err); got != tc.want {
				t.Errorf("MapErrorToStatus(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestMapErrorToStatusWrapped(t *testing.T) {
	err := fmt.Errorf("%w: you do not own this lecture", ErrForbidden)
	if got := MapErrorToStatus(err); got != http.StatusForbidden {
		t.Errorf("wrapped sentinel should keep its status, got %d", got)
	}
}

func TestMapErrorToStatusAppError(t *testing.T) {
	err := New(http.StatusConflict, "already exists", nil)
	if got := MapErrorToStatus(err); got != http.StatusConflict {
		t.Errorf("AppError code should win, got %d", got)
	}

	wrapped := fmt.Errorf("outer: %w", New(http.StatusTeapot, "teapot", nil))
	if got := MapErrorToStatus(wrapped); got != http.StatusTeapot {
		t.Errorf("wrapped AppError code should win, got %d", got)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := New(http.StatusBadRequest, "msg", inner)

	if !errors.Is(err, inner) {
		t.Error("AppError should unwrap to its cause")
	}
	if err.Error() != "inner" {
		t.Errorf("Error() should surface the cause, got %q", err.Error())
	}

	bare := New(http.StatusBadRequest, "just a message", nil)
	if bare.Error() != "just a message" {
		t.Errorf("Error() without cause should use the message, got %q", bare.Error())
	}
}
