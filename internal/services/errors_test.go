package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"transcriptor/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrStorage, "s3store", "store", "upload failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"s3store", "store", "upload failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("x"), false},
		{"transient", services.Wrap(services.ErrTransient, "c", "op", "", nil), true},
		{"storage", services.Wrap(services.ErrStorage, "c", "op", "", errors.New("x")), true},
		{"submit", services.Wrap(services.ErrSubmit, "c", "op", "", nil), true},
		{"poll", services.Wrap(services.ErrPoll, "c", "op", "", nil), true},
		{"fetch", services.Wrap(services.ErrFetch, "c", "op", "", nil), true},
		{"permanent storage", services.Wrap(services.ErrStorage, "job", "store", "",
			services.Wrap(services.ErrPermanent, "s3store", "store", "access denied", nil)), false},
		{"remote failure", services.Wrap(services.ErrRemoteFailure, "c", "op", "", nil), false},
		{"validation", services.Wrap(services.ErrValidation, "c", "op", "", nil), false},
		{"context cancel", services.Wrap(services.ErrPoll, "c", "op", "", context.Canceled), false},
		{"deadline", fmt.Errorf("%w: %w", services.ErrFetch, context.DeadlineExceeded), false},
		{"collaborator timeout", services.Wrap(services.ErrFetch, "job", "fetch", "",
			services.Wrap(services.ErrTransient, "", "", "call timed out", context.DeadlineExceeded)), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Retryable(tc.err); got != tc.want {
				t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
