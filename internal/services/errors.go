package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Operation markers identify which collaborator call failed. They are
// transient by default.
var (
	ErrStorage = errors.New("storage error")
	ErrSubmit  = errors.New("submit error")
	ErrPoll    = errors.New("poll error")
	ErrFetch   = errors.New("fetch error")
)

// Classification markers.
var (
	ErrTransient     = errors.New("transient failure")
	ErrPermanent     = errors.New("permanent failure")
	ErrRemoteFailure = errors.New("remote job failed")
	ErrTimeout       = errors.New("timeout")
	ErrCancelled     = errors.New("cancelled")
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether err is worth another attempt. Permanent markers
// always win. An explicit ErrTransient marks collaborator-side timeouts as
// retryable even though they carry a context error; otherwise context errors
// are terminal. Operation markers are retryable by default.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	for _, marker := range []error{ErrPermanent, ErrRemoteFailure, ErrValidation, ErrConfiguration, ErrNotFound, ErrCancelled, ErrTimeout} {
		if errors.Is(err, marker) {
			return false
		}
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	for _, marker := range []error{ErrStorage, ErrSubmit, ErrPoll, ErrFetch} {
		if errors.Is(err, marker) {
			return true
		}
	}
	return false
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
