// Package errors defines the small error taxonomy shared by
// connectors and the sync orchestrator. The teacher codebase never
// introduces a custom error package — every call site just wraps with
// fmt.Errorf("...: %w", err) — so this stays deliberately thin: one Kind
// enum and one wrapper, nothing more.
package errors

import (
	"errors"
	"fmt"
)

// Kind tags an error so the orchestrator can decide how to react without
// string-matching messages.
type Kind string

const (
	// ConfigError: missing credential/base url. Surfaced verbatim to the
	// admin UI on TestConnection; never counts toward ConsecutiveFailures.
	ConfigError Kind = "config_error"
	// TransientVendorError: HTTP 5xx, network, timeout. Retried by the
	// scheduler's retry policy; only counts toward ConsecutiveFailures
	// once retries are exhausted.
	TransientVendorError Kind = "transient_vendor_error"
	// PermanentVendorError: HTTP 4xx other than auth. Terminal.
	PermanentVendorError Kind = "permanent_vendor_error"
	// AuthError: HTTP 401/403.
	AuthError Kind = "auth_error"
)

// Tagged wraps an underlying error with a Kind.
type Tagged struct {
	Kind Kind
	Err  error
}

func (t *Tagged) Error() string {
	return fmt.Sprintf("%s: %v", t.Kind, t.Err)
}

func (t *Tagged) Unwrap() error {
	return t.Err
}

// Tag wraps err with kind, or returns nil if err is nil.
func Tag(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Tagged{Kind: kind, Err: err}
}

// Tagf wraps a formatted error with kind.
func Tagf(kind Kind, format string, args ...any) error {
	return &Tagged{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err, if any was tagged, defaulting to
// PermanentVendorError for untagged errors (fail safe: an unrecognized
// error should not be silently retried forever).
func KindOf(err error) Kind {
	var tagged *Tagged
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return PermanentVendorError
}

// IsRetryable reports whether the scheduler's retry policy should retry
// this error.
func IsRetryable(err error) bool {
	return KindOf(err) == TransientVendorError
}

// CountsTowardFailureStreak reports whether this error should increment
// SourceConfiguration.ConsecutiveFailures.
func CountsTowardFailureStreak(err error) bool {
	return KindOf(err) != ConfigError
}
