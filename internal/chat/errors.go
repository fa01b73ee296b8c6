// Package chat implements the turn coordinator: the orchestration between
// an inbound chat request, the provider stream, and the persisted
// conversation, message, and usage state.
package chat

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed turn. The mapping from kind to HTTP
// status lives in the handlers and is fixed regardless of model.
type ErrorKind string

const (
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindInvalidInput    ErrorKind = "invalid_input"
	KindNotFound        ErrorKind = "not_found"
	KindQuotaExceeded   ErrorKind = "quota_exceeded"
	KindProviderConfig  ErrorKind = "provider_config"
	KindProvider        ErrorKind = "provider"
	KindStorage         ErrorKind = "storage"
	KindInternal        ErrorKind = "internal"
)

// TurnError carries the kind alongside the underlying cause.
type TurnError struct {
	Kind ErrorKind
	Err  error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *TurnError) Unwrap() error { return e.Err }

// turnErrorf builds a TurnError from a format string.
func turnErrorf(kind ErrorKind, format string, args ...any) *TurnError {
	return &TurnError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the ErrorKind from err, defaulting to KindInternal
// for anything that is not a TurnError.
func KindOf(err error) ErrorKind {
	var turnErr *TurnError
	if errors.As(err, &turnErr) {
		return turnErr.Kind
	}
	return KindInternal
}
