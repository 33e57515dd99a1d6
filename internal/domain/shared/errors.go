// Package shared contains common domain types and errors used across all domain
// packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// ErrNoData means the upstream had nothing for the request: unknown player,
	// private profile, or an empty body. Expected, never severe.
	ErrNoData = errors.New("no data")

	// ErrTransport covers network, DNS, timeout and upstream 5xx failures.
	ErrTransport = errors.New("transport failure")

	// ErrMalformed means a response (or one record within it) could not be parsed.
	ErrMalformed = errors.New("malformed response")

	// ErrInvalidInput is returned for caller mistakes such as an empty username.
	ErrInvalidInput = errors.New("invalid input")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "stats", "clan", "runescape"
	Op      string // Operation that failed, e.g., "GetStats"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// IsNoData checks if the error means "nothing to show" rather than a failure.
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}

// IsTransport checks if the error came from talking to an external service.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsMalformed checks if the error is a parse failure.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}

// IsInvalidInput checks if the error was caused by bad caller input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
