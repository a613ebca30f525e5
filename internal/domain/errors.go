package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain failure so callers can map it to a response.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindForbidden    ErrorKind = "forbidden"
	KindInvalidState ErrorKind = "invalid_state"
	KindConflict     ErrorKind = "conflict"
	KindValidation   ErrorKind = "validation_failed"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError of the same kind, so errors.Is(err, ErrForbidden)
// works for every forbidden failure regardless of its message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrNotFound     = &DomainError{Kind: KindNotFound, Message: "not found"}
	ErrForbidden    = &DomainError{Kind: KindForbidden, Message: "forbidden"}
	ErrInvalidState = &DomainError{Kind: KindInvalidState, Message: "invalid state"}
	ErrConflict     = &DomainError{Kind: KindConflict, Message: "conflict"}
	ErrValidation   = &DomainError{Kind: KindValidation, Message: "validation failed"}
)

func NewDomainError(kind ErrorKind, message string) *DomainError {
	return &DomainError{Kind: kind, Message: message}
}

func NotFound(message string) error {
	return NewDomainError(KindNotFound, message)
}

func Forbidden(message string) error {
	return NewDomainError(KindForbidden, message)
}

func InvalidState(message string) error {
	return NewDomainError(KindInvalidState, message)
}

func Conflict(message string) error {
	return NewDomainError(KindConflict, message)
}

func Validation(message string) error {
	return NewDomainError(KindValidation, message)
}

// KindOf returns the kind of the first DomainError in err's chain, or "" when
// err carries none.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// MessageOf returns the human-readable reason of a DomainError.
func MessageOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
