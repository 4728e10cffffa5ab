package service

import "fmt"

// ValidationError is a client error: the request was rejected before any
// write happened.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError is returned when a referenced entity no longer resolves.
type NotFoundError struct {
	Reason string
}

func (e *NotFoundError) Error() string {
	return e.Reason
}

// Shared failure reasons. Every user-visible failure carries a structured
// reason string; internal errors surface as a generic message instead.
var (
	ErrMissingCode      = &ValidationError{Reason: "missing code"}
	ErrMissingGID       = &ValidationError{Reason: "missing gid"}
	ErrInvalidType      = &ValidationError{Reason: "invalid type"}
	ErrInvalidQty       = &ValidationError{Reason: "invalid qty"}
	ErrInvalidLimit     = &ValidationError{Reason: "invalid limit"}
	ErrInvalidCursor    = &ValidationError{Reason: "invalid cursor"}
	ErrInvalidCategory  = &ValidationError{Reason: "invalid category"}
	ErrInvalidGID       = &ValidationError{Reason: "invalid gid"}
	ErrInvalidID        = &ValidationError{Reason: "invalid id"}
	ErrEmptyItems       = &ValidationError{Reason: "empty items"}
	ErrTooManyItems     = &ValidationError{Reason: "too many items"}
	ErrCodeRemoved      = &ValidationError{Reason: "code removed, re-add it before adjusting"}
	ErrSeriesNotAdded   = &ValidationError{Reason: "series not added, add it before adjusting"}
	ErrCategoryNotFound = &ValidationError{Reason: "category not found"}
	ErrMissingSeries    = &ValidationError{Reason: "missing series"}
	ErrInvalidSeries    = &ValidationError{Reason: "invalid series"}
	ErrCodeExists       = &ValidationError{Reason: "code already added"}
	ErrMissingURL       = &ValidationError{Reason: "missing patternUrl"}

	ErrGroupNotFound = &NotFoundError{Reason: "group not found"}
	ErrNotFound      = &NotFoundError{Reason: "not found"}
)
