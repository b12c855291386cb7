package scheduling

import (
	"errors"
	"fmt"
)

// NotFoundError reports that an entity (doctor, time slot, appointment, ...)
// does not exist.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// ConflictError reports that a write lost to a concurrent one, most commonly
// a booking attempt on a slot that is already booked or unavailable.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// ValidationError reports malformed or inconsistent input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func NotFound(kind, key string) error { return &NotFoundError{Kind: kind, Key: key} }
func Conflict(reason string) error    { return &ConflictError{Reason: reason} }
func Invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}
