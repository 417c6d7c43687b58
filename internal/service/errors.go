package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrValidation matches every *ValidationError through errors.Is.
	ErrValidation = errors.New("validation failed")
)

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// QuotaExceededError is returned when a user without a subscription has used
// up the free schedules.
type QuotaExceededError struct {
	Count int
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("free schedule limit reached (%d/%d)", e.Count, e.Limit)
}
