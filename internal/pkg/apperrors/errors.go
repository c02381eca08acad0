package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("resource not found")

	ErrInvalidArgument = errors.New("invalid argument")

	ErrValidation = errors.New("validation failed")

	ErrAlreadyExists = errors.New("resource already exists")

	ErrDatabase = errors.New("database error")

	ErrUnauthorized = errors.New("unauthorized")

	ErrConflict = errors.New("resource conflict")
)

// Reason identifies which admission rule rejected an input.
type Reason string

const (
	ReasonRequiredField Reason = "required-field"
	ReasonBadName       Reason = "bad-name"
	ReasonBadPhone      Reason = "bad-phone"
	ReasonBadEmail      Reason = "bad-email"
	ReasonEmptyAddress  Reason = "empty-address"
)

type ValidationError struct {
	Field   string
	Reason  Reason
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// NewValidationError reports which field failed and the rule it broke.
func NewValidationError(field string, reason Reason, message string) error {
	return fmt.Errorf("%w: %w", ErrValidation, &ValidationError{Field: field, Reason: reason, Message: message})
}

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}
