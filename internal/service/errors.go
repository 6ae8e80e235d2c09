package service

import (
	"errors"
	"strings"

	"github.com/funnel-crm-api/internal/validation"
)

// Sentinel errors translated to HTTP statuses by the api package
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// InputError reports request fields that failed validation
type InputError struct {
	Fields []validation.ValidationError
}

func (e *InputError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Error()
	}
	return strings.Join(parts, "; ")
}

// Field returns the name of the first invalid field
func (e *InputError) Field() string {
	if len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0].Field
}

func inputError(field, message string) *InputError {
	return &InputError{Fields: []validation.ValidationError{{Field: field, Message: message}}}
}

// checkInput wraps a non-empty validation result in an InputError
func checkInput(errs []validation.ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	return &InputError{Fields: errs}
}

// conflictError carries a user-facing message and matches ErrConflict
type conflictError struct{ msg string }

func (e *conflictError) Error() string        { return e.msg }
func (e *conflictError) Is(target error) bool { return target == ErrConflict }

func conflict(msg string) error { return &conflictError{msg: msg} }

// forbiddenError carries a user-facing message and matches ErrForbidden
type forbiddenError struct{ msg string }

func (e *forbiddenError) Error() string        { return e.msg }
func (e *forbiddenError) Is(target error) bool { return target == ErrForbidden }

func forbidden(msg string) error { return &forbiddenError{msg: msg} }
