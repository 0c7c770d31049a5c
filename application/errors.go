package application

import (
	"fmt"
	"strings"
)

// ErrorCode classifies a field problem for API clients and metrics.
type ErrorCode string

const (
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	ErrCodeOutOfRange   ErrorCode = "OUT_OF_RANGE"
	ErrCodeInvalidType  ErrorCode = "INVALID_TYPE"
)

// FieldError is implemented by every per-field validation failure.
type FieldError interface {
	error
	FieldName() string
	Code() ErrorCode
}

// MissingFieldError reports a field absent from the raw input.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: field required", e.Field)
}

func (e *MissingFieldError) FieldName() string { return e.Field }
func (e *MissingFieldError) Code() ErrorCode   { return ErrCodeMissingField }

// RangeError reports a numeric value outside its inclusive bound.
type RangeError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: value %s is outside the allowed range [%s, %s]",
		e.Field, formatNumber(e.Value), formatNumber(e.Min), formatNumber(e.Max))
}

func (e *RangeError) FieldName() string { return e.Field }
func (e *RangeError) Code() ErrorCode   { return ErrCodeOutOfRange }

// TypeError reports a value of the wrong shape: a categorical value outside
// its domain, a non-numeric numeric input, or a non-finite number.
type TypeError struct {
	Field    string
	Value    any
	Expected string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: invalid value %q, expected %s", e.Field, fmt.Sprint(e.Value), e.Expected)
}

func (e *TypeError) FieldName() string { return e.Field }
func (e *TypeError) Code() ErrorCode   { return ErrCodeInvalidType }

// ValidationError aggregates every field problem found while building an
// Application, in catalogue order.
type ValidationError struct {
	Problems []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	noun := "errors"
	if len(msgs) == 1 {
		noun = "error"
	}
	return fmt.Sprintf("%d validation %s for LoanApplication: %s", len(msgs), noun, strings.Join(msgs, "; "))
}

// Unwrap exposes the individual field errors to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Problems))
	for i, p := range e.Problems {
		errs[i] = p
	}
	return errs
}

// Fields lists the names of the offending fields.
func (e *ValidationError) Fields() []string {
	names := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		names[i] = p.FieldName()
	}
	return names
}
