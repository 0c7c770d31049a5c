package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrUnseenCategory is returned when a categorical value has no encoding.
	ErrUnseenCategory = errors.New("unseen categorical level")

	// ErrRowShape is returned when a row does not match the trained columns.
	ErrRowShape = errors.New("malformed input row")
)

// LoadError means the artifact could not be read, parsed, checked or
// compiled. It is fatal: nothing may be served without a pipeline.
type LoadError struct {
	Origin string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load pipeline from %s: %v", e.Origin, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// PredictionError wraps anything that goes wrong while invoking a loaded
// pipeline on a validated application.
type PredictionError struct {
	Err error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction failed: %v", e.Err)
}

func (e *PredictionError) Unwrap() error { return e.Err }
