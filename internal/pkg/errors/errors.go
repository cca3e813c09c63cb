package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// GenerationError marks a failed call to the external generation service.
// Phase names which pass or batch failed so the caller can decide what to
// retry; no partial document is ever returned alongside one of these.
type GenerationError struct {
	Phase string
	Err   error
}

func (e *GenerationError) Error() string {
	if e.Phase == "" {
		return fmt.Sprintf("generation failed: %v", e.Err)
	}
	return fmt.Sprintf("generation failed during %s: %v", e.Phase, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func NewGenerationError(phase string, err error) *GenerationError {
	return &GenerationError{Phase: phase, Err: err}
}

// AsGenerationError reports whether err wraps a GenerationError and returns it.
func AsGenerationError(err error) (*GenerationError, bool) {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// PlanningError is a configuration defect (e.g. hierarchical threshold at or
// below the context limit). Raised at startup validation, never per request.
type PlanningError struct {
	Reason string
}

func (e *PlanningError) Error() string {
	return "invalid generation plan config: " + e.Reason
}

func NewPlanningError(reason string) *PlanningError {
	return &PlanningError{Reason: reason}
}
