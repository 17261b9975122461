package schema

import "fmt"

// ValidationError reports structurally invalid user input: bad extension,
// oversized file, undecodable encoding, unknown or constant target. It is
// surfaced to the caller with an actionable message and never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ContradictionError reports a fatal schema contradiction, such as the
// resolved target coinciding with an identifier column. It aborts the run
// before cleaning begins.
type ContradictionError struct {
	Column string
	Reason string
}

func (e *ContradictionError) Error() string {
	return fmt.Sprintf("schema contradiction on column %q: %s", e.Column, e.Reason)
}

// InsufficientDataError reports that no usable signal remains: either no
// trainable features survived role assignment, or every candidate model
// failed cross-validation. It is fatal to the training stage only; earlier
// stage outputs remain valid.
type InsufficientDataError struct {
	Msg string
}

func (e *InsufficientDataError) Error() string {
	return e.Msg
}

// NewInsufficientDataError builds an InsufficientDataError from a format
// string.
func NewInsufficientDataError(format string, args ...any) *InsufficientDataError {
	return &InsufficientDataError{Msg: fmt.Sprintf(format, args...)}
}
