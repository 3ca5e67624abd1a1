package appstate

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownField indicates a patch key the tree does not define.
	ErrUnknownField = errors.New("appstate: unknown field")
	// ErrFieldType indicates a patch value that cannot be assigned to its field.
	ErrFieldType = errors.New("appstate: value does not match field type")
	// ErrInvalidTransition indicates an unsupported transition kind.
	ErrInvalidTransition = errors.New("appstate: invalid transition")
)

// FieldError reports the patch key that aborted a transition.
type FieldError struct {
	Field string
	Value any
	Err   error
}

func (e *FieldError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if errors.Is(e.Err, ErrFieldType) {
		return fmt.Sprintf("%v: field %q got %T", e.Err, e.Field, e.Value)
	}
	return fmt.Sprintf("%v: %q", e.Err, e.Field)
}

func (e *FieldError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ErrActivity wraps failures reported by activity hooks. The state change
// that produced the event has already been committed.
var ErrActivity = errors.New("appstate: activity hook failed")

// ErrOutOfRange indicates an index outside the selectable items.
var ErrOutOfRange = errors.New("appstate: index out of range")
