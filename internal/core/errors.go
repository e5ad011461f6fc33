package core

import (
	"errors"
	"fmt"
)

// Domain errors for batched operations.
var (
	// ErrConfiguration indicates a missing or invalid numeric parameter.
	ErrConfiguration = errors.New("usvsim: invalid configuration")

	// ErrShapeMismatch indicates a batch or vector width that does not match
	// the number of environments or the expected row width.
	ErrShapeMismatch = errors.New("usvsim: shape mismatch")

	// ErrUnsupportedMode indicates an unknown task, reward or policy name.
	ErrUnsupportedMode = errors.New("usvsim: unsupported mode")

	// ErrNotReady indicates an operation called out of step order, e.g. a
	// reward computed before the observations of the same step.
	ErrNotReady = errors.New("usvsim: step order violated")
)

// ShapeError wraps ErrShapeMismatch with the offending dimensions.
type ShapeError struct {
	Op       string
	WantRows int
	WantCols int
	GotRows  int
	GotCols  int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: want %dx%d, got %dx%d", e.Op, e.WantRows, e.WantCols, e.GotRows, e.GotCols)
}

func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}

// Configf returns an ErrConfiguration wrapped with a formatted message.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConfiguration)
}
