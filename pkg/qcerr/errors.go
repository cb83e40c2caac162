// Package qcerr defines the error taxonomy shared by the composition engine.
//
// Every component returns one of the sentinels below, wrapped with the name
// of the component and enough detail (axis, coordinate, code) for the caller
// to log the failure meaningfully. Callers match them with errors.Is.
package qcerr

import (
	"errors"
	"fmt"
)

var (
	// ErrInputShape is returned when a Volume, Mesh or ScalarMap violates
	// a structural invariant (face index out of range, length mismatch).
	ErrInputShape = errors.New("neuroqc: input shape violation")

	// ErrMissingMapping is returned when a label code or structural index
	// has no counterpart in an external lookup table.
	ErrMissingMapping = errors.New("neuroqc: missing mapping")

	// ErrDegenerateGeometry marks an empty bounding box or an empty plane
	// section. Components recover from it in place; it only surfaces when
	// the caller demands at least one region.
	ErrDegenerateGeometry = errors.New("neuroqc: degenerate geometry")

	// ErrConfiguration is returned for non-positive counts or columns,
	// unknown axis names and map indices outside [0, count).
	ErrConfiguration = errors.New("neuroqc: invalid configuration")
)

// Shape wraps ErrInputShape with component context.
func Shape(component, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %s: %w", component, fmt.Sprintf(format, args...), ErrInputShape)
}

// Config wraps ErrConfiguration with component context.
func Config(component, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %s: %w", component, fmt.Sprintf(format, args...), ErrConfiguration)
}

// Degenerate wraps ErrDegenerateGeometry with component context.
func Degenerate(component, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %s: %w", component, fmt.Sprintf(format, args...), ErrDegenerateGeometry)
}

// MissingMappingError names the code that could not be resolved.
type MissingMappingError struct {
	Component string
	Table     string
	Code      string
}

func (e *MissingMappingError) Error() string {
	return fmt.Sprintf("%s: code %s not found in %s", e.Component, e.Code, e.Table)
}

// Is makes MissingMappingError match ErrMissingMapping.
func (e *MissingMappingError) Is(target error) bool {
	return target == ErrMissingMapping
}

// Missing builds a MissingMappingError for an integer code.
func Missing(component, table string, code int) error {
	return &MissingMappingError{Component: component, Table: table, Code: fmt.Sprint(code)}
}

// MissingName builds a MissingMappingError for a named key.
func MissingName(component, table, name string) error {
	return &MissingMappingError{Component: component, Table: table, Code: name}
}
