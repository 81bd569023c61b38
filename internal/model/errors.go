// Package model defines the validated data types for tower-defense scenario
// definitions, build plans, and evaluation results shared between the
// Calibration Layer, Simulation Engine, and Analytics packages.
package model

import "fmt"

// Error is returned for malformed scenario, build-plan, or result payloads.
// It is a distinct type (rather than a bare errors.New) so callers can use
// errors.As to distinguish model validation failures from I/O or decode
// errors further up the stack.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

func errorf(format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}
