// Package analytics ranks builds against each other, measures how sensitive
// an evaluation is to a single tower stat, and smooths a rolling forecast
// from evaluation history — all built on top of the Simulation Engine's
// EvaluateTimeline.
package analytics

import "fmt"

// Error is returned for malformed comparison, sensitivity, or forecast
// requests. A distinct type lets callers errors.As past engine or model
// errors further down the evaluation stack.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

func errorf(format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}
