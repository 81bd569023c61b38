package engine

import "fmt"

// Error is returned for unsupported evaluation modes or malformed inputs.
// A distinct type lets callers errors.As past decode/IO failures elsewhere
// in the evaluation pipeline.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

func errorf(format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}
