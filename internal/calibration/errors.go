// Package calibration builds, scores, and recommends memory signature
// calibration candidates: combinations of addresses captured by the Memory
// Scanner, ranked by how many required combat fields they resolve and how
// stable they have proven across prior connect/poll cycles.
package calibration

import "fmt"

// Error is returned for malformed calibration payloads or candidate
// generation failures.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

func errorf(format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}
