// Package profile parses and resolves memory signature profiles: named
// field layouts (address or pointer-chain) that tell the Memory Backend
// where to find combat state inside a running process.
package profile

import "fmt"

// Error is returned for malformed or unresolved signature profile payloads.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

func errorf(format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}
