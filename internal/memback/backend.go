// Package memback provides the process-memory read backend the Memory
// Scanner, Memory Reader, and Live Bridge build on: opening a process
// handle, locating its module base, and reading raw bytes out of its
// address space.
package memback

import "fmt"

// Error is returned for backend failures distinct enough that a caller
// needs to branch on kind: process-not-found vs permission-denied vs a
// transient read failure.
type Error struct {
	Kind string
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Error kinds returned by Backend implementations.
const (
	KindUnsupportedPlatform = "unsupported_platform"
	KindProcessNotFound     = "process_not_found"
	KindPermissionDenied    = "permission_denied"
	KindReadFailed          = "read_failed"
)

func newError(kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Handle is an opaque, backend-specific process handle. Its zero value
// means "no open process".
type Handle uintptr

// Region describes one committed, readable span of a process's address
// space, as reported by VirtualQueryEx (or a fake equivalent in tests).
type Region struct {
	Base int64
	Size int64
}

// Backend abstracts the platform calls needed to read another process's
// memory. WindowsBackend implements it against the real Win32 API;
// FakeBackend implements it in pure Go for tests, replay mode, and
// synthetic mode, where there is no real target process to attach to.
type Backend interface {
	// SupportsMemoryRead reports whether this backend can actually read
	// process memory on the current platform.
	SupportsMemoryRead() bool
	// FindProcessID locates the PID of the named process, or returns
	// KindProcessNotFound if none is running.
	FindProcessID(processName string) (int, error)
	// OpenProcess acquires a read handle to pid.
	OpenProcess(pid int) (Handle, error)
	// CloseProcess releases a handle acquired from OpenProcess. Best
	// effort: implementations should not panic on a bad handle.
	CloseProcess(handle Handle)
	// ReadMemory reads size bytes at address from the process behind
	// handle.
	ReadMemory(handle Handle, address int64, size int) ([]byte, error)
	// GetModuleBase returns the base load address of the named module
	// within pid, or 0 if it could not be determined.
	GetModuleBase(pid int, moduleName string) (int64, error)
	// IterRegions reports every committed, readable region of handle's
	// address space that overlaps [minAddress, maxAddress), clipped to
	// that window, in ascending base-address order.
	IterRegions(handle Handle, minAddress, maxAddress int64) ([]Region, error)
}
