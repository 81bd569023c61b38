//go:build !windows

package bridge

// isAdminContext always reports true off Windows: the memory backend's
// access model is Windows-specific, so non-Windows builds never run the
// admin gate (the fake backend and replay/synthetic modes cover them).
func isAdminContext() bool { return true }
