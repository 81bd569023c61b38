//go:build windows

package memback

// SelectBackend returns the real Win32 memory-read backend.
func SelectBackend() Backend {
	return NewWindowsBackend()
}
