//go:build !windows

package memback

// SelectBackend returns a FakeBackend marked unsupported: off Windows there
// is no real process-memory API to bind to, so callers fall back to
// replay/synthetic snapshots instead of live reads.
func SelectBackend() Backend {
	b := NewFakeBackend()
	b.SetSupported(false)
	return b
}
