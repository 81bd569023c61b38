package bridge

import "strings"

// isTransientMemoryError reports whether err's text matches the narrow
// transient-read signature the portable memory backend emits for a
// recoverable ReadProcessMemory failure (Windows error 299,
// ERROR_PARTIAL_COPY — the target process resized or touched the region
// mid-read). Only this exact substring pair counts as transient; every
// other failure is treated as persistent.
func isTransientMemoryError(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "winerr=299") && strings.Contains(text, "readprocessmemory failed")
}
