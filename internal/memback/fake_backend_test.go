package memback

import (
	"strings"
	"testing"
)

func TestFakeBackend_ReadWriteRoundTrip(t *testing.T) {
	b := NewFakeBackend()
	b.SetProcess("nordhold.exe", 4242)

	pid, err := b.FindProcessID("nordhold")
	if err != nil || pid != 4242 {
		t.Fatalf("expected pid 4242, got %d err=%v", pid, err)
	}

	handle, err := b.OpenProcess(pid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.WriteInt32(pid, 0x1000, 7)

	raw, err := b.ReadMemory(handle, 0x1000, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw) != 4 {
		t.Fatalf("expected 4 bytes, got %d", len(raw))
	}
}

func TestFakeBackend_ProcessNotFound(t *testing.T) {
	b := NewFakeBackend()
	if _, err := b.FindProcessID("ghost"); err == nil {
		t.Fatal("expected process-not-found error")
	}
}

func TestFakeBackend_ForceTransientReadFailure(t *testing.T) {
	b := NewFakeBackend()
	b.SetProcess("nordhold", 1)
	handle, _ := b.OpenProcess(1)
	b.ForceTransientReadFailure(true)

	_, err := b.ReadMemory(handle, 0x1000, 4)
	if err == nil {
		t.Fatal("expected transient read failure")
	}
	if !strings.Contains(err.Error(), "winerr=299") || !strings.Contains(err.Error(), "ReadProcessMemory failed") {
		t.Errorf("expected transient marker substrings, got: %v", err)
	}
}
