package ratelimit

import (
	"testing"
	"time"
)

func TestBucket_AllowDrainsAndRefills(t *testing.T) {
	b := New(2, 20*time.Millisecond)
	defer b.Close()

	if !b.Allow() {
		t.Fatal("expected first Allow to succeed")
	}
	if !b.Allow() {
		t.Fatal("expected second Allow to succeed")
	}
	if b.Allow() {
		t.Fatal("expected third Allow to fail (bucket drained)")
	}

	time.Sleep(40 * time.Millisecond)
	if !b.Allow() {
		t.Fatal("expected Allow to succeed after refill")
	}
}

func TestBucket_PanicsOnInvalidCapacity(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for capacity <= 0")
		}
	}()
	New(0, time.Second)
}
