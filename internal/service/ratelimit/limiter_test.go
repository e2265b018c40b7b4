package ratelimit

import (
	"testing"
	"time"
)

func TestAllowConsumesCapacity(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1", 3, 0) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("10.0.0.1", 3, 0) {
		t.Fatalf("request over capacity should be denied")
	}
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := New()
	if !l.Allow("a", 1, 0) {
		t.Fatalf("first request for key a should be allowed")
	}
	if l.Allow("a", 1, 0) {
		t.Fatalf("key a is exhausted")
	}
	if !l.Allow("b", 1, 0) {
		t.Fatalf("key b has its own bucket")
	}
}

func TestAllowRefills(t *testing.T) {
	l := New()
	if !l.Allow("k", 1, 1000) {
		t.Fatalf("first request should be allowed")
	}
	if l.Allow("k", 1, 1000) {
		t.Fatalf("bucket should be empty immediately after")
	}
	time.Sleep(5 * time.Millisecond)
	if !l.Allow("k", 1, 1000) {
		t.Fatalf("bucket should refill at 1000 tokens/s")
	}
}
