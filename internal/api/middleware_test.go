package api

import (
	"fmt"
	"testing"
	"time"
)

func TestIPRateLimiter_EvictsIdleBuckets(t *testing.T) {
	l := newIPRateLimiter(1, 2)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		l.get(fmt.Sprintf("10.0.0.%d", i))
	}
	if n := l.size(); n != 50 {
		t.Fatalf("Expected 50 buckets, got %d", n)
	}

	now = now.Add(l.idleTTL + time.Second)
	l.get("10.0.1.1")
	if n := l.size(); n != 1 {
		t.Errorf("Expected idle buckets swept, %d left", n)
	}
}

func TestIPRateLimiter_KeepsActiveBuckets(t *testing.T) {
	l := newIPRateLimiter(0.01, 1)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.get("10.0.0.1").Allow() {
		t.Fatal("First attempt should pass")
	}
	// refill takes 100s, so the TTL is the 10 minute floor
	if l.idleTTL != minLimiterIdleTTL {
		t.Fatalf("Expected idle TTL %v, got %v", minLimiterIdleTTL, l.idleTTL)
	}

	now = now.Add(time.Minute)
	if l.get("10.0.0.1").Allow() {
		t.Error("Exhausted bucket should still be limited")
	}
}
