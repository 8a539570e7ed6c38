package ratelimit

import (
    "testing"
    "time"
)

func TestLimiterPerKey(t *testing.T) {
    now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
    l := New(2, 0.5).WithClock(func() time.Time { return now })

    if !l.Allow("u1") || !l.Allow("u1") {
        t.Fatalf("burst of 2 should pass")
    }
    if l.Allow("u1") {
        t.Fatalf("third call should be limited")
    }
    if !l.Allow("u2") {
        t.Fatalf("other keys have their own bucket")
    }

    now = now.Add(2 * time.Second)
    if !l.Allow("u1") {
        t.Fatalf("one token should refill after 2s")
    }
    if l.Allow("u1") {
        t.Fatalf("only one token refilled")
    }
}

func TestLimiterPrune(t *testing.T) {
    now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
    l := New(1, 1).WithClock(func() time.Time { return now })
    l.Allow("old")
    now = now.Add(time.Hour)
    l.Allow("fresh")
    if n := l.Prune(time.Minute); n != 1 {
        t.Fatalf("want 1 pruned, got %d", n)
    }
}
