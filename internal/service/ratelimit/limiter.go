package ratelimit

import (
    "sync"
    "time"
)

type bucket struct {
    tokens float64
    last   time.Time
}

// Limiter is a keyed token bucket. Every key shares the same capacity and refill rate.
type Limiter struct {
    mu         sync.Mutex
    m          map[string]*bucket
    capacity   float64
    refillRate float64 // tokens per second
    now        func() time.Time
}

// New creates a limiter allowing bursts of capacity and refillPerSec sustained calls per key.
func New(capacity, refillPerSec float64) *Limiter {
    if capacity < 1 {
        capacity = 1
    }
    return &Limiter{
        m:          make(map[string]*bucket),
        capacity:   capacity,
        refillRate: refillPerSec,
        now:        time.Now,
    }
}

// WithClock replaces the time source.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
    l.now = now
    return l
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
    now := l.now()
    l.mu.Lock()
    defer l.mu.Unlock()
    b, ok := l.m[key]
    if !ok {
        b = &bucket{tokens: l.capacity, last: now}
        l.m[key] = b
    }
    if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
        b.tokens += elapsed * l.refillRate
        if b.tokens > l.capacity { b.tokens = l.capacity }
        b.last = now
    }
    if b.tokens >= 1 {
        b.tokens -= 1
        return true
    }
    return false
}

// Prune drops buckets untouched for longer than idle and returns how many were removed.
func (l *Limiter) Prune(idle time.Duration) int {
    cutoff := l.now().Add(-idle)
    l.mu.Lock()
    defer l.mu.Unlock()
    n := 0
    for k, b := range l.m {
        if b.last.Before(cutoff) {
            delete(l.m, k)
            n++
        }
    }
    return n
}
