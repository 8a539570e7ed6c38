package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"LoadCoach/internal/domain/models"
)

type entry struct {
	v   models.Recommendation
	exp time.Time
}

// TTLCache is the in-process RecommendationCache. Expired entries are kept
// until read or until Cleanup runs.
type TTLCache struct {
	mu  sync.RWMutex
	m   map[string]entry
	ttl time.Duration
	now func() time.Time
}

func NewTTLCache(ttl time.Duration) *TTLCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TTLCache{m: make(map[string]entry), ttl: ttl, now: time.Now}
}

// WithClock replaces time.Now; used by tests.
func (c *TTLCache) WithClock(now func() time.Time) *TTLCache {
	c.now = now
	return c
}

func (c *TTLCache) Get(_ context.Context, key string) (models.Recommendation, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return models.Recommendation{}, false
	}
	if c.now().After(e.exp) {
		c.mu.Lock()
		if cur, ok := c.m[key]; ok && cur.exp.Equal(e.exp) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return models.Recommendation{}, false
	}
	return e.v, true
}

func (c *TTLCache) Set(_ context.Context, key string, rec models.Recommendation) {
	c.mu.Lock()
	c.m[key] = entry{v: rec, exp: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *TTLCache) InvalidateUser(_ context.Context, userID string) int {
	prefix := UserPrefix(userID)
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.m {
		if strings.HasPrefix(k, prefix) {
			delete(c.m, k)
			n++
		}
	}
	return n
}

func (c *TTLCache) Cleanup(_ context.Context) int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.m {
		if now.After(e.exp) {
			delete(c.m, k)
			n++
		}
	}
	return n
}

func (c *TTLCache) Stats(_ context.Context) models.CacheStats {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := models.CacheStats{Total: len(c.m)}
	for _, e := range c.m {
		if now.After(e.exp) {
			s.Expired++
		}
	}
	return s
}
