package cache

import (
	"context"
	"testing"
	"time"

	"LoadCoach/internal/domain/models"
)

func TestTTLCacheExpiryStatsAndCleanup(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	c := NewTTLCache(time.Hour).WithClock(func() time.Time { return now })
	ctx := context.Background()

	c.Set(ctx, "rec_u1_2024-06-01", models.Recommendation{UserID: "u1", RecommendedStress: 120})
	c.Set(ctx, "rec_u2_2024-06-01", models.Recommendation{UserID: "u2"})

	got, ok := c.Get(ctx, "rec_u1_2024-06-01")
	if !ok || got.RecommendedStress != 120 {
		t.Fatalf("expected hit, got %+v %v", got, ok)
	}

	now = now.Add(61 * time.Minute)
	c.Set(ctx, "rec_u3_2024-06-01", models.Recommendation{UserID: "u3"})
	if s := c.Stats(ctx); s.Total != 3 || s.Expired != 2 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if n := c.Cleanup(ctx); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	if s := c.Stats(ctx); s.Total != 1 || s.Expired != 0 {
		t.Fatalf("unexpected stats after cleanup %+v", s)
	}
}

func TestTTLCacheInvalidateUser(t *testing.T) {
	c := NewTTLCache(0)
	ctx := context.Background()
	c.Set(ctx, "rec_u1_2024-06-01", models.Recommendation{})
	c.Set(ctx, "rec_u1_2024-06-02_ab12", models.Recommendation{})
	c.Set(ctx, "rec_u10_2024-06-01", models.Recommendation{})

	if n := c.InvalidateUser(ctx, "u1"); n != 2 {
		t.Fatalf("expected 2 invalidated, got %d", n)
	}
	if _, ok := c.Get(ctx, "rec_u10_2024-06-01"); !ok {
		t.Fatalf("other user's entry must survive")
	}
}
