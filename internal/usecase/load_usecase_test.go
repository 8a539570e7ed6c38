package usecase

import (
	"context"
	"testing"
	"time"

	"LoadCoach/internal/domain/models"
	pkgcache "LoadCoach/pkg/cache"
)

type countingStore struct {
	records []models.StressRecord
	calls   int
}

func (s *countingStore) SessionsBetween(_ context.Context, _ string, from, to time.Time) ([]models.StressRecord, error) {
	s.calls++
	var out []models.StressRecord
	for _, r := range s.records {
		if !r.Date.Before(from) && !r.Date.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestLoadSeriesIsDenseAndCached(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	store := &countingStore{records: []models.StressRecord{
		{UserID: "u1", Date: day.AddDate(0, 0, -5), Stress: 100},
		{UserID: "u1", Date: day.AddDate(0, 0, -2), Stress: 60},
	}}
	mc := pkgcache.NewMemoryCache(pkgcache.WithMemoryCleanup(0))
	defer mc.Close()

	uc := NewLoadUseCase(store, mc, nil)
	uc.now = func() time.Time { return day.Add(8 * time.Hour) }
	ctx := context.Background()

	s, err := uc.LoadSeries(ctx, "u1", 14)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if len(s.Points) != 14 {
		t.Fatalf("expected 14 dense points, got %d", len(s.Points))
	}
	last := s.Points[len(s.Points)-1]
	if last.Balance != last.Chronic-last.Acute || last.Chronic <= 0 {
		t.Fatalf("unexpected last point %+v", last)
	}

	if _, err := uc.LoadSeries(ctx, "u1", 14); err != nil || store.calls != 1 {
		t.Fatalf("expected cached series, store calls %d", store.calls)
	}
	if n := uc.InvalidateUser(ctx, "u1"); n != 1 {
		t.Fatalf("expected 1 invalidated series, got %d", n)
	}
	if _, _ = uc.LoadSeries(ctx, "u1", 14); store.calls != 2 {
		t.Fatalf("expected recompute after invalidation, store calls %d", store.calls)
	}
}

func TestLoadStats(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	store := &countingStore{records: []models.StressRecord{
		{Date: day.AddDate(0, 0, -3), Stress: 50},
		{Date: day.AddDate(0, 0, -1), Stress: 150},
	}}
	uc := NewLoadUseCase(store, nil, nil)
	uc.now = func() time.Time { return day }

	st, err := uc.LoadStats(context.Background(), "u1", 30)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.SessionCount != 2 || st.Mean != 100 || st.Min != 50 || st.Max != 150 || st.UserID != "u1" || st.Days != 30 {
		t.Fatalf("unexpected stats %+v", st)
	}
}
