package features

import (
    "math"
    "testing"
    "time"

    "LoadCoach/internal/domain/models"
)

func TestSeasonalFactor(t *testing.T) {
    cases := map[time.Month]float64{
        time.December: 0.7, time.February: 0.7,
        time.March: 0.9, time.May: 0.9,
        time.June: 1.0, time.August: 1.0,
        time.September: 0.8, time.November: 0.8,
    }
    for m, want := range cases {
        if got := SeasonalFactor(m); got != want {
            t.Fatalf("%s: got %v want %v", m, got, want)
        }
    }
}

func TestPerformanceTrendClampedAndChronological(t *testing.T) {
    rising := []models.StressRecord{{Stress: 0}, {Stress: 0}, {Stress: 1000}, {Stress: 1000}}
    if got := PerformanceTrend(rising); got <= 0.99 || got > 1 {
        t.Fatalf("expected near 1, got %v", got)
    }
    falling := []models.StressRecord{{Stress: 200}, {Stress: 150}, {Stress: 20}, {Stress: 10}}
    if got := PerformanceTrend(falling); got >= 0 {
        t.Fatalf("falling load must give a negative trend, got %v", got)
    }
    if got := PerformanceTrend([]models.StressRecord{{Stress: 10}}); got != 0 {
        t.Fatalf("single session must give 0, got %v", got)
    }
}

func TestComputeLoadStats(t *testing.T) {
    got := ComputeLoadStats([]models.StressRecord{{Stress: 50}, {Stress: 100}, {Stress: 150}})
    if got.Mean != 100 || got.Min != 50 || got.Max != 150 || got.SessionCount != 3 {
        t.Fatalf("unexpected stats %+v", got)
    }
    if math.Abs(got.StdDev-50) > 1e-9 {
        t.Fatalf("expected sample std 50, got %v", got.StdDev)
    }
    empty := ComputeLoadStats(nil)
    if empty.SessionCount != 0 || empty.Mean != 0 {
        t.Fatalf("unexpected empty stats %+v", empty)
    }
}
