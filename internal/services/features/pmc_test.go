package features

import (
    "math"
    "testing"
    "time"

    "LoadCoach/internal/domain/models"
)

func day(y int, m time.Month, d int) time.Time {
    return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPMCEmptySeries(t *testing.T) {
    got := NewPMC(42, 7).Calculate(nil)
    if got == nil || len(got) != 0 {
        t.Fatalf("expected empty non-nil series, got %v", got)
    }
}

func TestPMCDenseAndZeroFilled(t *testing.T) {
    points := []models.DailyStress{
        {Date: day(2024, 5, 1), Stress: 100},
        {Date: day(2024, 5, 4), Stress: 50},
    }
    got := NewPMC(42, 7).Calculate(points)
    if len(got) != 4 {
        t.Fatalf("expected 4 days, got %d", len(got))
    }

    a42 := 1 - math.Exp(-1.0/42)
    a7 := 1 - math.Exp(-1.0/7)
    if math.Abs(got[0].Chronic-100*a42) > 1e-9 || math.Abs(got[0].Acute-100*a7) > 1e-9 {
        t.Fatalf("unexpected first day %+v", got[0])
    }
    // missing days decay toward zero
    if !(got[1].Acute < got[0].Acute && got[2].Acute < got[1].Acute) {
        t.Fatalf("expected decay on rest days: %+v", got[:3])
    }
    for _, s := range got {
        if math.Abs(s.Balance-(s.Chronic-s.Acute)) > 1e-12 {
            t.Fatalf("balance must equal chronic - acute: %+v", s)
        }
    }
}

func TestPMCDeterministicAndNonNegative(t *testing.T) {
    var points []models.DailyStress
    for i := 0; i < 120; i++ {
        if i%3 == 0 {
            continue
        }
        points = append(points, models.DailyStress{Date: day(2024, 1, 1).AddDate(0, 0, i), Stress: float64((i * 37) % 180)})
    }
    pmc := NewPMC(42, 7)
    a := pmc.Calculate(points)
    b := pmc.Calculate(points)
    if len(a) != len(b) {
        t.Fatalf("length differs")
    }
    for i := range a {
        if a[i] != b[i] {
            t.Fatalf("series differ at %d: %+v vs %+v", i, a[i], b[i])
        }
        if a[i].Chronic < 0 || a[i].Acute < 0 {
            t.Fatalf("negative load at %d: %+v", i, a[i])
        }
    }
}

func TestPMCRangeIgnoresOutsidePoints(t *testing.T) {
    points := []models.DailyStress{
        {Date: day(2024, 5, 1), Stress: 500},
        {Date: day(2024, 5, 10), Stress: 80},
    }
    got := NewPMC(42, 7).CalculateRange(points, day(2024, 5, 9), day(2024, 5, 11))
    if len(got) != 3 {
        t.Fatalf("expected 3 days, got %d", len(got))
    }
    if got[0].Chronic != 0 || got[0].Acute != 0 {
        t.Fatalf("range must start from zero load, got %+v", got[0])
    }
    if got := NewPMC(42, 7).CalculateRange(points, day(2024, 5, 2), day(2024, 5, 1)); len(got) != 0 {
        t.Fatalf("inverted range must be empty")
    }
}

func TestAggregateDailySumsSameDay(t *testing.T) {
    recs := []models.StressRecord{
        {Date: day(2024, 5, 2).Add(18 * time.Hour), Stress: 30},
        {Date: day(2024, 5, 1), Stress: 10},
        {Date: day(2024, 5, 2).Add(6 * time.Hour), Stress: 20},
    }
    got := AggregateDaily(recs)
    if len(got) != 2 || got[0].Stress != 10 || got[1].Stress != 50 {
        t.Fatalf("unexpected aggregation %+v", got)
    }
}
