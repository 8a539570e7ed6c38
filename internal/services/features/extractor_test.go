package features

import (
    "context"
    "errors"
    "math"
    "testing"
    "time"

    "LoadCoach/internal/domain/models"
    "LoadCoach/pkg/util"
)

type memStore struct {
    records map[string][]models.StressRecord
    fail    map[string]error
}

func (m *memStore) SessionsBetween(_ context.Context, userID string, from, to time.Time) ([]models.StressRecord, error) {
    if err := m.fail[userID]; err != nil {
        return nil, err
    }
    var out []models.StressRecord
    for _, r := range m.records[userID] {
        d := util.StartOfDay(r.Date)
        if d.Before(util.StartOfDay(from)) || d.After(util.StartOfDay(to)) {
            continue
        }
        out = append(out, r)
    }
    return out, nil
}

func TestExtractEmptyHistoryUsesSentinels(t *testing.T) {
    e := NewExtractor(&memStore{})
    fv, err := e.Extract(context.Background(), "u1", day(2024, 7, 15))
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if fv.DaysSinceLastWorkout != models.NoRecentWorkout {
        t.Fatalf("expected sentinel, got %d", fv.DaysSinceLastWorkout)
    }
    if fv.DaysUntilEvent != models.NoTargetEvent || fv.PerformanceTrend != 0 || fv.AvgWeeklyStress4Wk != 0 {
        t.Fatalf("unexpected defaults %+v", fv)
    }
    if fv.SeasonalFactor != 1.0 {
        t.Fatalf("july must be 1.0, got %v", fv.SeasonalFactor)
    }
    if len(fv.Values()) != models.FeatureCount {
        t.Fatalf("expected %d values, got %d", models.FeatureCount, len(fv.Values()))
    }
}

func TestExtractComputesWindowSignals(t *testing.T) {
    ref := day(2024, 1, 31)
    store := &memStore{records: map[string][]models.StressRecord{"u1": {
        {Date: day(2023, 12, 1), Stress: 900, WorkoutType: "strength"}, // outside window
        {Date: day(2024, 1, 10), Stress: 40, WorkoutType: "Endurance"},
        {Date: day(2024, 1, 12), Stress: 60, WorkoutType: "endurance"},
        {Date: day(2024, 1, 20), Stress: 100, WorkoutType: "threshold"},
        {Date: day(2024, 1, 27), Stress: 120, WorkoutType: "vo2max"},
        {Date: day(2024, 1, 28), Stress: 80, WorkoutType: "endurance"},
    }}}
    fv, err := NewExtractor(store).Extract(context.Background(), "u1", ref)
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if fv.DaysSinceLastWorkout != 3 {
        t.Fatalf("expected 3 days since last, got %d", fv.DaysSinceLastWorkout)
    }
    if fv.AvgWeeklyStress4Wk != 100 {
        t.Fatalf("expected 400/4, got %v", fv.AvgWeeklyStress4Wk)
    }
    if fv.SessionsInWindow != 5 {
        t.Fatalf("expected 5 sessions, got %d", fv.SessionsInWindow)
    }
    // older half [40 60] mean 50, recent half [100 120 80] mean 100
    want := (100.0 - 50.0) / (100.0 + 50.0 + 1)
    if math.Abs(fv.PerformanceTrend-want) > 1e-9 {
        t.Fatalf("trend %v want %v", fv.PerformanceTrend, want)
    }
    if fv.SeasonalFactor != 0.7 {
        t.Fatalf("january must be 0.7, got %v", fv.SeasonalFactor)
    }
    if len(fv.PreferredTypes) != 3 || fv.PreferredTypes[0] != models.WorkoutEndurance {
        t.Fatalf("unexpected top types %v", fv.PreferredTypes)
    }
    vals := fv.Values()
    if vals[8] != 1 || vals[9] != 1 || vals[10] != 1 || vals[11] != 0 || vals[12] != 0 {
        t.Fatalf("unexpected one-hot %v", vals[8:])
    }
    if fv.CTL <= 0 || fv.ATL <= 0 {
        t.Fatalf("expected positive loads %+v", fv)
    }
}

func TestExtractPropagatesStoreError(t *testing.T) {
    boom := errors.New("boom")
    e := NewExtractor(&memStore{fail: map[string]error{"u1": boom}})
    if _, err := e.Extract(context.Background(), "u1", day(2024, 1, 1)); !errors.Is(err, boom) {
        t.Fatalf("expected wrapped store error, got %v", err)
    }
}

func TestExtractBatchSkipsFailures(t *testing.T) {
    store := &memStore{
        records: map[string][]models.StressRecord{"ok": {{Date: day(2024, 3, 1), Stress: 50}}},
        fail:    map[string]error{"bad": errors.New("down")},
    }
    got := NewExtractor(store).ExtractBatch(context.Background(), []Query{
        {UserID: "ok", Date: day(2024, 3, 2)},
        {UserID: "bad", Date: day(2024, 3, 2)},
        {UserID: "new", Date: day(2024, 3, 2)},
    })
    if len(got) != 2 || got[0].UserID != "ok" || got[1].UserID != "new" {
        t.Fatalf("unexpected batch result %+v", got)
    }
}

func TestBuildSamplesUsesPreviousDay(t *testing.T) {
    var recs []models.StressRecord
    for i := 0; i < 10; i++ {
        recs = append(recs, models.StressRecord{Date: day(2024, 4, 1).AddDate(0, 0, i*2), Stress: float64(50 + i), WorkoutType: "endurance"})
    }
    store := &memStore{records: map[string][]models.StressRecord{"u1": recs}}
    samples, err := NewExtractor(store).BuildSamples(context.Background(), "u1", day(2024, 4, 1), day(2024, 4, 30))
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if len(samples) != 10 {
        t.Fatalf("expected 10 samples, got %d", len(samples))
    }
    if samples[0].Features.DaysSinceLastWorkout != models.NoRecentWorkout {
        t.Fatalf("first sample has no prior session")
    }
    if samples[1].Features.DaysSinceLastWorkout != 1 || samples[1].ActualStress != 51 {
        t.Fatalf("unexpected second sample %+v", samples[1])
    }
    if !samples[1].Features.Date.Equal(day(2024, 4, 2)) {
        t.Fatalf("features must be computed for the day before, got %v", samples[1].Features.Date)
    }
}
