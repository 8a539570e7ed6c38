package features

import (
    "context"
    "fmt"
    "sort"
    "sync"
    "time"

    "LoadCoach/internal/domain/models"
    "LoadCoach/internal/domain/repository"
    domsvc "LoadCoach/internal/domain/service"
    "LoadCoach/pkg/logger"
    "LoadCoach/pkg/util"
)

const (
    DefaultLookbackDays = 30
    topTypeCount        = 3
    defaultBatchWorkers = 8
)

// Extractor builds feature vectors from a user's load history.
type Extractor struct {
    store        repository.LoadHistoryStore
    pmc          PMC
    lookbackDays int
    workers      int
    log          *logger.Logger
}

type Option func(*Extractor)

func WithLookbackDays(days int) Option {
    return func(e *Extractor) {
        if days > 0 {
            e.lookbackDays = days
        }
    }
}

func WithTimeConstants(chronicTau, acuteTau float64) Option {
    return func(e *Extractor) { e.pmc = NewPMC(chronicTau, acuteTau) }
}

func WithBatchWorkers(n int) Option {
    return func(e *Extractor) {
        if n > 0 {
            e.workers = n
        }
    }
}

func WithLogger(l *logger.Logger) Option {
    return func(e *Extractor) { e.log = l }
}

func NewExtractor(store repository.LoadHistoryStore, opts ...Option) *Extractor {
    e := &Extractor{
        store:        store,
        pmc:          NewPMC(DefaultChronicTau, DefaultAcuteTau),
        lookbackDays: DefaultLookbackDays,
        workers:      defaultBatchWorkers,
        log:          logger.NewNop(),
    }
    for _, opt := range opts {
        opt(e)
    }
    return e
}

// LookbackDays is the width of the feature window.
func (e *Extractor) LookbackDays() int { return e.lookbackDays }

// Extract loads the lookback window ending at date and computes the vector.
// Only a history store failure is an error; sparse data degrades to sentinels.
func (e *Extractor) Extract(ctx context.Context, userID string, date time.Time) (models.FeatureVector, error) {
    day := util.StartOfDay(date)
    records, err := e.store.SessionsBetween(ctx, userID, util.AddDays(day, -e.lookbackDays), day)
    if err != nil {
        return models.FeatureVector{}, fmt.Errorf("load history for %s: %w", userID, err)
    }
    return e.Compute(userID, day, records), nil
}

// Compute is the pure part of Extract. Records outside the window are ignored,
// so callers may pass a longer history.
func (e *Extractor) Compute(userID string, date time.Time, records []models.StressRecord) models.FeatureVector {
    day := util.StartOfDay(date)
    from := util.AddDays(day, -e.lookbackDays)
    window := windowRecords(records, from, day)

    fv := models.FeatureVector{
        UserID:               userID,
        Date:                 day,
        DaysSinceLastWorkout: DaysSinceLastWorkout(window, day),
        AvgWeeklyStress4Wk:   AvgWeeklyStress4Weeks(window),
        PerformanceTrend:     PerformanceTrend(window),
        DaysUntilEvent:       models.NoTargetEvent,
        SeasonalFactor:       SeasonalFactor(day.Month()),
        PreferredTypes:       TopWorkoutTypes(window, topTypeCount),
        SessionsInWindow:     len(window),
    }

    series := e.pmc.CalculateRange(AggregateDaily(window), from, day)
    if n := len(series); n > 0 {
        last := series[n-1]
        fv.CTL, fv.ATL, fv.TSB = last.Chronic, last.Acute, last.Balance
    }
    return fv
}

// windowRecords returns the records with from <= date <= to in chronological order.
func windowRecords(records []models.StressRecord, from, to time.Time) []models.StressRecord {
    out := make([]models.StressRecord, 0, len(records))
    for _, r := range records {
        d := util.StartOfDay(r.Date)
        if d.Before(from) || d.After(to) {
            continue
        }
        out = append(out, r)
    }
    sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
    return out
}

// Query is one (user, date) pair of a batch extraction.
type Query struct {
    UserID string
    Date   time.Time
}

// ExtractBatch extracts many vectors concurrently. Failed queries are logged
// and skipped; the result keeps the input order of the successful ones.
func (e *Extractor) ExtractBatch(ctx context.Context, queries []Query) []models.FeatureVector {
    type slot struct {
        fv models.FeatureVector
        ok bool
    }
    results := make([]slot, len(queries))
    sem := make(chan struct{}, e.workers)
    var wg sync.WaitGroup

    for i, q := range queries {
        wg.Add(1)
        go func(i int, q Query) {
            defer wg.Done()
            sem <- struct{}{}
            defer func() { <-sem }()

            fv, err := e.Extract(ctx, q.UserID, q.Date)
            if err != nil {
                e.log.Warn("feature extraction failed",
                    logger.String("user_id", q.UserID),
                    logger.String("date", util.FormatDay(q.Date)),
                    logger.Error(err))
                return
            }
            results[i] = slot{fv: fv, ok: true}
        }(i, q)
    }
    wg.Wait()

    out := make([]models.FeatureVector, 0, len(queries))
    for _, r := range results {
        if r.ok {
            out = append(out, r.fv)
        }
    }
    return out
}

// BuildSamples pairs the features of the day before each session in [from, to]
// with that session's realized stress. History is fetched once.
func (e *Extractor) BuildSamples(ctx context.Context, userID string, from, to time.Time) ([]models.TrainingSample, error) {
    from, to = util.StartOfDay(from), util.StartOfDay(to)
    records, err := e.store.SessionsBetween(ctx, userID, util.AddDays(from, -e.lookbackDays-1), to)
    if err != nil {
        return nil, fmt.Errorf("load history for %s: %w", userID, err)
    }
    sort.SliceStable(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })

    samples := make([]models.TrainingSample, 0, len(records))
    for _, r := range records {
        day := util.StartOfDay(r.Date)
        if day.Before(from) || day.After(to) {
            continue
        }
        samples = append(samples, models.TrainingSample{
            Features:          e.Compute(userID, util.AddDays(day, -1), records),
            ActualStress:      r.Stress,
            ActualWorkoutType: models.NormalizeWorkoutType(r.WorkoutType),
            Date:              day,
        })
    }
    return samples, nil
}

var _ domsvc.FeatureExtractor = (*Extractor)(nil)
