package features

import (
    "math"
    "sort"
    "time"

    "LoadCoach/internal/domain/models"
    "LoadCoach/pkg/util"
)

const (
    // DefaultChronicTau is the chronic (fitness) time constant in days.
    DefaultChronicTau = 42.0
    // DefaultAcuteTau is the acute (fatigue) time constant in days.
    DefaultAcuteTau = 7.0
)

// PMC is the performance-management calculator. The zero value is not usable;
// build it with NewPMC.
type PMC struct {
    chronicAlpha float64
    acuteAlpha   float64
}

// NewPMC builds a calculator for the given time constants. Non-positive
// values fall back to the defaults.
func NewPMC(chronicTau, acuteTau float64) PMC {
    if chronicTau <= 0 {
        chronicTau = DefaultChronicTau
    }
    if acuteTau <= 0 {
        acuteTau = DefaultAcuteTau
    }
    return PMC{
        chronicAlpha: SmoothingFactor(chronicTau),
        acuteAlpha:   SmoothingFactor(acuteTau),
    }
}

// SmoothingFactor is the EMA weight 1 - exp(-1/tau).
func SmoothingFactor(tau float64) float64 {
    return 1 - math.Exp(-1/tau)
}

// AggregateDaily sums stress per calendar day and returns the days in order.
// Negative scores are treated as zero.
func AggregateDaily(records []models.StressRecord) []models.DailyStress {
    if len(records) == 0 {
        return []models.DailyStress{}
    }
    byDay := make(map[int64]float64, len(records))
    for _, r := range records {
        byDay[util.StartOfDay(r.Date).Unix()] += math.Max(r.Stress, 0)
    }
    out := make([]models.DailyStress, 0, len(byDay))
    for k, v := range byDay {
        out = append(out, models.DailyStress{Date: time.Unix(k, 0).UTC(), Stress: v})
    }
    sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
    return out
}

// Calculate returns the dense series from the first to the last day present
// in points. An empty input yields an empty series.
func (p PMC) Calculate(points []models.DailyStress) []models.LoadState {
    if len(points) == 0 {
        return []models.LoadState{}
    }
    first, last := points[0].Date, points[0].Date
    for _, pt := range points[1:] {
        if pt.Date.Before(first) {
            first = pt.Date
        }
        if pt.Date.After(last) {
            last = pt.Date
        }
    }
    return p.CalculateRange(points, first, last)
}

// CalculateRange returns one LoadState per day in [from, to]. Loads start at
// zero on from; points outside the range are ignored and missing days count
// as zero stress.
func (p PMC) CalculateRange(points []models.DailyStress, from, to time.Time) []models.LoadState {
    from, to = util.StartOfDay(from), util.StartOfDay(to)
    if to.Before(from) {
        return []models.LoadState{}
    }

    byDay := make(map[int64]float64, len(points))
    for _, pt := range points {
        byDay[util.StartOfDay(pt.Date).Unix()] += math.Max(pt.Stress, 0)
    }

    n := util.DaysBetween(from, to) + 1
    out := make([]models.LoadState, n)
    var chronic, acute float64
    for i := 0; i < n; i++ {
        day := from.AddDate(0, 0, i)
        stress := byDay[day.Unix()]
        chronic += p.chronicAlpha * (stress - chronic)
        acute += p.acuteAlpha * (stress - acute)
        out[i] = models.LoadState{
            Date:    day,
            Chronic: chronic,
            Acute:   acute,
            Balance: chronic - acute,
        }
    }
    return out
}
