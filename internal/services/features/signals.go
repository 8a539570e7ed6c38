package features

import (
    "math"
    "sort"
    "time"

    "LoadCoach/internal/domain/models"
    "LoadCoach/pkg/util"
)

// DaysSinceLastWorkout is the smallest gap between ref and a session strictly
// before it, or models.NoRecentWorkout when there is none.
func DaysSinceLastWorkout(records []models.StressRecord, ref time.Time) int {
    best := models.NoRecentWorkout
    day := util.StartOfDay(ref)
    for _, r := range records {
        d := util.StartOfDay(r.Date)
        if !d.Before(day) {
            continue
        }
        if gap := util.DaysBetween(d, day); gap < best {
            best = gap
        }
    }
    return best
}

// AvgWeeklyStress4Weeks is the total stress of the window divided by four weeks.
func AvgWeeklyStress4Weeks(records []models.StressRecord) float64 {
    total := 0.0
    for _, r := range records {
        total += r.Stress
    }
    return total / 4
}

// PerformanceTrend compares the mean stress of the later half of the sessions
// with the earlier half, normalized into [-1, 1]. Records must be in
// chronological order.
func PerformanceTrend(records []models.StressRecord) float64 {
    if len(records) < 2 {
        return 0
    }
    half := len(records) / 2
    older := meanStress(records[:half])
    recent := meanStress(records[half:])
    trend := (recent - older) / (recent + older + 1)
    return math.Max(-1, math.Min(1, trend))
}

func meanStress(records []models.StressRecord) float64 {
    if len(records) == 0 {
        return 0
    }
    sum := 0.0
    for _, r := range records {
        sum += r.Stress
    }
    return sum / float64(len(records))
}

// SeasonalFactor maps a calendar month to a training-conditions multiplier.
func SeasonalFactor(month time.Month) float64 {
    switch month {
    case time.December, time.January, time.February:
        return 0.7
    case time.March, time.April, time.May:
        return 0.9
    case time.June, time.July, time.August:
        return 1.0
    default:
        return 0.8
    }
}

// TopWorkoutTypes returns up to n most frequent normalized tags. Ties are
// broken alphabetically so the encoding is stable.
func TopWorkoutTypes(records []models.StressRecord, n int) []models.WorkoutType {
    counts := make(map[models.WorkoutType]int)
    for _, r := range records {
        t := models.NormalizeWorkoutType(r.WorkoutType)
        if t == "" {
            continue
        }
        counts[t]++
    }
    types := make([]models.WorkoutType, 0, len(counts))
    for t := range counts {
        types = append(types, t)
    }
    sort.Slice(types, func(i, j int) bool {
        if counts[types[i]] != counts[types[j]] {
            return counts[types[i]] > counts[types[j]]
        }
        return types[i] < types[j]
    })
    if len(types) > n {
        types = types[:n]
    }
    return types
}

// ComputeLoadStats summarizes stress scores with the sample standard deviation.
func ComputeLoadStats(records []models.StressRecord) models.LoadStats {
    stats := models.LoadStats{SessionCount: len(records)}
    if len(records) == 0 {
        return stats
    }
    stats.Mean = meanStress(records)
    stats.Min, stats.Max = math.Inf(1), math.Inf(-1)
    for _, r := range records {
        stats.Min = math.Min(stats.Min, r.Stress)
        stats.Max = math.Max(stats.Max, r.Stress)
    }
    if len(records) > 1 {
        ss := 0.0
        for _, r := range records {
            ss += (r.Stress - stats.Mean) * (r.Stress - stats.Mean)
        }
        stats.StdDev = math.Sqrt(ss / float64(len(records)-1))
    }
    return stats
}
