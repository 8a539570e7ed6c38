package models

import "time"

const (
	// NoRecentWorkout is used for days-since-last-workout when no prior session exists.
	NoRecentWorkout = 999
	// NoTargetEvent is used for days-until-event when no event is known.
	NoTargetEvent = -1
)

// FeatureCount is the width of FeatureVector.Values.
var FeatureCount = 8 + len(WorkoutVocabulary)

// FeatureVector is the model input for one user on one date.
type FeatureVector struct {
	UserID               string        `json:"user_id"`
	Date                 time.Time     `json:"date"`
	CTL                  float64       `json:"ctl"`
	ATL                  float64       `json:"atl"`
	TSB                  float64       `json:"tsb"`
	DaysSinceLastWorkout int           `json:"days_since_last_workout"`
	AvgWeeklyStress4Wk   float64       `json:"avg_weekly_stress_4weeks"`
	PerformanceTrend     float64       `json:"performance_trend"`
	DaysUntilEvent       int           `json:"days_until_event"`
	SeasonalFactor       float64       `json:"seasonal_factor"`
	PreferredTypes       []WorkoutType `json:"preferred_workout_types"`

	// SessionsInWindow is the number of sessions in the lookback window. It is
	// not a model input.
	SessionsInWindow int `json:"sessions_in_window"`
}

// Values flattens the vector in model order. The preferred types are one-hot
// encoded against WorkoutVocabulary.
func (f FeatureVector) Values() []float64 {
	out := make([]float64, 0, FeatureCount)
	out = append(out,
		f.CTL,
		f.ATL,
		f.TSB,
		float64(f.DaysSinceLastWorkout),
		f.AvgWeeklyStress4Wk,
		f.PerformanceTrend,
		float64(f.DaysUntilEvent),
		f.SeasonalFactor,
	)
	onehot := make([]float64, len(WorkoutVocabulary))
	for _, t := range f.PreferredTypes {
		if i := WorkoutTypeIndex(t); i >= 0 {
			onehot[i] = 1
		}
	}
	return append(out, onehot...)
}

// FeatureNames returns the column names matching Values.
func FeatureNames() []string {
	names := []string{
		"ctl", "atl", "tsb", "days_since_last_workout", "avg_weekly_stress_4weeks",
		"performance_trend", "days_until_event", "seasonal_factor",
	}
	for _, t := range WorkoutVocabulary {
		names = append(names, "type_"+string(t))
	}
	return names
}
