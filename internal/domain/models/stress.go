package models

import "time"

// StressRecord is one completed session as supplied by the load history store.
type StressRecord struct {
	UserID      string        `json:"user_id"`
	Date        time.Time     `json:"date"`
	Stress      float64       `json:"stress"`
	Duration    time.Duration `json:"duration"`
	WorkoutType string        `json:"workout_type"`
}

// DailyStress is the summed stress of all sessions on one calendar day.
type DailyStress struct {
	Date   time.Time
	Stress float64
}

// LoadState is one day of the performance-management series.
type LoadState struct {
	Date    time.Time `json:"date"`
	Chronic float64   `json:"chronic_load"`
	Acute   float64   `json:"acute_load"`
	Balance float64   `json:"balance"`
}

// LoadStats summarizes the stress scores of a user's recent sessions.
type LoadStats struct {
	UserID       string  `json:"user_id"`
	Days         int     `json:"days"`
	Mean         float64 `json:"mean_stress"`
	StdDev       float64 `json:"std_stress"`
	Min          float64 `json:"min_stress"`
	Max          float64 `json:"max_stress"`
	SessionCount int     `json:"session_count"`
}

// LoadSeries is the dense chronic/acute/balance series for a user.
type LoadSeries struct {
	UserID string      `json:"user_id"`
	Days   int         `json:"days"`
	Points []LoadState `json:"points"`
}
