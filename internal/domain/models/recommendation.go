package models

import "time"

// EdgeCase names a user state that bypasses the trained model.
type EdgeCase string

const (
	EdgeCaseNone             EdgeCase = ""
	EdgeCaseNewUser          EdgeCase = "new_user"
	EdgeCaseOvertrained      EdgeCase = "overtrained"
	EdgeCaseInsufficientData EdgeCase = "insufficient_data"
	EdgeCaseDetraining       EdgeCase = "detraining"
	EdgeCaseNoModel          EdgeCase = "no_model"
)

// Prediction is the raw output of a fitted model before the decision layer.
type Prediction struct {
	RecommendedStress float64     `json:"recommended_stress"`
	Confidence        float64     `json:"confidence"`
	LowerBound        float64     `json:"lower_bound"`
	UpperBound        float64     `json:"upper_bound"`
	WorkoutType       WorkoutType `json:"workout_type"`
	ModelVersion      string      `json:"model_version"`
	PredictedAt       time.Time   `json:"predicted_at"`
}

// Recommendation is what the engine returns to the host.
type Recommendation struct {
	UserID            string           `json:"user_id"`
	Date              string           `json:"date"`
	RecommendedStress float64          `json:"recommended_stress"`
	Confidence        float64          `json:"confidence"`
	LowerBound        float64          `json:"lower_bound"`
	UpperBound        float64          `json:"upper_bound"`
	WorkoutType       WorkoutType      `json:"workout_type"`
	ModelVersion      string           `json:"model_version"`
	EdgeCase          EdgeCase         `json:"edge_case,omitempty"`
	Alternatives      []Recommendation `json:"alternatives,omitempty"`
	Reasoning         string           `json:"reasoning,omitempty"`
	Warnings          []string         `json:"warnings"`
	Cached            bool             `json:"cached"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

// UserFeedback carries subjective inputs, all on 1-10 scales except the
// duration and the intensity label.
type UserFeedback struct {
	PerceivedDifficulty  int    `json:"perceived_difficulty"`
	EnergyLevel          int    `json:"energy_level"`
	Motivation           int    `json:"motivation"`
	AvailableTimeMinutes int    `json:"available_time_minutes"`
	PreferredIntensity   string `json:"preferred_intensity"`
}

// RecommendationRequest is the engine input.
type RecommendationRequest struct {
	UserID               string
	TargetDate           *time.Time
	PreferredWorkoutType WorkoutType
	MaxDurationMinutes   *int
	Feedback             *UserFeedback
	TargetEventDate      *time.Time
}

// RecommendationEvent is the write-once analytics record of a generated recommendation.
type RecommendationEvent struct {
	ID                string      `json:"id"`
	UserID            string      `json:"user_id"`
	Date              string      `json:"date"`
	RecommendedStress float64     `json:"recommended_stress"`
	Confidence        float64     `json:"confidence"`
	WorkoutType       WorkoutType `json:"workout_type"`
	ModelVersion      string      `json:"model_version"`
	EdgeCase          EdgeCase    `json:"edge_case,omitempty"`
	AlternativesCount int         `json:"alternatives_count"`
	WarningsCount     int         `json:"warnings_count"`
	Cached            bool        `json:"cached"`
	GeneratedAt       time.Time   `json:"generated_at"`
}

// CacheStats reports the size of the recommendation cache.
type CacheStats struct {
	Total   int `json:"total"`
	Expired int `json:"expired"`
}

// WorkoutCompletedEvent is published by the host when a session is recorded.
type WorkoutCompletedEvent struct {
	UserID      string    `json:"user_id"`
	Date        time.Time `json:"date"`
	Stress      float64   `json:"stress"`
	DurationMin int       `json:"duration_minutes"`
	WorkoutType string    `json:"workout_type"`
}
