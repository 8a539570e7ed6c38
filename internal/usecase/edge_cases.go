package usecase

import (
	"math"

	"LoadCoach/internal/domain/models"
)

const (
	fallbackConfidence   = 0.6
	fallbackModelVersion = "edge_case_handler_v1"
	fallbackLowerFactor  = 0.8
	fallbackUpperFactor  = 1.2
)

// DetectEdgeCase classifies fv in fixed order; the first match wins.
func (e *RecommendationEngine) DetectEdgeCase(fv models.FeatureVector) models.EdgeCase {
	switch {
	case fv.AvgWeeklyStress4Wk == 0 || fv.DaysSinceLastWorkout > e.cfg.NewUserThresholdDays:
		return models.EdgeCaseNewUser
	case fv.TSB < e.cfg.MinBalanceForRecovery:
		return models.EdgeCaseOvertrained
	case fv.SessionsInWindow < e.cfg.MinDataPoints:
		return models.EdgeCaseInsufficientData
	case fv.TSB > e.cfg.DetrainingCeiling:
		return models.EdgeCaseDetraining
	default:
		return models.EdgeCaseNone
	}
}

// fallback builds the fixed conservative recommendation of an edge case.
// no_model uses the insufficient_data policy.
func (e *RecommendationEngine) fallback(edge models.EdgeCase, fv models.FeatureVector) models.Recommendation {
	var stress float64
	var wt models.WorkoutType
	var reasoning string

	switch edge {
	case models.EdgeCaseNewUser:
		stress, wt = e.cfg.FallbackEasy, models.WorkoutEndurance
		reasoning = "New user detected - starting with conservative endurance workout"
	case models.EdgeCaseOvertrained:
		stress, wt = e.cfg.FallbackEasy*0.5, models.WorkoutRecovery
		reasoning = "High fatigue detected (TSB < -25) - recommending recovery workout"
	case models.EdgeCaseDetraining:
		stress, wt = e.cfg.FallbackModerate, models.WorkoutEndurance
		reasoning = "Extended break detected - gradual return to training recommended"
	default:
		stress, wt = math.Max(fv.AvgWeeklyStress4Wk, e.cfg.FallbackEasy), models.WorkoutEndurance
		reasoning = "Limited recent data - using conservative recommendation"
	}

	stress = e.clamp(stress)
	return models.Recommendation{
		RecommendedStress: stress,
		Confidence:        fallbackConfidence,
		LowerBound:        stress * fallbackLowerFactor,
		UpperBound:        stress * fallbackUpperFactor,
		WorkoutType:       wt,
		ModelVersion:      fallbackModelVersion,
		EdgeCase:          edge,
		Reasoning:         reasoning,
		Warnings:          []string{"Edge case detected: " + string(edge)},
	}
}

func (e *RecommendationEngine) clamp(v float64) float64 {
	return math.Min(math.Max(v, e.cfg.MinStress), e.cfg.MaxStress)
}
