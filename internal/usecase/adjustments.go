package usecase

import (
	"fmt"
	"strings"

	"LoadCoach/internal/domain/models"
)

const (
	feedbackWeight      = 0.3
	stressPerHour       = 100.0
	intervalFraction    = 0.1
	warnBalance         = -20.0
	highFatigueBalance  = -15.0
	lowFatigueBalance   = 10.0
	lowConfidence       = 0.6
	longBreakDays       = 7
	mentionGapDays      = 3
	highVsAverageFactor = 1.5
)

var intensityTypes = map[string]models.WorkoutType{
	"easy":     models.WorkoutRecovery,
	"moderate": models.WorkoutEndurance,
	"hard":     models.WorkoutThreshold,
}

// fromPrediction applies user preferences to a model prediction. The interval
// keeps the predictor's relative width around the adjusted value, so the
// bounds always bracket the recommendation.
func (e *RecommendationEngine) fromPrediction(p models.Prediction, fv models.FeatureVector, req models.RecommendationRequest) models.Recommendation {
	lo, hi := 1-intervalFraction, 1+intervalFraction
	if p.RecommendedStress > 0 {
		lo, hi = p.LowerBound/p.RecommendedStress, p.UpperBound/p.RecommendedStress
	}

	stress, wt := e.applyPreferences(p.RecommendedStress, p.WorkoutType, req)
	stress = e.clamp(stress)

	rec := models.Recommendation{
		RecommendedStress: stress,
		Confidence:        p.Confidence,
		LowerBound:        stress * lo,
		UpperBound:        stress * hi,
		WorkoutType:       wt,
		ModelVersion:      p.ModelVersion,
	}
	rec.Reasoning = reasoning(fv)
	rec.Warnings = warnings(fv, rec)
	return rec
}

func (e *RecommendationEngine) applyPreferences(stress float64, wt models.WorkoutType, req models.RecommendationRequest) (float64, models.WorkoutType) {
	if fb := req.Feedback; fb != nil {
		factor := (float64(fb.EnergyLevel-5)/10 + float64(fb.Motivation-5)/10) / 2
		stress *= 1 + factor*feedbackWeight
		if t, ok := intensityTypes[strings.ToLower(strings.TrimSpace(fb.PreferredIntensity))]; ok {
			wt = t
		}
	}
	if req.PreferredWorkoutType != "" {
		wt = models.NormalizeWorkoutType(string(req.PreferredWorkoutType))
	}
	if req.MaxDurationMinutes != nil && *req.MaxDurationMinutes > 0 {
		limit := float64(*req.MaxDurationMinutes) / 60 * stressPerHour
		if stress > limit {
			stress = limit
			wt = models.WorkoutEndurance
		}
	}
	return stress, wt
}

// alternatives returns the easy option and, when the user is fresh enough,
// the hard one.
func (e *RecommendationEngine) alternatives(rec models.Recommendation, fv models.FeatureVector) []models.Recommendation {
	easy := e.clamp(rec.RecommendedStress * 0.75)
	out := []models.Recommendation{{
		UserID:            rec.UserID,
		Date:              rec.Date,
		RecommendedStress: easy,
		Confidence:        rec.Confidence * 0.9,
		LowerBound:        easy * 0.9,
		UpperBound:        easy * 1.1,
		WorkoutType:       models.WorkoutEndurance,
		ModelVersion:      rec.ModelVersion,
		Reasoning:         "Easier alternative for recovery-focused training",
		Warnings:          []string{},
		GeneratedAt:       rec.GeneratedAt,
	}}

	if fv.TSB > e.cfg.MaxBalanceForHard {
		hard := e.clamp(rec.RecommendedStress * 1.25)
		out = append(out, models.Recommendation{
			UserID:            rec.UserID,
			Date:              rec.Date,
			RecommendedStress: hard,
			Confidence:        rec.Confidence * 0.8,
			LowerBound:        hard * 0.85,
			UpperBound:        hard * 1.15,
			WorkoutType:       models.WorkoutThreshold,
			ModelVersion:      rec.ModelVersion,
			Reasoning:         "Harder alternative for performance-focused training",
			Warnings:          []string{},
			GeneratedAt:       rec.GeneratedAt,
		})
	}
	return out
}

func reasoning(fv models.FeatureVector) string {
	var parts []string
	switch {
	case fv.TSB < highFatigueBalance:
		parts = append(parts, "High fatigue levels suggest a recovery or easy workout")
	case fv.TSB > lowFatigueBalance:
		parts = append(parts, "Low fatigue levels allow for more intensive training")
	default:
		parts = append(parts, "Balanced training stress suggests moderate intensity training")
	}
	if fv.DaysSinceLastWorkout >= mentionGapDays {
		parts = append(parts, fmt.Sprintf("It's been %d days since your last workout", fv.DaysSinceLastWorkout))
	}
	if fv.CTL > fv.AvgWeeklyStress4Wk*7/4 {
		parts = append(parts, "Fitness levels are trending upward")
	}
	return strings.Join(parts, ". ")
}

func warnings(fv models.FeatureVector, rec models.Recommendation) []string {
	out := []string{}
	if fv.TSB < warnBalance {
		out = append(out, "Consider taking a rest day - high fatigue detected")
	}
	if fv.DaysSinceLastWorkout >= longBreakDays {
		out = append(out, "Long break from training - start gradually")
	}
	if rec.RecommendedStress > fv.AvgWeeklyStress4Wk*highVsAverageFactor {
		out = append(out, "Recommended TSS is significantly higher than recent average")
	}
	if rec.Confidence < lowConfidence {
		out = append(out, "Low confidence prediction - consider user feedback")
	}
	return out
}
