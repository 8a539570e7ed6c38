package modeling

import "LoadCoach/internal/domain/models"

const (
	minSufficientSamples   = 20
	minSufficientComplete  = 0.7
	targetSamples          = 50
	targetCompleteness     = 0.8
	validStressUpper       = 1000.0
	extremeStressThreshold = 500.0
)

// AssessQuality reports how usable samples are for training.
func AssessQuality(userID string, samples []models.TrainingSample) models.DataQualityReport {
	r := models.DataQualityReport{UserID: userID, TotalSamples: len(samples)}
	for _, s := range samples {
		if s.ActualStress > 0 && s.ActualStress < validStressUpper {
			r.ValidSamples++
		}
		if s.ActualStress == 0 {
			r.ZeroStress++
		}
		if s.ActualStress > extremeStressThreshold {
			r.ExtremeStress++
		}
	}
	if r.TotalSamples > 0 {
		r.DataCompleteness = float64(r.ValidSamples) / float64(r.TotalSamples)
	}
	r.IsSufficient = r.TotalSamples >= minSufficientSamples && r.DataCompleteness >= minSufficientComplete
	r.Recommendations = qualityAdvice(r)
	return r
}

func qualityAdvice(r models.DataQualityReport) []string {
	var out []string
	if r.TotalSamples < targetSamples {
		out = append(out, "Collect more training data - aim for at least 50 workout sessions")
	}
	if r.DataCompleteness < targetCompleteness {
		out = append(out, "Improve data quality - ensure stress scores are recorded for all workouts")
	}
	if r.ZeroStress > r.TotalSamples/4 {
		out = append(out, "Review zero-stress sessions - many workouts have no training stress recorded")
	}
	if r.ExtremeStress > r.TotalSamples/10 {
		out = append(out, "Review high-stress sessions - some workouts may have unrealistic stress values")
	}
	if len(out) == 0 {
		out = append(out, "Data quality is good - models should train effectively")
	}
	return out
}
