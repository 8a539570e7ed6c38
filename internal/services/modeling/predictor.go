package modeling

import (
	"context"
	"math"
	"time"

	"LoadCoach/internal/domain/models"
	domsvc "LoadCoach/internal/domain/service"
)

const (
	regressionConfidence     = 0.8
	regressionEdgeConfidence = 0.5
	classifierConfidence     = 0.75
	regressionConfidentCeil  = 500.0
	intervalFraction         = 0.1
	recoveryBalanceThreshold = -20.0
	enduranceStressThreshold = 100.0
	thresholdStressThreshold = 200.0
)

// Predictor serves predictions from the registry's current models.
type Predictor struct {
	registry *Registry
	now      func() time.Time
}

func NewPredictor(registry *Registry) *Predictor {
	return &Predictor{registry: registry, now: time.Now}
}

func (p *Predictor) Predict(ctx context.Context, userID string, features models.FeatureVector) (models.Prediction, error) {
	m, err := p.registry.Current(ctx, userID)
	if err != nil {
		return models.Prediction{}, err
	}
	return PredictWith(m, features, p.now())
}

// PredictWith applies m to features. The confidence values are heuristics:
// every prediction carries a [0,1] confidence, not a calibrated probability.
func PredictWith(m *FittedModel, features models.FeatureVector, at time.Time) (models.Prediction, error) {
	raw, err := m.PredictValues(features.Values())
	if err != nil {
		return models.Prediction{}, err
	}
	stress := math.Max(raw, 0)

	var confidence float64
	switch m.Kind {
	case models.KindRandomForest:
		confidence = classifierConfidence
	default:
		confidence = regressionEdgeConfidence
		if stress > 0 && stress < regressionConfidentCeil {
			confidence = regressionConfidence
		}
	}

	return models.Prediction{
		RecommendedStress: stress,
		Confidence:        confidence,
		LowerBound:        math.Max(stress*(1-intervalFraction), 0),
		UpperBound:        stress * (1 + intervalFraction),
		WorkoutType:       SuggestWorkoutType(features.TSB, stress),
		ModelVersion:      m.Version,
		PredictedAt:       at.UTC(),
	}, nil
}

// SuggestWorkoutType maps balance and predicted stress to a session label.
func SuggestWorkoutType(balance, stress float64) models.WorkoutType {
	switch {
	case balance < recoveryBalanceThreshold:
		return models.WorkoutRecovery
	case stress < enduranceStressThreshold:
		return models.WorkoutEndurance
	case stress < thresholdStressThreshold:
		return models.WorkoutThreshold
	default:
		return models.WorkoutVO2Max
	}
}

var _ domsvc.Predictor = (*Predictor)(nil)
