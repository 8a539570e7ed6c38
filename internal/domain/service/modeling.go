package service

import (
	"context"
	"time"

	"LoadCoach/internal/domain/models"
)

// FeatureExtractor builds the model input for a user at a date.
type FeatureExtractor interface {
	Extract(ctx context.Context, userID string, date time.Time) (models.FeatureVector, error)
}

// Predictor applies the user's current fitted model.
type Predictor interface {
	Predict(ctx context.Context, userID string, features models.FeatureVector) (models.Prediction, error)
}

// AnalyticsRecorder records generated recommendations on a best-effort basis.
type AnalyticsRecorder interface {
	Record(ctx context.Context, ev models.RecommendationEvent) error
}
