package models

import "time"

// ModelKind tags which algorithm a fitted model uses.
type ModelKind string

const (
	KindLinearRegression ModelKind = "linear_regression"
	KindRandomForest     ModelKind = "random_forest"
)

// VersionPrefix is the prefix of version strings produced for a kind.
func (k ModelKind) VersionPrefix() string {
	switch k {
	case KindRandomForest:
		return "forest"
	default:
		return "linear"
	}
}

// IsValid returns true for known kinds.
func (k ModelKind) IsValid() bool {
	return k == KindLinearRegression || k == KindRandomForest
}

// TrainingSample joins the features of day N-1 with the outcome of day N.
type TrainingSample struct {
	Features          FeatureVector `json:"features"`
	ActualStress      float64       `json:"actual_stress"`
	ActualWorkoutType WorkoutType   `json:"actual_workout_type"`
	PerformanceRating *float64      `json:"performance_rating,omitempty"`
	RecoveryRating    *float64      `json:"recovery_rating,omitempty"`
	Date              time.Time     `json:"date"`
}

// ModelMetrics is the held-out evaluation of one training run.
type ModelMetrics struct {
	Kind        ModelKind `json:"kind"`
	MAE         float64   `json:"mae"`
	RMSE        float64   `json:"rmse"`
	R2          float64   `json:"r_squared"`
	SampleCount int       `json:"sample_count"`
	Version     string    `json:"model_version"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// ModelStatus is the deployment state of a registered model version.
type ModelStatus string

const (
	StatusStaging    ModelStatus = "staging"
	StatusProduction ModelStatus = "production"
	StatusRetired    ModelStatus = "retired"
)

// ModelVersion is the registry entry for one trained model.
type ModelVersion struct {
	UserID     string       `json:"user_id"`
	Version    string       `json:"version"`
	Kind       ModelKind    `json:"kind"`
	Status     ModelStatus  `json:"status"`
	Metrics    ModelMetrics `json:"metrics"`
	CreatedAt  time.Time    `json:"created_at"`
	DeployedAt *time.Time   `json:"deployed_at,omitempty"`
	RetiredAt  *time.Time   `json:"retired_at,omitempty"`
}

// TrainingResult reports every model trained in one run and the one deployed.
type TrainingResult struct {
	UserID   string         `json:"user_id"`
	Samples  int            `json:"samples"`
	Metrics  []ModelMetrics `json:"metrics"`
	Deployed string         `json:"deployed_version"`
}

// BatchTrainingResult is one user's outcome inside a batch run.
type BatchTrainingResult struct {
	UserID string          `json:"user_id"`
	Result *TrainingResult `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// DataQualityReport describes how usable a user's history is for training.
type DataQualityReport struct {
	UserID           string   `json:"user_id"`
	TotalSamples     int      `json:"total_samples"`
	ValidSamples     int      `json:"valid_samples"`
	DataCompleteness float64  `json:"data_completeness"`
	ZeroStress       int      `json:"zero_stress"`
	ExtremeStress    int      `json:"extreme_stress"`
	IsSufficient     bool     `json:"is_sufficient"`
	Recommendations  []string `json:"recommendations"`
}
