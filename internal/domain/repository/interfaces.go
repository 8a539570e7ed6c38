package repository

import (
	"context"

	"LoadCoach/internal/domain/models"
)

// AnalyticsSink accepts one write-once record per generated recommendation.
type AnalyticsSink interface {
	Record(ctx context.Context, ev models.RecommendationEvent) error
	Close() error
}

// ModelArtifactStore persists fitted models and the per-user current pointer.
// SetCurrent must be read-after-write consistent with Current.
type ModelArtifactStore interface {
	Save(ctx context.Context, userID, version string, artifact []byte) error
	Load(ctx context.Context, userID, version string) ([]byte, error)
	SetCurrent(ctx context.Context, userID, version string) error
	Current(ctx context.Context, userID string) (string, error)
}

// JobScheduler enqueues background work such as retraining a user's model.
type JobScheduler interface {
	Enqueue(ctx context.Context, jobType string, payload interface{}) error
}

type Metrics interface {
	RecordRecommendation(source string)
	RecordEdgeCase(edgeCase string)
	RecordCacheLookup(hit bool)
	RecordTraining(kind, outcome string)
	RecordModelRMSE(kind string, rmse float64)
	RecordAnalyticsFailure(backend string)
	RecordLatency(op string, seconds float64)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) RecordRecommendation(string) {}
func (NopMetrics) RecordEdgeCase(string) {}
func (NopMetrics) RecordCacheLookup(bool) {}
func (NopMetrics) RecordTraining(string, string) {}
func (NopMetrics) RecordModelRMSE(string, float64) {}
func (NopMetrics) RecordAnalyticsFailure(string) {}
func (NopMetrics) RecordLatency(string, float64) {}
