package repository

import (
	"context"
	"time"

	"LoadCoach/internal/domain/models"
)

// LoadHistoryStore provides read-only access to completed sessions.
// Implementations return records ordered by date; an empty range is not an error.
type LoadHistoryStore interface {
	SessionsBetween(ctx context.Context, userID string, from, to time.Time) ([]models.StressRecord, error)
}
