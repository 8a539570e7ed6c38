package cache

import (
	"context"
	"time"

	"LoadCoach/internal/domain/models"
)

// DefaultTTL is how long a generated recommendation is served from cache.
const DefaultTTL = time.Hour

// RecommendationCache stores generated recommendations by key.
// Keys start with "rec_{user}_" so a user's entries can be dropped together.
type RecommendationCache interface {
	Get(ctx context.Context, key string) (models.Recommendation, bool)
	Set(ctx context.Context, key string, rec models.Recommendation)
	InvalidateUser(ctx context.Context, userID string) int
	Cleanup(ctx context.Context) int
	Stats(ctx context.Context) models.CacheStats
}

// UserPrefix is the key prefix shared by all entries of a user.
func UserPrefix(userID string) string {
	return "rec_" + userID + "_"
}
