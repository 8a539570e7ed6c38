package cache

import (
	"context"
	"errors"
	"time"

	"LoadCoach/internal/domain/models"
	"LoadCoach/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// RedisCache shares recommendations between instances. Redis expires keys
// itself, so Cleanup has nothing to do and Stats never reports expired entries.
// Errors degrade to misses: the cache is never a reason to fail a request.
type RedisCache struct {
	cli    *redis.Client
	prefix string
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisCache(cli *redis.Client, prefix string, ttl time.Duration, log *logger.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &RedisCache{cli: cli, prefix: prefix, ttl: ttl, log: log}
}

func (r *RedisCache) key(k string) string { return r.prefix + k }

func (r *RedisCache) Get(ctx context.Context, key string) (models.Recommendation, bool) {
	b, err := r.cli.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("recommendation cache get failed", logger.String("key", key), logger.Error(err))
		}
		return models.Recommendation{}, false
	}
	var rec models.Recommendation
	if err := json.Unmarshal(b, &rec); err != nil {
		r.log.Warn("recommendation cache entry corrupt", logger.String("key", key), logger.Error(err))
		return models.Recommendation{}, false
	}
	return rec, true
}

func (r *RedisCache) Set(ctx context.Context, key string, rec models.Recommendation) {
	b, err := json.Marshal(rec)
	if err != nil {
		r.log.Warn("recommendation cache encode failed", logger.String("key", key), logger.Error(err))
		return
	}
	if err := r.cli.Set(ctx, r.key(key), b, r.ttl).Err(); err != nil {
		r.log.Warn("recommendation cache set failed", logger.String("key", key), logger.Error(err))
	}
}

func (r *RedisCache) InvalidateUser(ctx context.Context, userID string) int {
	keys, err := r.scan(ctx, r.key(UserPrefix(userID))+"*")
	if err != nil || len(keys) == 0 {
		return 0
	}
	n, err := r.cli.Unlink(ctx, keys...).Result()
	if err != nil {
		r.log.Warn("recommendation cache invalidate failed", logger.String("user_id", userID), logger.Error(err))
		return 0
	}
	return int(n)
}

func (r *RedisCache) Cleanup(context.Context) int { return 0 }

func (r *RedisCache) Stats(ctx context.Context) models.CacheStats {
	keys, err := r.scan(ctx, r.key("rec_*"))
	if err != nil {
		return models.CacheStats{}
	}
	return models.CacheStats{Total: len(keys)}
}

func (r *RedisCache) scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := r.cli.Scan(ctx, 0, pattern, 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.log.Warn("recommendation cache scan failed", logger.String("pattern", pattern), logger.Error(err))
		return nil, err
	}
	return keys, nil
}
