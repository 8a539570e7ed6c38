package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	domrepo "LoadCoach/internal/domain/repository"
	domsvc "LoadCoach/internal/domain/service"
)

var _ domrepo.ModelArtifactStore = (*RedisModelStore)(nil)

// RedisModelStore keeps model artifacts under model:{user}:{version} and the
// deployed version under model:{user}:current. Artifacts do not expire.
type RedisModelStore struct {
	client redis.Cmdable
	prefix string
}

func NewRedisModelStore(client redis.Cmdable, prefix string) *RedisModelStore {
	return &RedisModelStore{client: client, prefix: prefix}
}

func (s *RedisModelStore) Save(ctx context.Context, userID, version string, artifact []byte) error {
	if err := s.client.Set(ctx, s.key(userID, version), artifact, 0).Err(); err != nil {
		return fmt.Errorf("save artifact %s/%s: %w", userID, version, err)
	}
	return nil
}

func (s *RedisModelStore) Load(ctx context.Context, userID, version string) ([]byte, error) {
	b, err := s.client.Get(ctx, s.key(userID, version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domsvc.ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact %s/%s: %w", userID, version, err)
	}
	return b, nil
}

// SetCurrent is a single SET on the primary, so a following Current on the
// same client observes it.
func (s *RedisModelStore) SetCurrent(ctx context.Context, userID, version string) error {
	if err := s.client.Set(ctx, s.key(userID, "current"), version, 0).Err(); err != nil {
		return fmt.Errorf("set current model %s: %w", userID, err)
	}
	return nil
}

func (s *RedisModelStore) Current(ctx context.Context, userID string) (string, error) {
	v, err := s.client.Get(ctx, s.key(userID, "current")).Result()
	if errors.Is(err, redis.Nil) {
		return "", domsvc.ErrArtifactNotFound
	}
	if err != nil {
		return "", fmt.Errorf("current model %s: %w", userID, err)
	}
	return v, nil
}

func (s *RedisModelStore) key(userID, suffix string) string {
	k := "model:" + userID + ":" + suffix
	if s.prefix != "" {
		return s.prefix + ":" + k
	}
	return k
}
