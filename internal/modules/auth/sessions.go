package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "session:revoked:"

// RedisSessionStore keeps the revocation denylist in Redis so every API
// instance sees a sign-out immediately.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Revoke(ctx context.Context, jti string, ttlSeconds int64) error {
	key := revokedKeyPrefix + jti
	return s.client.Set(ctx, key, 1, time.Duration(ttlSeconds)*time.Second).Err()
}

func (s *RedisSessionStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	key := revokedKeyPrefix + jti
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
