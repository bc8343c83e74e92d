package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/retailcore/backoffice/internal/domain/shared"
)

const defaultClaimKeyPrefix = "retail:claim:"

// RedisClaimStore implements ClaimStore using Redis, so claims are exclusive
// across every instance sharing the Redis server.
type RedisClaimStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisClaimStore connects to Redis and verifies the connection
func NewRedisClaimStore(ctx context.Context, cfg RedisConfig) (*RedisClaimStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisClaimStoreWithClient(client, ""), nil
}

// NewRedisClaimStoreWithClient creates a store with an existing Redis client
func NewRedisClaimStoreWithClient(client *redis.Client, keyPrefix string) *RedisClaimStore {
	if keyPrefix == "" {
		keyPrefix = defaultClaimKeyPrefix
	}
	return &RedisClaimStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// releaseScript deletes a claim key only while it still holds the caller's
// token, so a holder that outlived its TTL cannot drop the next holder's claim.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Claim takes the key with SET NX and a TTL in one atomic command. The value
// is a fresh token that Release must present.
func (s *RedisClaimStore) Claim(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to take claim %q: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release deletes the claim key if it still holds token
func (s *RedisClaimStore) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, s.client, []string{s.keyPrefix + key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release claim %q: %w", key, err)
	}
	return nil
}

// IsClaimed reports whether the claim key exists
func (s *RedisClaimStore) IsClaimed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check claim %q: %w", key, err)
	}
	return n > 0, nil
}

// Close closes the Redis client
func (s *RedisClaimStore) Close() error {
	return s.client.Close()
}

// Ensure RedisClaimStore implements ClaimStore
var _ shared.ClaimStore = (*RedisClaimStore)(nil)

// Client returns the underlying Redis client so other components can share the connection
func (s *RedisClaimStore) Client() *redis.Client {
	return s.client
}
