package auth

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultBlacklistPrefix = "token:blacklist:"

// TokenBlacklist holds tokens revoked before their expiry. The identity
// service writes it on logout and forced sign-out; this service only reads.
type TokenBlacklist interface {
	// IsRevoked reports whether the token's jti is listed or the user's
	// tokens were invalidated at or after the token was issued
	IsRevoked(ctx context.Context, claims *Claims) (bool, error)
}

// RedisTokenBlacklist reads revocations from Redis
type RedisTokenBlacklist struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisTokenBlacklist creates a blacklist on an existing client
func NewRedisTokenBlacklist(client *redis.Client) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{client: client, keyPrefix: defaultBlacklistPrefix}
}

func (b *RedisTokenBlacklist) jtiKey(jti string) string {
	return b.keyPrefix + "jti:" + jti
}

func (b *RedisTokenBlacklist) userKey(userID string) string {
	return b.keyPrefix + "user:" + userID
}

// IsRevoked checks the jti entry and the per-user invalidation timestamp
func (b *RedisTokenBlacklist) IsRevoked(ctx context.Context, claims *Claims) (bool, error) {
	if claims.ID != "" {
		exists, err := b.client.Exists(ctx, b.jtiKey(claims.ID)).Result()
		if err != nil {
			return false, fmt.Errorf("failed to check token blacklist: %w", err)
		}
		if exists > 0 {
			return true, nil
		}
	}

	raw, err := b.client.Get(ctx, b.userKey(claims.UserID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user token invalidation: %w", err)
	}
	invalidatedAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse invalidation timestamp: %w", err)
	}
	return claims.IssuedAtTime().Unix() <= invalidatedAt, nil
}

// InMemoryTokenBlacklist is a process-local blacklist for single-instance
// deployments without Redis
type InMemoryTokenBlacklist struct {
	mu    sync.RWMutex
	jtis  map[string]time.Time // jti -> expiry
	users map[string]time.Time // user id -> invalidation time
}

// NewInMemoryTokenBlacklist creates an empty blacklist
func NewInMemoryTokenBlacklist() *InMemoryTokenBlacklist {
	return &InMemoryTokenBlacklist{
		jtis:  make(map[string]time.Time),
		users: make(map[string]time.Time),
	}
}

// Revoke lists a jti until ttl elapses
func (b *InMemoryTokenBlacklist) Revoke(jti string, ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jtis[jti] = time.Now().Add(ttl)
}

// RevokeUser invalidates every token the user holds right now
func (b *InMemoryTokenBlacklist) RevokeUser(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[userID] = time.Now()
}

// IsRevoked implements TokenBlacklist
func (b *InMemoryTokenBlacklist) IsRevoked(_ context.Context, claims *Claims) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if expiry, ok := b.jtis[claims.ID]; ok && time.Now().Before(expiry) {
		return true, nil
	}
	if invalidatedAt, ok := b.users[claims.UserID]; ok {
		return claims.IssuedAtTime().Unix() <= invalidatedAt.Unix(), nil
	}
	return false, nil
}

var (
	_ TokenBlacklist = (*RedisTokenBlacklist)(nil)
	_ TokenBlacklist = (*InMemoryTokenBlacklist)(nil)
)
