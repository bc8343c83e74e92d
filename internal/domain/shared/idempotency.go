package shared

import (
	"context"
	"time"
)

// ClaimStore hands out short-lived exclusive claims on a key. It backs the
// in-flight guard for operations that call external systems and must not run
// twice concurrently for the same aggregate.
type ClaimStore interface {
	// Claim takes the key for ttl. It returns ok false if someone else holds
	// it. On success the token identifies this holder for Release.
	Claim(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)

	// Release drops the claim only while it is still held under token. A
	// claim that expired and was taken by someone else is left alone.
	// Releasing a missing key is not an error.
	Release(ctx context.Context, key, token string) error

	// IsClaimed reports whether the key is currently held
	IsClaimed(ctx context.Context, key string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// DefaultClaimTTL bounds how long a crashed holder can block retries
const DefaultClaimTTL = 2 * time.Minute
