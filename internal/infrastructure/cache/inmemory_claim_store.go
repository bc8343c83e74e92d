package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/shared"
)

// claim is a held key with its holder token and expiration
type claim struct {
	token     string
	expiresAt time.Time
}

// InMemoryClaimStore implements ClaimStore using an in-memory map.
// Claims are only exclusive within one process.
type InMemoryClaimStore struct {
	mu        sync.Mutex
	claims    map[string]claim
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryClaimStore creates a new in-memory claim store.
// It starts a background goroutine to drop expired claims.
func NewInMemoryClaimStore() *InMemoryClaimStore {
	store := &InMemoryClaimStore{
		claims:   make(map[string]claim),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Claim takes the key for ttl unless an unexpired claim exists
func (s *InMemoryClaimStore) Claim(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if c, exists := s.claims[key]; exists && now.Before(c.expiresAt) {
		return "", false, nil
	}

	token := uuid.NewString()
	s.claims[key] = claim{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

// Release drops the claim if token still holds it
func (s *InMemoryClaimStore) Release(ctx context.Context, key, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, exists := s.claims[key]; exists && c.token == token {
		delete(s.claims, key)
	}
	return nil
}

// IsClaimed reports whether an unexpired claim exists
func (s *InMemoryClaimStore) IsClaimed(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.claims[key]
	if !exists {
		return false, nil
	}
	return time.Now().Before(c.expiresAt), nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryClaimStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryClaimStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired claims
func (s *InMemoryClaimStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, c := range s.claims {
		if now.After(c.expiresAt) {
			delete(s.claims, key)
		}
	}
}

// Size returns the number of stored claims (for testing/monitoring)
func (s *InMemoryClaimStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

// Ensure InMemoryClaimStore implements ClaimStore
var _ shared.ClaimStore = (*InMemoryClaimStore)(nil)
