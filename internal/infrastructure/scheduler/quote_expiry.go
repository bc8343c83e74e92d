// Package scheduler runs periodic maintenance jobs in the server process.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	tradeapp "github.com/retailcore/backoffice/internal/application/trade"
	"github.com/retailcore/backoffice/internal/domain/identity"
	"go.uber.org/zap"
)

// ErrInvalidInterval is returned for a non-positive sweep interval
var ErrInvalidInterval = errors.New("scheduler: interval must be positive")

// QuoteExpirer is the use case the sweeper drives
type QuoteExpirer interface {
	ExpireQuotes(ctx context.Context, actor identity.Actor) (*tradeapp.ExpireQuotesResponse, error)
}

// sweeperActor is the identity recorded in audit entries written by the sweep
var sweeperActor = identity.Actor{
	UserID: uuid.Nil,
	Name:   "quote-expiry-sweeper",
	Role:   identity.RoleAdmin,
}

// QuoteExpirySweeper expires overdue quotes on a fixed interval
type QuoteExpirySweeper struct {
	expirer  QuoteExpirer
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
}

// NewQuoteExpirySweeper creates a sweeper. Each run is bounded by the interval.
func NewQuoteExpirySweeper(expirer QuoteExpirer, interval time.Duration, logger *zap.Logger) (*QuoteExpirySweeper, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	return &QuoteExpirySweeper{
		expirer:  expirer,
		interval: interval,
		timeout:  interval,
		logger:   logger,
	}, nil
}

// Start runs one sweep immediately and then one per interval
func (s *QuoteExpirySweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Quote expiry sweeper started", zap.Duration("interval", s.interval))
}

// Stop cancels the loop and waits for an in-flight sweep
func (s *QuoteExpirySweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Quote expiry sweeper stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Quote expiry sweeper stop timed out")
		return ctx.Err()
	}
}

func (s *QuoteExpirySweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep and returns how many quotes expired
func (s *QuoteExpirySweeper) RunOnce(ctx context.Context) int64 {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.expirer.ExpireQuotes(runCtx, sweeperActor)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("Quote expiry sweep failed", zap.Error(err))
		}
		return 0
	}
	if resp.Expired > 0 {
		s.logger.Info("Quote expiry sweep finished", zap.Int64("expired", resp.Expired))
	}
	return resp.Expired
}
