package event

import (
	"context"
	"sync"
	"time"

	"github.com/retailcore/backoffice/internal/domain/audit"
	"github.com/retailcore/backoffice/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditRecorderConfig sizes the recorder's queue and worker pool
type AuditRecorderConfig struct {
	BufferSize   int
	Workers      int
	WriteTimeout time.Duration
}

// DefaultAuditRecorderConfig returns default configuration
func DefaultAuditRecorderConfig() AuditRecorderConfig {
	return AuditRecorderConfig{
		BufferSize:   1024,
		Workers:      2,
		WriteTimeout: 5 * time.Second,
	}
}

type auditJob struct {
	entry  audit.Entry
	fields []zap.Field
}

// AsyncAuditRecorder queues audit entries and writes them from a small
// worker pool. A full queue or a failed write drops the entry with a log
// line; the caller is never blocked or failed.
type AsyncAuditRecorder struct {
	repo   audit.Repository
	config AuditRecorderConfig
	logger *zap.Logger

	mu     sync.RWMutex
	jobs   chan auditJob
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncAuditRecorder creates a recorder. Call Start before Record.
func NewAsyncAuditRecorder(repo audit.Repository, config AuditRecorderConfig, logger *zap.Logger) *AsyncAuditRecorder {
	defaults := DefaultAuditRecorderConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	return &AsyncAuditRecorder{
		repo:   repo,
		config: config,
		logger: logger,
		jobs:   make(chan auditJob, config.BufferSize),
	}
}

// Start launches the workers
func (r *AsyncAuditRecorder) Start() {
	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.work()
	}
	r.logger.Info("audit recorder started",
		zap.Int("workers", r.config.Workers),
		zap.Int("buffer_size", r.config.BufferSize),
	)
}

// Record enqueues an entry. The request context only contributes log
// correlation fields; the write itself outlives the request.
func (r *AsyncAuditRecorder) Record(ctx context.Context, entry audit.Entry) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fields := logger.Fields(ctx)
	if r.closed {
		r.logger.Warn("audit recorder stopped, entry dropped", append(fields, entryFields(entry)...)...)
		return
	}

	select {
	case r.jobs <- auditJob{entry: entry, fields: fields}:
	default:
		r.logger.Warn("audit queue full, entry dropped", append(fields, entryFields(entry)...)...)
	}
}

// Stop refuses new entries and waits until the queue is drained or ctx ends
func (r *AsyncAuditRecorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.jobs)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("audit recorder stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *AsyncAuditRecorder) work() {
	defer r.wg.Done()
	for job := range r.jobs {
		r.write(job)
	}
}

func (r *AsyncAuditRecorder) write(job auditJob) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.repo.Save(ctx, &job.entry); err != nil {
		fields := append(job.fields, entryFields(job.entry)...)
		r.logger.Error("failed to write audit entry", append(fields, zap.Error(err))...)
	}
}

func entryFields(e audit.Entry) []zap.Field {
	return []zap.Field{
		zap.String("audit_action", e.Action),
		zap.String("audit_module", e.Module),
		zap.String("audit_actor_id", e.ActorID.String()),
	}
}

var _ audit.Recorder = (*AsyncAuditRecorder)(nil)
