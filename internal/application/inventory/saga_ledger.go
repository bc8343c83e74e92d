package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/inventory"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// SagaLedger implements the ledger over a store that only offers per-row
// atomic updates. Lines are decremented one by one; when a line fails, every
// line already applied is incremented back before the error is returned.
// Concurrent readers may briefly see the intermediate quantities.
type SagaLedger struct {
	store  inventory.StockStore
	logger *zap.Logger
}

// NewSagaLedger creates a new SagaLedger
func NewSagaLedger(store inventory.StockStore, logger *zap.Logger) *SagaLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SagaLedger{store: store, logger: logger}
}

// CheckAvailability returns the current stock of a product
func (l *SagaLedger) CheckAvailability(ctx context.Context, productID uuid.UUID) (int, error) {
	return l.store.Quantity(ctx, productID)
}

// ReserveAndDecrement subtracts every line or, after compensation, none
func (l *SagaLedger) ReserveAndDecrement(ctx context.Context, lines []inventory.StockLine) error {
	lines, err := inventory.NormalizeLines(lines)
	if err != nil {
		return err
	}

	applied := make([]inventory.StockLine, 0, len(lines))
	for _, line := range lines {
		ok, err := l.store.DecrementIfAvailable(ctx, line.ProductID, line.Quantity)
		if err != nil {
			l.compensate(ctx, applied)
			return err
		}
		if !ok {
			l.compensate(ctx, applied)
			available, qerr := l.store.Quantity(ctx, line.ProductID)
			if qerr != nil {
				return qerr
			}
			return shared.NewInsufficientStockError(line.ProductID, available)
		}
		applied = append(applied, line)
	}
	return nil
}

// Restock gives back quantities of a reservation that completed but whose
// enclosing unit of work failed afterwards.
func (l *SagaLedger) Restock(ctx context.Context, lines []inventory.StockLine) {
	lines, err := inventory.NormalizeLines(lines)
	if err != nil {
		return
	}
	l.compensate(ctx, lines)
}

// compensate returns applied quantities. It ignores cancellation of the
// caller's context so that a timed-out request still restores stock.
func (l *SagaLedger) compensate(ctx context.Context, applied []inventory.StockLine) {
	ctx = context.WithoutCancel(ctx)
	for i := len(applied) - 1; i >= 0; i-- {
		line := applied[i]
		if err := l.store.Increment(ctx, line.ProductID, line.Quantity); err != nil {
			l.logger.Error("Failed to compensate stock decrement",
				zap.String("product_id", line.ProductID.String()),
				zap.Int("quantity", line.Quantity),
				zap.Error(err),
			)
		}
	}
}

var _ inventory.Ledger = (*SagaLedger)(nil)
