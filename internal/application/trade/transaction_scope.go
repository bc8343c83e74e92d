package trade

import (
	"context"
	"sync"

	"github.com/google/uuid"
	appinventory "github.com/retailcore/backoffice/internal/application/inventory"
	"github.com/retailcore/backoffice/internal/domain/inventory"
	"github.com/retailcore/backoffice/internal/domain/trade"
	"go.uber.org/zap"
)

// TransactionScope runs a unit of work in which the stock decrement and the
// order rows commit or roll back together.
type TransactionScope interface {
	// Execute runs fn within a transaction. If fn returns an error, the
	// transaction is rolled back; otherwise it is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to the ledger and order
// repositories bound to the current transaction.
type TransactionalRepositories interface {
	// Ledger returns the inventory ledger scoped to the current transaction
	Ledger() inventory.Ledger
	// SaleRepo returns the sale repository scoped to the current transaction
	SaleRepo() trade.SaleRepository
	// QuoteRepo returns the quote repository scoped to the current transaction
	QuoteRepo() trade.QuoteRepository
}

// SagaTransactionScope is the scope for stores without multi-row
// transactions. When a unit of work fails, the sales it saved are discarded
// and the stock it reserved is given back before Execute returns.
type SagaTransactionScope struct {
	ledger    *appinventory.SagaLedger
	saleRepo  trade.SaleRepository
	quoteRepo trade.QuoteRepository
	logger    *zap.Logger
}

// NewSagaTransactionScope creates a SagaTransactionScope
func NewSagaTransactionScope(ledger *appinventory.SagaLedger, saleRepo trade.SaleRepository, quoteRepo trade.QuoteRepository, logger *zap.Logger) *SagaTransactionScope {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SagaTransactionScope{
		ledger:    ledger,
		saleRepo:  saleRepo,
		quoteRepo: quoteRepo,
		logger:    logger,
	}
}

// Execute runs fn and undoes the writes and reservations it made if fn fails
func (s *SagaTransactionScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	unit := &sagaUnit{scope: s}
	if err := fn(unit); err != nil {
		unit.rollback(ctx)
		return err
	}
	return nil
}

// sagaUnit records the sales saved and the reservations made by one
// Execute call
type sagaUnit struct {
	scope    *SagaTransactionScope
	mu       sync.Mutex
	saved    []uuid.UUID
	reserved [][]inventory.StockLine
}

func (u *sagaUnit) Ledger() inventory.Ledger         { return (*recordingLedger)(u) }
func (u *sagaUnit) SaleRepo() trade.SaleRepository   { return (*recordingSaleRepo)(u) }
func (u *sagaUnit) QuoteRepo() trade.QuoteRepository { return u.scope.quoteRepo }

// rollback discards saved sales before giving stock back, so a sale row is
// never visible next to restored stock. It ignores cancellation of the
// caller's context.
func (u *sagaUnit) rollback(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	u.mu.Lock()
	defer u.mu.Unlock()

	for i := len(u.saved) - 1; i >= 0; i-- {
		id := u.saved[i]
		if err := u.scope.saleRepo.Discard(ctx, id); err != nil {
			u.scope.logger.Error("Failed to discard sale of failed unit of work",
				zap.String("sale_id", id.String()),
				zap.Error(err),
			)
		}
	}
	for i := len(u.reserved) - 1; i >= 0; i-- {
		u.scope.ledger.Restock(ctx, u.reserved[i])
	}
	u.saved = nil
	u.reserved = nil
}

type recordingLedger sagaUnit

func (r *recordingLedger) CheckAvailability(ctx context.Context, productID uuid.UUID) (int, error) {
	return r.scope.ledger.CheckAvailability(ctx, productID)
}

func (r *recordingLedger) ReserveAndDecrement(ctx context.Context, lines []inventory.StockLine) error {
	if err := r.scope.ledger.ReserveAndDecrement(ctx, lines); err != nil {
		return err
	}
	r.mu.Lock()
	r.reserved = append(r.reserved, lines)
	r.mu.Unlock()
	return nil
}

// recordingSaleRepo notes every sale it is asked to save. The id is noted
// before the write because a failed save may still leave the sale row
// behind its items.
type recordingSaleRepo sagaUnit

func (r *recordingSaleRepo) FindByID(ctx context.Context, id uuid.UUID) (*trade.Sale, error) {
	return r.scope.saleRepo.FindByID(ctx, id)
}

func (r *recordingSaleRepo) List(ctx context.Context, filter trade.SaleFilter) ([]trade.Sale, int64, error) {
	return r.scope.saleRepo.List(ctx, filter)
}

func (r *recordingSaleRepo) Save(ctx context.Context, sale *trade.Sale) error {
	r.mu.Lock()
	r.saved = append(r.saved, sale.ID)
	r.mu.Unlock()
	return r.scope.saleRepo.Save(ctx, sale)
}

func (r *recordingSaleRepo) MarkInvoiced(ctx context.Context, id uuid.UUID, data trade.FiscalData) error {
	return r.scope.saleRepo.MarkInvoiced(ctx, id, data)
}

func (r *recordingSaleRepo) Discard(ctx context.Context, id uuid.UUID) error {
	return r.scope.saleRepo.Discard(ctx, id)
}

var (
	_ TransactionScope          = (*SagaTransactionScope)(nil)
	_ TransactionalRepositories = (*sagaUnit)(nil)
	_ inventory.Ledger          = (*recordingLedger)(nil)
	_ trade.SaleRepository      = (*recordingSaleRepo)(nil)
)
