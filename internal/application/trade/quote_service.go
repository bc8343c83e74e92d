package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/audit"
	"github.com/retailcore/backoffice/internal/domain/catalog"
	"github.com/retailcore/backoffice/internal/domain/identity"
	"github.com/retailcore/backoffice/internal/domain/partner"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/retailcore/backoffice/internal/domain/trade"
	"go.uber.org/zap"
)

// QuoteService handles quotes. Creating a quote never reserves stock; only
// converting it into a sale does.
type QuoteService struct {
	gate         identity.Gate
	txScope      TransactionScope
	productRepo  catalog.ProductRepository
	customerRepo partner.CustomerRepository
	quoteRepo    trade.QuoteRepository
	after        afterCommit
	logger       *zap.Logger
	now          func() time.Time
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(
	gate identity.Gate,
	txScope TransactionScope,
	productRepo catalog.ProductRepository,
	customerRepo partner.CustomerRepository,
	quoteRepo trade.QuoteRepository,
	logger *zap.Logger,
) *QuoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteService{
		gate:         gate,
		txScope:      txScope,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		quoteRepo:    quoteRepo,
		after:        afterCommit{logger: logger},
		logger:       logger,
		now:          time.Now,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *QuoteService) SetEventPublisher(publisher shared.EventPublisher) {
	s.after.publisher = publisher
}

// SetAuditRecorder sets the audit recorder
func (s *QuoteService) SetAuditRecorder(recorder audit.Recorder) {
	s.after.recorder = recorder
}

// CreateQuote validates and prices a quote for an active customer
func (s *QuoteService) CreateQuote(ctx context.Context, actor identity.Actor, req CreateQuoteRequest) (*QuoteResponse, error) {
	if err := s.gate.Authorize(ctx, actor, identity.ActionQuotesCreate); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := requireActiveCustomer(ctx, s.customerRepo, req.CustomerID); err != nil {
		return nil, err
	}

	items, err := priceItems(ctx, s.productRepo, req.Items)
	if err != nil {
		return nil, err
	}

	quote, err := trade.NewQuote(sellerOf(actor), req.CustomerID, req.ValidityDays, req.Notes, items)
	if err != nil {
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.QuoteRepo().Save(ctx, quote)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Quote created",
		zap.String("quote_id", quote.ID.String()),
		zap.String("customer_id", quote.CustomerID.String()),
		zap.String("total", quote.Total.StringFixed(2)),
	)
	s.after.publish(ctx, quote)
	s.after.record(ctx, audit.NewEntry(actor.UserID, actor.Name, audit.ActionCreate, audit.ModuleQuotes,
		fmt.Sprintf("Quote for $%s", quote.Total.StringFixed(2))).WithResource(quote.ID))

	response := ToQuoteResponse(quote)
	return &response, nil
}

// ConvertQuote turns a pending quote into a sale at the quoted prices. The
// stock decrement, the new sale and the quote status change commit together.
func (s *QuoteService) ConvertQuote(ctx context.Context, actor identity.Actor, quoteID uuid.UUID, req ConvertQuoteRequest) (*SaleResponse, error) {
	if err := s.gate.Authorize(ctx, actor, identity.ActionQuotesConvert); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	quote, err := s.quoteRepo.FindByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if _, err := requireActiveCustomer(ctx, s.customerRepo, quote.CustomerID); err != nil {
		return nil, err
	}

	sale, err := quote.ConvertToSale(sellerOf(actor), trade.PaymentMethod(req.PaymentMethod), s.now())
	if err != nil {
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.Ledger().ReserveAndDecrement(ctx, sale.StockLines()); err != nil {
			return err
		}
		// The quote row references the sale, so the sale is written first. A
		// lost race on MarkConverted discards it with the reservation.
		if err := repos.SaleRepo().Save(ctx, sale); err != nil {
			return err
		}
		return repos.QuoteRepo().MarkConverted(ctx, quote.ID, sale.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Quote converted",
		zap.String("quote_id", quote.ID.String()),
		zap.String("sale_id", sale.ID.String()),
	)
	s.after.publish(ctx, sale)
	s.after.record(ctx, audit.NewEntry(actor.UserID, actor.Name, audit.ActionConvert, audit.ModuleQuotes,
		fmt.Sprintf("Quote converted to sale %s", sale.ID)).WithResource(quote.ID))

	response := ToSaleResponse(sale)
	return &response, nil
}

// GetQuote retrieves a quote by ID
func (s *QuoteService) GetQuote(ctx context.Context, actor identity.Actor, quoteID uuid.UUID) (*QuoteResponse, error) {
	if err := s.gate.Authorize(ctx, actor, identity.ActionQuotesRead); err != nil {
		return nil, err
	}

	quote, err := s.quoteRepo.FindByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	response := ToQuoteResponse(quote)
	return &response, nil
}

// ListQuotes retrieves a page of quotes, newest first
func (s *QuoteService) ListQuotes(ctx context.Context, actor identity.Actor, filter QuoteListFilter) ([]QuoteResponse, int64, error) {
	if err := s.gate.Authorize(ctx, actor, identity.ActionQuotesRead); err != nil {
		return nil, 0, err
	}
	if err := validateRequest(filter); err != nil {
		return nil, 0, err
	}

	quotes, total, err := s.quoteRepo.List(ctx, trade.QuoteFilter{
		Filter:     shared.Filter{Page: filter.Page, PageSize: filter.PageSize},
		CustomerID: filter.CustomerID,
		Status:     trade.QuoteStatus(filter.Status),
	})
	if err != nil {
		return nil, 0, err
	}

	items := make([]QuoteResponse, 0, len(quotes))
	for i := range quotes {
		items = append(items, ToQuoteResponse(&quotes[i]))
	}
	return items, total, nil
}

// ExpireQuotes marks every pending quote past its validity window as expired
func (s *QuoteService) ExpireQuotes(ctx context.Context, actor identity.Actor) (*ExpireQuotesResponse, error) {
	if err := s.gate.Authorize(ctx, actor, identity.ActionQuotesExpire); err != nil {
		return nil, err
	}

	n, err := s.quoteRepo.ExpirePending(ctx, s.now())
	if err != nil {
		return nil, err
	}
	if n > 0 {
		s.logger.Info("Quotes expired", zap.Int64("count", n))
		s.after.record(ctx, audit.NewEntry(actor.UserID, actor.Name, audit.ActionExpire, audit.ModuleQuotes,
			fmt.Sprintf("%d quotes expired", n)))
	}
	return &ExpireQuotesResponse{Expired: n}, nil
}
