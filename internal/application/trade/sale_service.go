package trade

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/audit"
	"github.com/retailcore/backoffice/internal/domain/catalog"
	"github.com/retailcore/backoffice/internal/domain/identity"
	"github.com/retailcore/backoffice/internal/domain/partner"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/retailcore/backoffice/internal/domain/trade"
	"go.uber.org/zap"
)

// SaleMetrics receives sale outcomes. Implemented by the telemetry package.
type SaleMetrics interface {
	SaleCreated(ctx context.Context, itemCount int)
	StockRejected(ctx context.Context)
}

// SaleService coordinates sale creation: pricing, the stock decrement and
// the sale rows commit in one transaction.
type SaleService struct {
	gate         identity.Gate
	txScope      TransactionScope
	productRepo  catalog.ProductRepository
	customerRepo partner.CustomerRepository
	saleRepo     trade.SaleRepository
	metrics      SaleMetrics
	after        afterCommit
	logger       *zap.Logger
}

// NewSaleService creates a new SaleService
func NewSaleService(
	gate identity.Gate,
	txScope TransactionScope,
	productRepo catalog.ProductRepository,
	customerRepo partner.CustomerRepository,
	saleRepo trade.SaleRepository,
	logger *zap.Logger,
) *SaleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleService{
		gate:         gate,
		txScope:      txScope,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		saleRepo:     saleRepo,
		after:        afterCommit{logger: logger},
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *SaleService) SetEventPublisher(publisher shared.EventPublisher) {
	s.after.publisher = publisher
}

// SetAuditRecorder sets the audit recorder
func (s *SaleService) SetAuditRecorder(recorder audit.Recorder) {
	s.after.recorder = recorder
}

// SetMetrics sets the business metrics sink
func (s *SaleService) SetMetrics(metrics SaleMetrics) {
	s.metrics = metrics
}

// CreateSale validates and prices the request, then decrements stock and
// stores the sale atomically. Validation, product and customer errors are
// returned before anything is written.
func (s *SaleService) CreateSale(ctx context.Context, actor identity.Actor, req CreateSaleRequest) (*SaleResponse, error) {
	if err := s.gate.Authorize(ctx, actor, identity.ActionSalesCreate); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	customerID := req.CustomerID
	if customerID != nil && *customerID == uuid.Nil {
		customerID = nil
	}
	if customerID != nil {
		if _, err := requireActiveCustomer(ctx, s.customerRepo, *customerID); err != nil {
			return nil, err
		}
	}

	items, err := priceItems(ctx, s.productRepo, req.Items)
	if err != nil {
		return nil, err
	}

	sale, err := trade.NewSale(sellerOf(actor), customerID, trade.PaymentMethod(req.PaymentMethod), req.Notes, items)
	if err != nil {
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.Ledger().ReserveAndDecrement(ctx, sale.StockLines()); err != nil {
			return err
		}
		return repos.SaleRepo().Save(ctx, sale)
	})
	if err != nil {
		if s.metrics != nil && isStockRejection(err) {
			s.metrics.StockRejected(ctx)
		}
		return nil, err
	}

	s.logger.Info("Sale created",
		zap.String("sale_id", sale.ID.String()),
		zap.String("seller_id", actor.UserID.String()),
		zap.Int("items", sale.ItemCount()),
		zap.String("total", sale.Total.StringFixed(2)),
	)
	if s.metrics != nil {
		s.metrics.SaleCreated(ctx, sale.ItemCount())
	}

	s.after.publish(ctx, sale)
	s.after.record(ctx, audit.NewEntry(actor.UserID, actor.Name, audit.ActionCreate, audit.ModuleSales,
		fmt.Sprintf("Sale for $%s", sale.Total.StringFixed(2))).WithResource(sale.ID))

	response := ToSaleResponse(sale)
	return &response, nil
}

// GetSale retrieves a sale by ID
func (s *SaleService) GetSale(ctx context.Context, actor identity.Actor, saleID uuid.UUID) (*SaleResponse, error) {
	if err := s.gate.Authorize(ctx, actor, identity.ActionSalesRead); err != nil {
		return nil, err
	}

	sale, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	response := ToSaleResponse(sale)
	return &response, nil
}

// ListSales retrieves a page of sales, newest first
func (s *SaleService) ListSales(ctx context.Context, actor identity.Actor, filter SaleListFilter) ([]SaleListItemResponse, int64, error) {
	if err := s.gate.Authorize(ctx, actor, identity.ActionSalesRead); err != nil {
		return nil, 0, err
	}
	if err := validateRequest(filter); err != nil {
		return nil, 0, err
	}

	domainFilter := trade.SaleFilter{
		Filter:     shared.Filter{Page: filter.Page, PageSize: filter.PageSize},
		CustomerID: filter.CustomerID,
		Invoiced:   filter.Invoiced,
		From:       filter.From,
		To:         filter.To,
	}

	sales, total, err := s.saleRepo.List(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	items := make([]SaleListItemResponse, 0, len(sales))
	for i := range sales {
		items = append(items, ToSaleListItemResponse(&sales[i]))
	}
	return items, total, nil
}

func isStockRejection(err error) bool {
	return errors.Is(err, shared.ErrInsufficientStock)
}
