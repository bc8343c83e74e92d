package trade

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/audit"
	"github.com/retailcore/backoffice/internal/domain/catalog"
	"github.com/retailcore/backoffice/internal/domain/partner"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/retailcore/backoffice/internal/domain/trade"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindLowStock(ctx context.Context, limit int) ([]catalog.Product, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

// MockCustomerRepository is a mock implementation of partner.CustomerRepository
type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

// MockSaleRepository is a mock implementation of trade.SaleRepository
type MockSaleRepository struct {
	mock.Mock
}

func (m *MockSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Sale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Sale), args.Error(1)
}

func (m *MockSaleRepository) List(ctx context.Context, filter trade.SaleFilter) ([]trade.Sale, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]trade.Sale), args.Get(1).(int64), args.Error(2)
}

func (m *MockSaleRepository) Save(ctx context.Context, sale *trade.Sale) error {
	args := m.Called(ctx, sale)
	return args.Error(0)
}

func (m *MockSaleRepository) MarkInvoiced(ctx context.Context, id uuid.UUID, data trade.FiscalData) error {
	args := m.Called(ctx, id, data)
	return args.Error(0)
}

func (m *MockSaleRepository) Discard(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockQuoteRepository is a mock implementation of trade.QuoteRepository
type MockQuoteRepository struct {
	mock.Mock
}

func (m *MockQuoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Quote, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Quote), args.Error(1)
}

func (m *MockQuoteRepository) List(ctx context.Context, filter trade.QuoteFilter) ([]trade.Quote, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]trade.Quote), args.Get(1).(int64), args.Error(2)
}

func (m *MockQuoteRepository) Save(ctx context.Context, quote *trade.Quote) error {
	args := m.Called(ctx, quote)
	return args.Error(0)
}

func (m *MockQuoteRepository) MarkConverted(ctx context.Context, id, saleID uuid.UUID) error {
	args := m.Called(ctx, id, saleID)
	return args.Error(0)
}

func (m *MockQuoteRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// captureRecorder keeps audit entries in memory
type captureRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *captureRecorder) Record(_ context.Context, entry audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *captureRecorder) all() []audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Entry(nil), r.entries...)
}

// memoryStock is a thread-safe per-row stock store
type memoryStock struct {
	mu    sync.Mutex
	stock map[uuid.UUID]int
}

func newMemoryStock(stock map[uuid.UUID]int) *memoryStock {
	return &memoryStock{stock: stock}
}

func (s *memoryStock) Quantity(_ context.Context, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	qty, ok := s.stock[id]
	if !ok {
		return 0, shared.NewProductNotFoundError(id)
	}
	return qty, nil
}

func (s *memoryStock) DecrementIfAvailable(_ context.Context, id uuid.UUID, qty int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.stock[id]
	if !ok {
		return false, shared.NewProductNotFoundError(id)
	}
	if cur < qty {
		return false, nil
	}
	s.stock[id] = cur - qty
	return true, nil
}

func (s *memoryStock) Increment(_ context.Context, id uuid.UUID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[id] += qty
	return nil
}

func (s *memoryStock) get(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[id]
}
