package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	fiscalapp "github.com/retailcore/backoffice/internal/application/fiscal"
	inventoryapp "github.com/retailcore/backoffice/internal/application/inventory"
	tradeapp "github.com/retailcore/backoffice/internal/application/trade"
	"github.com/retailcore/backoffice/internal/domain/identity"
	"github.com/retailcore/backoffice/internal/interfaces/http/dto"
	"github.com/retailcore/backoffice/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

var testSeller = identity.Actor{UserID: uuid.MustParse("5b0f3c57-6a0e-4f57-9a53-2f4bd1c1b001"), Name: "ana", Role: identity.RoleSeller}

// withActor stands in for the JWT middleware
func withActor(actor *identity.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("request_id", "req-1")
		if actor != nil {
			c.Set(middleware.ActorKey, *actor)
		}
		c.Next()
	}
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// MockSaleUseCases implements SaleUseCases
type MockSaleUseCases struct {
	mock.Mock
}

func (m *MockSaleUseCases) CreateSale(ctx context.Context, actor identity.Actor, req tradeapp.CreateSaleRequest) (*tradeapp.SaleResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.SaleResponse), args.Error(1)
}

func (m *MockSaleUseCases) GetSale(ctx context.Context, actor identity.Actor, saleID uuid.UUID) (*tradeapp.SaleResponse, error) {
	args := m.Called(ctx, actor, saleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.SaleResponse), args.Error(1)
}

func (m *MockSaleUseCases) ListSales(ctx context.Context, actor identity.Actor, filter tradeapp.SaleListFilter) ([]tradeapp.SaleListItemResponse, int64, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]tradeapp.SaleListItemResponse), args.Get(1).(int64), args.Error(2)
}

// MockInvoiceUseCases implements InvoiceUseCases
type MockInvoiceUseCases struct {
	mock.Mock
}

func (m *MockInvoiceUseCases) IssueInvoice(ctx context.Context, actor identity.Actor, saleID uuid.UUID, req fiscalapp.IssueInvoiceRequest) (*fiscalapp.InvoiceResponse, error) {
	args := m.Called(ctx, actor, saleID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscalapp.InvoiceResponse), args.Error(1)
}

func (m *MockInvoiceUseCases) VoucherLink(ctx context.Context, actor identity.Actor, saleID uuid.UUID) (*fiscalapp.VoucherLinkResponse, error) {
	args := m.Called(ctx, actor, saleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscalapp.VoucherLinkResponse), args.Error(1)
}

func (m *MockInvoiceUseCases) CheckAuthority(ctx context.Context, actor identity.Actor) (*fiscalapp.AuthorityHealthResponse, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscalapp.AuthorityHealthResponse), args.Error(1)
}

// MockQuoteUseCases implements QuoteUseCases
type MockQuoteUseCases struct {
	mock.Mock
}

func (m *MockQuoteUseCases) CreateQuote(ctx context.Context, actor identity.Actor, req tradeapp.CreateQuoteRequest) (*tradeapp.QuoteResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.QuoteResponse), args.Error(1)
}

func (m *MockQuoteUseCases) ConvertQuote(ctx context.Context, actor identity.Actor, quoteID uuid.UUID, req tradeapp.ConvertQuoteRequest) (*tradeapp.SaleResponse, error) {
	args := m.Called(ctx, actor, quoteID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.SaleResponse), args.Error(1)
}

func (m *MockQuoteUseCases) GetQuote(ctx context.Context, actor identity.Actor, quoteID uuid.UUID) (*tradeapp.QuoteResponse, error) {
	args := m.Called(ctx, actor, quoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.QuoteResponse), args.Error(1)
}

func (m *MockQuoteUseCases) ListQuotes(ctx context.Context, actor identity.Actor, filter tradeapp.QuoteListFilter) ([]tradeapp.QuoteResponse, int64, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]tradeapp.QuoteResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockQuoteUseCases) ExpireQuotes(ctx context.Context, actor identity.Actor) (*tradeapp.ExpireQuotesResponse, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.ExpireQuotesResponse), args.Error(1)
}

// MockStockUseCases implements StockUseCases
type MockStockUseCases struct {
	mock.Mock
}

func (m *MockStockUseCases) CheckAvailability(ctx context.Context, actor identity.Actor, productID uuid.UUID) (*inventoryapp.AvailabilityResponse, error) {
	args := m.Called(ctx, actor, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.AvailabilityResponse), args.Error(1)
}

func (m *MockStockUseCases) ListLowStock(ctx context.Context, actor identity.Actor, limit int) ([]inventoryapp.LowStockItemResponse, error) {
	args := m.Called(ctx, actor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventoryapp.LowStockItemResponse), args.Error(1)
}
