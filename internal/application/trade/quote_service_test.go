package trade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	appidentity "github.com/retailcore/backoffice/internal/application/identity"
	appinventory "github.com/retailcore/backoffice/internal/application/inventory"
	"github.com/retailcore/backoffice/internal/domain/catalog"
	"github.com/retailcore/backoffice/internal/domain/fiscal"
	"github.com/retailcore/backoffice/internal/domain/identity"
	"github.com/retailcore/backoffice/internal/domain/partner"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/retailcore/backoffice/internal/domain/trade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type quoteFixture struct {
	*saleFixture
	quoteSvc *QuoteService
}

func newQuoteFixture(stock map[uuid.UUID]int) *quoteFixture {
	f := newSaleFixture(stock)
	scope := NewSagaTransactionScope(appinventory.NewSagaLedger(f.stock, nil), f.sales, f.quotes, nil)
	gate := appidentity.NewAuthorizer(identity.DefaultPolicy(), nil)
	svc := NewQuoteService(gate, scope, f.products, f.customers, f.quotes, nil)
	svc.SetEventPublisher(f.publisher)
	svc.SetAuditRecorder(f.recorder)
	return &quoteFixture{saleFixture: f, quoteSvc: svc}
}

func activeCustomer(t *testing.T) *partner.Customer {
	t.Helper()
	c, err := partner.NewCustomer("Distribuidora Sur", "30712345671", fiscal.TaxConditionRegisteredTaxpayer)
	require.NoError(t, err)
	return c
}

func TestQuoteService_CreateQuote(t *testing.T) {
	p := testProduct(t, "P1", "250")
	c := activeCustomer(t)
	f := newQuoteFixture(map[uuid.UUID]int{p.ID: 1})
	f.customers.On("FindByID", mock.Anything, c.ID).Return(c, nil)
	f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]catalog.Product{p}, nil)
	f.quotes.On("Save", mock.Anything, mock.AnythingOfType("*trade.Quote")).Return(nil).Once()
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()

	resp, err := f.quoteSvc.CreateQuote(context.Background(), sellerActor(), CreateQuoteRequest{
		CustomerID: c.ID,
		Items:      []ItemInput{{ProductID: p.ID, Quantity: 10}},
	})

	require.NoError(t, err)
	assert.Equal(t, trade.DefaultValidityDays, resp.ValidityDays)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "2500.00", resp.Total.StringFixed(2))
	// quotes never reserve stock, even beyond what is on hand
	assert.Equal(t, 1, f.stock.get(p.ID))
	f.quotes.AssertExpectations(t)
}

func TestQuoteService_CreateQuote_Validation(t *testing.T) {
	p := testProduct(t, "P1", "250")
	f := newQuoteFixture(nil)

	_, err := f.quoteSvc.CreateQuote(context.Background(), sellerActor(), CreateQuoteRequest{
		CustomerID:   uuid.New(),
		ValidityDays: 400,
		Items:        []ItemInput{{ProductID: p.ID, Quantity: 1}},
	})
	assert.True(t, errors.Is(err, shared.ErrValidation))

	_, err = f.quoteSvc.CreateQuote(context.Background(), sellerActor(), CreateQuoteRequest{
		Items: []ItemInput{{ProductID: p.ID, Quantity: 1}},
	})
	assert.True(t, errors.Is(err, shared.ErrValidation))
	f.customers.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestQuoteService_CreateQuote_InactiveCustomer(t *testing.T) {
	p := testProduct(t, "P1", "250")
	c := activeCustomer(t)
	c.Deactivate()
	f := newQuoteFixture(nil)
	f.customers.On("FindByID", mock.Anything, c.ID).Return(c, nil)

	_, err := f.quoteSvc.CreateQuote(context.Background(), sellerActor(), CreateQuoteRequest{
		CustomerID: c.ID,
		Items:      []ItemInput{{ProductID: p.ID, Quantity: 1}},
	})
	assert.True(t, errors.Is(err, shared.ErrCustomerInactive))
	f.quotes.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func newPendingQuote(t *testing.T, p catalog.Product, customerID uuid.UUID, qty int) *trade.Quote {
	t.Helper()
	item, err := trade.NewLineItem(&p, qty)
	require.NoError(t, err)
	q, err := trade.NewQuote(trade.Seller{ID: uuid.New(), Name: "Ana"}, customerID, 10, "", []trade.LineItem{item})
	require.NoError(t, err)
	q.ClearDomainEvents()
	return q
}

func TestQuoteService_ConvertQuote(t *testing.T) {
	p := testProduct(t, "P1", "250")
	c := activeCustomer(t)
	q := newPendingQuote(t, p, c.ID, 3)

	f := newQuoteFixture(map[uuid.UUID]int{p.ID: 5})
	f.quotes.On("FindByID", mock.Anything, q.ID).Return(q, nil)
	f.customers.On("FindByID", mock.Anything, c.ID).Return(c, nil)
	f.sales.On("Save", mock.Anything, mock.AnythingOfType("*trade.Sale")).Return(nil).Once()
	f.quotes.On("MarkConverted", mock.Anything, q.ID, mock.AnythingOfType("uuid.UUID")).Return(nil).Once()
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()

	sale, err := f.quoteSvc.ConvertQuote(context.Background(), sellerActor(), q.ID, ConvertQuoteRequest{PaymentMethod: "transfer"})

	require.NoError(t, err)
	assert.Equal(t, "750.00", sale.Total.StringFixed(2))
	assert.Equal(t, 2, f.stock.get(p.ID))
	assert.Equal(t, trade.QuoteStatusConverted, q.Status)
	f.quotes.AssertExpectations(t)
	f.sales.AssertExpectations(t)
}

func TestQuoteService_ConvertQuote_ConflictRestoresStock(t *testing.T) {
	p := testProduct(t, "P1", "250")
	c := activeCustomer(t)
	q := newPendingQuote(t, p, c.ID, 3)

	f := newQuoteFixture(map[uuid.UUID]int{p.ID: 5})
	f.quotes.On("FindByID", mock.Anything, q.ID).Return(q, nil)
	f.customers.On("FindByID", mock.Anything, c.ID).Return(c, nil)
	var saved uuid.UUID
	f.sales.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*trade.Sale).ID
	}).Return(nil).Once()
	f.quotes.On("MarkConverted", mock.Anything, q.ID, mock.Anything).Return(shared.ErrInvalidState)
	f.sales.On("Discard", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := f.quoteSvc.ConvertQuote(context.Background(), sellerActor(), q.ID, ConvertQuoteRequest{PaymentMethod: "cash"})

	assert.True(t, errors.Is(err, shared.ErrInvalidState))
	assert.Equal(t, 5, f.stock.get(p.ID))
	require.NotEqual(t, uuid.Nil, saved)
	f.sales.AssertCalled(t, "Discard", mock.Anything, saved)
	f.sales.AssertExpectations(t)
}

func TestQuoteService_ConvertQuote_InsufficientStock(t *testing.T) {
	p := testProduct(t, "P1", "250")
	c := activeCustomer(t)
	q := newPendingQuote(t, p, c.ID, 9)

	f := newQuoteFixture(map[uuid.UUID]int{p.ID: 5})
	f.quotes.On("FindByID", mock.Anything, q.ID).Return(q, nil)
	f.customers.On("FindByID", mock.Anything, c.ID).Return(c, nil)

	_, err := f.quoteSvc.ConvertQuote(context.Background(), sellerActor(), q.ID, ConvertQuoteRequest{PaymentMethod: "cash"})

	assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
	assert.Equal(t, 5, f.stock.get(p.ID))
	f.sales.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestQuoteService_ExpireQuotes(t *testing.T) {
	f := newQuoteFixture(nil)
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	f.quoteSvc.now = func() time.Time { return fixed }
	f.quotes.On("ExpirePending", mock.Anything, fixed).Return(int64(3), nil)

	admin := identity.Actor{UserID: uuid.New(), Name: "Admin", Role: identity.RoleAdmin}
	resp, err := f.quoteSvc.ExpireQuotes(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Expired)
	require.Len(t, f.recorder.all(), 1)

	_, err = f.quoteSvc.ExpireQuotes(context.Background(), sellerActor())
	assert.True(t, errors.Is(err, shared.ErrAuthorizationDenied))
}

func TestQuoteService_ListQuotes(t *testing.T) {
	p := testProduct(t, "P1", "250")
	q := newPendingQuote(t, p, uuid.New(), 1)
	f := newQuoteFixture(nil)
	f.quotes.On("List", mock.Anything, mock.MatchedBy(func(filter trade.QuoteFilter) bool {
		return filter.Status == trade.QuoteStatusPending
	})).Return([]trade.Quote{*q}, int64(1), nil)

	items, total, err := f.quoteSvc.ListQuotes(context.Background(), sellerActor(), QuoteListFilter{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, q.ID, items[0].ID)

	_, _, err = f.quoteSvc.ListQuotes(context.Background(), sellerActor(), QuoteListFilter{Status: "archived"})
	assert.True(t, errors.Is(err, shared.ErrValidation))
}
