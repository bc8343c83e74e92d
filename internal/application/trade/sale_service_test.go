package trade

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	appidentity "github.com/retailcore/backoffice/internal/application/identity"
	appinventory "github.com/retailcore/backoffice/internal/application/inventory"
	"github.com/retailcore/backoffice/internal/domain/catalog"
	"github.com/retailcore/backoffice/internal/domain/fiscal"
	"github.com/retailcore/backoffice/internal/domain/identity"
	"github.com/retailcore/backoffice/internal/domain/partner"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/retailcore/backoffice/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type saleFixture struct {
	stock     *memoryStock
	products  *MockProductRepository
	customers *MockCustomerRepository
	sales     *MockSaleRepository
	quotes    *MockQuoteRepository
	publisher *MockEventPublisher
	recorder  *captureRecorder
	svc       *SaleService
}

func newSaleFixture(stock map[uuid.UUID]int) *saleFixture {
	f := &saleFixture{
		stock:     newMemoryStock(stock),
		products:  new(MockProductRepository),
		customers: new(MockCustomerRepository),
		sales:     new(MockSaleRepository),
		quotes:    new(MockQuoteRepository),
		publisher: new(MockEventPublisher),
		recorder:  &captureRecorder{},
	}
	scope := NewSagaTransactionScope(appinventory.NewSagaLedger(f.stock, nil), f.sales, f.quotes, nil)
	gate := appidentity.NewAuthorizer(identity.DefaultPolicy(), nil)
	f.svc = NewSaleService(gate, scope, f.products, f.customers, f.sales, nil)
	f.svc.SetEventPublisher(f.publisher)
	f.svc.SetAuditRecorder(f.recorder)
	return f
}

func testProduct(t *testing.T, code, price string) catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(code, "Product "+code, decimal.RequireFromString(price))
	require.NoError(t, err)
	return *p
}

func sellerActor() identity.Actor {
	return identity.Actor{UserID: uuid.New(), Name: "Ana", Role: identity.RoleSeller}
}

func TestSaleService_CreateSale(t *testing.T) {
	yerba := testProduct(t, "YER", "3500")
	azucar := testProduct(t, "AZU", "1210.50")
	require.NoError(t, azucar.SetTaxRate(decimal.RequireFromString("10.5")))

	f := newSaleFixture(map[uuid.UUID]int{yerba.ID: 10, azucar.ID: 4})
	f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]catalog.Product{yerba, azucar}, nil)
	f.sales.On("Save", mock.Anything, mock.AnythingOfType("*trade.Sale")).Return(nil).Once()
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()

	resp, err := f.svc.CreateSale(context.Background(), sellerActor(), CreateSaleRequest{
		PaymentMethod: "card",
		Items: []ItemInput{
			{ProductID: yerba.ID, Quantity: 2},
			{ProductID: azucar.ID, Quantity: 3},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "10631.50", resp.Total.StringFixed(2))
	assert.False(t, resp.Invoiced)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "3500.00", resp.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "10.5", resp.Items[1].TaxRate.String())

	assert.Equal(t, 8, f.stock.get(yerba.ID))
	assert.Equal(t, 1, f.stock.get(azucar.ID))

	entries := f.recorder.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "sales", entries[0].Module)
	f.sales.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestSaleService_CreateSale_PriceIsFrozen(t *testing.T) {
	p := testProduct(t, "P1", "100")
	f := newSaleFixture(map[uuid.UUID]int{p.ID: 5})
	f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]catalog.Product{p}, nil)

	var saved *trade.Sale
	f.sales.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*trade.Sale)
	}).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.CreateSale(context.Background(), sellerActor(), CreateSaleRequest{
		PaymentMethod: "cash",
		Items:         []ItemInput{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.True(t, saved.Items[0].UnitPrice.Equal(decimal.NewFromInt(100)))
	assert.False(t, saved.Items[0].UnitPrice.IsZero())
}

func TestSaleService_CreateSale_UnknownProduct(t *testing.T) {
	known := testProduct(t, "K1", "10")
	unknown := uuid.New()
	f := newSaleFixture(map[uuid.UUID]int{known.ID: 5})
	f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]catalog.Product{known}, nil)

	_, err := f.svc.CreateSale(context.Background(), sellerActor(), CreateSaleRequest{
		PaymentMethod: "cash",
		Items: []ItemInput{
			{ProductID: known.ID, Quantity: 1},
			{ProductID: unknown, Quantity: 1},
		},
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrProductNotFound))
	assert.Equal(t, 5, f.stock.get(known.ID))
	f.sales.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSaleService_CreateSale_InsufficientStock(t *testing.T) {
	a := testProduct(t, "A", "10")
	b := testProduct(t, "B", "10")
	f := newSaleFixture(map[uuid.UUID]int{a.ID: 5, b.ID: 1})
	f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]catalog.Product{a, b}, nil)

	_, err := f.svc.CreateSale(context.Background(), sellerActor(), CreateSaleRequest{
		PaymentMethod: "cash",
		Items: []ItemInput{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: b.ID, Quantity: 3},
		},
	})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, shared.CodeInsufficientStock, domainErr.Code)
	assert.Equal(t, b.ID.String(), domainErr.Details["product_id"])
	assert.Equal(t, 1, domainErr.Details["available"])

	assert.Equal(t, 5, f.stock.get(a.ID))
	assert.Equal(t, 1, f.stock.get(b.ID))
	f.sales.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	assert.Empty(t, f.recorder.all())
}

func TestSaleService_CreateSale_SaveFailureRestoresStock(t *testing.T) {
	p := testProduct(t, "P1", "10")
	f := newSaleFixture(map[uuid.UUID]int{p.ID: 5})
	f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]catalog.Product{p}, nil)
	var saved uuid.UUID
	f.sales.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*trade.Sale).ID
	}).Return(errors.New("disk full"))
	f.sales.On("Discard", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := f.svc.CreateSale(context.Background(), sellerActor(), CreateSaleRequest{
		PaymentMethod: "cash",
		Items:         []ItemInput{{ProductID: p.ID, Quantity: 4}},
	})

	require.Error(t, err)
	assert.Equal(t, 5, f.stock.get(p.ID))
	// a failed save may have written the sale row before its items
	f.sales.AssertCalled(t, "Discard", mock.Anything, saved)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestSaleService_CreateSale_Validation(t *testing.T) {
	p := testProduct(t, "P1", "10")
	tests := []struct {
		name string
		req  CreateSaleRequest
	}{
		{"no items", CreateSaleRequest{PaymentMethod: "cash"}},
		{"zero quantity", CreateSaleRequest{PaymentMethod: "cash", Items: []ItemInput{{ProductID: p.ID, Quantity: 0}}}},
		{"unknown payment method", CreateSaleRequest{PaymentMethod: "cheque", Items: []ItemInput{{ProductID: p.ID, Quantity: 1}}}},
		{"missing product id", CreateSaleRequest{PaymentMethod: "cash", Items: []ItemInput{{Quantity: 1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSaleFixture(map[uuid.UUID]int{p.ID: 5})
			_, err := f.svc.CreateSale(context.Background(), sellerActor(), tt.req)

			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrValidation))
			f.products.AssertNotCalled(t, "FindByIDs", mock.Anything, mock.Anything)
			assert.Equal(t, 5, f.stock.get(p.ID))
		})
	}
}

func TestSaleService_CreateSale_Customer(t *testing.T) {
	p := testProduct(t, "P1", "10")
	req := func(id uuid.UUID) CreateSaleRequest {
		return CreateSaleRequest{CustomerID: &id, PaymentMethod: "cash", Items: []ItemInput{{ProductID: p.ID, Quantity: 1}}}
	}

	t.Run("not found", func(t *testing.T) {
		f := newSaleFixture(map[uuid.UUID]int{p.ID: 5})
		id := uuid.New()
		f.customers.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		_, err := f.svc.CreateSale(context.Background(), sellerActor(), req(id))
		assert.True(t, errors.Is(err, shared.ErrCustomerNotFound))
	})

	t.Run("inactive", func(t *testing.T) {
		f := newSaleFixture(map[uuid.UUID]int{p.ID: 5})
		c, err := partner.NewCustomer("Kiosco", "", fiscal.TaxConditionFinalConsumer)
		require.NoError(t, err)
		c.Deactivate()
		f.customers.On("FindByID", mock.Anything, c.ID).Return(c, nil)

		_, err = f.svc.CreateSale(context.Background(), sellerActor(), req(c.ID))
		assert.True(t, errors.Is(err, shared.ErrCustomerInactive))
		assert.Equal(t, 5, f.stock.get(p.ID))
	})
}

func TestSaleService_CreateSale_Denied(t *testing.T) {
	p := testProduct(t, "P1", "10")
	f := newSaleFixture(map[uuid.UUID]int{p.ID: 5})
	actor := identity.Actor{UserID: uuid.New(), Role: identity.RoleWarehouse}

	_, err := f.svc.CreateSale(context.Background(), actor, CreateSaleRequest{
		PaymentMethod: "cash",
		Items:         []ItemInput{{ProductID: p.ID, Quantity: 1}},
	})

	assert.True(t, errors.Is(err, shared.ErrAuthorizationDenied))
	f.products.AssertNotCalled(t, "FindByIDs", mock.Anything, mock.Anything)
	assert.Equal(t, 5, f.stock.get(p.ID))
}

func TestSaleService_ConcurrentDisjointProducts(t *testing.T) {
	const productsN, salesPerProduct, initial = 5, 8, 20

	products := make([]catalog.Product, 0, productsN)
	stock := make(map[uuid.UUID]int, productsN)
	for i := 0; i < productsN; i++ {
		p := testProduct(t, "C"+string(rune('A'+i)), "10")
		products = append(products, p)
		stock[p.ID] = initial
	}

	f := newSaleFixture(stock)
	f.products.On("FindByIDs", mock.Anything, mock.Anything).Return(products, nil)
	f.sales.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	var wg sync.WaitGroup
	errs := make(chan error, productsN*salesPerProduct)
	for _, p := range products {
		for j := 0; j < salesPerProduct; j++ {
			wg.Add(1)
			go func(id uuid.UUID) {
				defer wg.Done()
				_, err := f.svc.CreateSale(context.Background(), sellerActor(), CreateSaleRequest{
					PaymentMethod: "cash",
					Items:         []ItemInput{{ProductID: id, Quantity: 2}},
				})
				errs <- err
			}(p.ID)
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	for _, p := range products {
		assert.Equal(t, initial-2*salesPerProduct, f.stock.get(p.ID))
	}
}

func TestSaleService_ConcurrentOversell(t *testing.T) {
	p := testProduct(t, "P1", "10")
	f := newSaleFixture(map[uuid.UUID]int{p.ID: 5})
	f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]catalog.Product{p}, nil)
	f.sales.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for _, qty := range []int{3, 4} {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			_, err := f.svc.CreateSale(context.Background(), sellerActor(), CreateSaleRequest{
				PaymentMethod: "cash",
				Items:         []ItemInput{{ProductID: p.ID, Quantity: qty}},
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
		}(qty)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Contains(t, []int{1, 2}, f.stock.get(p.ID))
}

func TestSaleService_GetAndList(t *testing.T) {
	p := testProduct(t, "P1", "10")
	f := newSaleFixture(nil)

	item, err := trade.NewLineItem(&p, 1)
	require.NoError(t, err)
	sale, err := trade.NewSale(trade.Seller{ID: uuid.New(), Name: "Ana"}, nil, trade.PaymentMethodCash, "", []trade.LineItem{item})
	require.NoError(t, err)

	f.sales.On("FindByID", mock.Anything, sale.ID).Return(sale, nil)
	f.sales.On("List", mock.Anything, mock.MatchedBy(func(filter trade.SaleFilter) bool {
		return filter.Page == 2 && filter.Invoiced != nil && !*filter.Invoiced
	})).Return([]trade.Sale{*sale}, int64(21), nil)

	got, err := f.svc.GetSale(context.Background(), sellerActor(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sale.ID, got.ID)

	invoiced := false
	items, total, err := f.svc.ListSales(context.Background(), sellerActor(), SaleListFilter{Page: 2, Invoiced: &invoiced})
	require.NoError(t, err)
	assert.Equal(t, int64(21), total)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].ItemCount)

	warehouse := identity.Actor{UserID: uuid.New(), Role: identity.RoleWarehouse}
	_, err = f.svc.GetSale(context.Background(), warehouse, sale.ID)
	assert.True(t, errors.Is(err, shared.ErrAuthorizationDenied))
}
