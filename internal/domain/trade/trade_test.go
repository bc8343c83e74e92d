package trade

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/catalog"
	"github.com/retailcore/backoffice/internal/domain/fiscal"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProduct(t *testing.T, price string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct("P-"+uuid.NewString()[:6], "Test product", decimal.RequireFromString(price))
	require.NoError(t, err)
	return p
}

func testSeller() Seller {
	return Seller{ID: uuid.New(), Name: "Ana"}
}

func TestNewLineItem(t *testing.T) {
	p := newTestProduct(t, "60.50")

	item, err := NewLineItem(p, 2)
	require.NoError(t, err)
	assert.Equal(t, p.ID, item.ProductID)
	assert.Equal(t, "121", item.Subtotal.String())
	assert.True(t, item.TaxRate.Equal(fiscal.DefaultTaxRate))

	// later catalog changes do not reach the frozen line
	p.RetailPrice = decimal.NewFromInt(999)
	assert.Equal(t, "60.5", item.UnitPrice.String())

	_, err = NewLineItem(p, 0)
	assert.True(t, errors.Is(err, shared.ErrValidation))

	p.Active = false
	_, err = NewLineItem(p, 1)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestNewSale(t *testing.T) {
	a, err := NewLineItem(newTestProduct(t, "10"), 3)
	require.NoError(t, err)
	b, err := NewLineItem(newTestProduct(t, "2.50"), 2)
	require.NoError(t, err)

	t.Run("computes totals and raises event", func(t *testing.T) {
		sale, err := NewSale(testSeller(), nil, PaymentMethodCash, "", []LineItem{a, b})
		require.NoError(t, err)

		assert.Equal(t, "35", sale.Total.String())
		assert.True(t, sale.Subtotal.Equal(sale.Total))
		assert.False(t, sale.Invoiced)
		assert.Nil(t, sale.Fiscal)
		require.Len(t, sale.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeSaleCreated, sale.GetDomainEvents()[0].EventType())
		assert.Len(t, sale.StockLines(), 2)
	})

	t.Run("nil customer id is treated as unidentified", func(t *testing.T) {
		nilID := uuid.Nil
		sale, err := NewSale(testSeller(), &nilID, PaymentMethodCard, "", []LineItem{a})
		require.NoError(t, err)
		assert.Nil(t, sale.CustomerID)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := NewSale(testSeller(), nil, PaymentMethod("cheque"), "", []LineItem{a})
		assert.True(t, errors.Is(err, shared.ErrValidation))

		_, err = NewSale(testSeller(), nil, PaymentMethodCash, "", nil)
		assert.True(t, errors.Is(err, shared.ErrValidation))

		_, err = NewSale(Seller{}, nil, PaymentMethodCash, "", []LineItem{a})
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestSale_MarkInvoiced(t *testing.T) {
	item, err := NewLineItem(newTestProduct(t, "121"), 1)
	require.NoError(t, err)
	sale, err := NewSale(testSeller(), nil, PaymentMethodCash, "", []LineItem{item})
	require.NoError(t, err)
	sale.ClearDomainEvents()

	data := FiscalData{
		VoucherType:       fiscal.VoucherTypeFacturaC,
		PointOfSale:       1,
		VoucherNumber:     43,
		AuthorizationCode: "74123456789012",
	}
	require.NoError(t, sale.MarkInvoiced(data, uuid.New()))
	assert.True(t, sale.Invoiced)
	assert.Equal(t, int64(43), sale.Fiscal.VoucherNumber)
	assert.False(t, sale.Fiscal.InvoicedAt.IsZero())
	require.Len(t, sale.GetDomainEvents(), 1)

	again := data
	again.VoucherNumber = 44
	err = sale.MarkInvoiced(again, uuid.New())
	assert.True(t, errors.Is(err, shared.ErrAlreadyInvoiced))
	assert.Equal(t, int64(43), sale.Fiscal.VoucherNumber)
}

func TestSale_TaxableLines(t *testing.T) {
	p := newTestProduct(t, "121")
	item, err := NewLineItem(p, 1)
	require.NoError(t, err)
	sale, err := NewSale(testSeller(), nil, PaymentMethodCash, "", []LineItem{item})
	require.NoError(t, err)

	b, err := fiscal.ComputeBreakdown(sale.TaxableLines())
	require.NoError(t, err)
	totals := b.Rounded()
	assert.Equal(t, "100.00", totals.Net.StringFixed(2))
	assert.Equal(t, "21.00", totals.Tax.StringFixed(2))
}

func TestNewQuote(t *testing.T) {
	item, err := NewLineItem(newTestProduct(t, "10"), 1)
	require.NoError(t, err)
	customer := uuid.New()

	q, err := NewQuote(testSeller(), customer, 0, "", []LineItem{item})
	require.NoError(t, err)
	assert.Equal(t, DefaultValidityDays, q.ValidityDays)
	assert.Equal(t, QuoteStatusPending, q.Status)
	assert.Equal(t, q.CreatedAt.AddDate(0, 0, 15), q.ExpiresAt())

	for _, days := range []int{-1, 366} {
		_, err = NewQuote(testSeller(), customer, days, "", []LineItem{item})
		assert.True(t, errors.Is(err, shared.ErrValidation), "days=%d", days)
	}

	_, err = NewQuote(testSeller(), uuid.Nil, 10, "", []LineItem{item})
	assert.True(t, errors.Is(err, shared.ErrValidation))

	_, err = NewQuote(testSeller(), customer, 365, "", []LineItem{item})
	assert.NoError(t, err)
}

func TestQuote_Expired(t *testing.T) {
	item, err := NewLineItem(newTestProduct(t, "10"), 1)
	require.NoError(t, err)
	q, err := NewQuote(testSeller(), uuid.New(), 1, "", []LineItem{item})
	require.NoError(t, err)

	assert.False(t, q.Expired(q.CreatedAt.Add(time.Hour)))
	assert.True(t, q.Expired(q.CreatedAt.Add(25*time.Hour)))

	q.Status = QuoteStatusConverted
	assert.False(t, q.Expired(q.CreatedAt.Add(25*time.Hour)))
}

func TestQuote_ConvertToSale(t *testing.T) {
	item, err := NewLineItem(newTestProduct(t, "10"), 4)
	require.NoError(t, err)
	q, err := NewQuote(testSeller(), uuid.New(), 10, "precio especial", []LineItem{item})
	require.NoError(t, err)

	sale, err := q.ConvertToSale(testSeller(), PaymentMethodTransfer, time.Now())
	require.NoError(t, err)

	assert.Equal(t, QuoteStatusConverted, q.Status)
	require.NotNil(t, q.ConvertedSaleID)
	assert.Equal(t, sale.ID, *q.ConvertedSaleID)
	require.NotNil(t, sale.CustomerID)
	assert.Equal(t, q.CustomerID, *sale.CustomerID)
	assert.True(t, sale.Total.Equal(q.Total))
	assert.NotEqual(t, q.Items[0].ID, sale.Items[0].ID)

	_, err = q.ConvertToSale(testSeller(), PaymentMethodCash, time.Now())
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
}

func TestQuote_ConvertExpired(t *testing.T) {
	item, err := NewLineItem(newTestProduct(t, "10"), 1)
	require.NoError(t, err)
	q, err := NewQuote(testSeller(), uuid.New(), 1, "", []LineItem{item})
	require.NoError(t, err)

	_, err = q.ConvertToSale(testSeller(), PaymentMethodCash, q.CreatedAt.AddDate(0, 0, 2))
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
	assert.Equal(t, QuoteStatusPending, q.Status)
}
