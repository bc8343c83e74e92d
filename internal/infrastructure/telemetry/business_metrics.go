package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/retailcore/backoffice/internal/domain/fiscal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// LowStockCounter reports how many active products are at or below their minimum
type LowStockCounter interface {
	CountLowStock(ctx context.Context) (int64, error)
}

// BusinessMetrics records the sale and invoice flows. It satisfies the
// metrics ports of the trade and fiscal application services.
type BusinessMetrics struct {
	logger *zap.Logger

	salesCreated    *Counter
	saleItems       *Counter
	stockRejections *Counter
	invoicesIssued  *Counter
	authorityCalls  *Histogram
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter    metric.Meter
	Logger   *zap.Logger
	LowStock LowStockCounter // optional; enables the low-stock gauge
}

// NewBusinessMetrics creates the business instruments on the given meter
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{logger: logger}

	var err error
	if bm.salesCreated, err = NewCounter(cfg.Meter, "retail_sales_created_total", "Sales committed", "{sales}"); err != nil {
		return nil, err
	}
	if bm.saleItems, err = NewCounter(cfg.Meter, "retail_sale_items_total", "Line items in committed sales", "{items}"); err != nil {
		return nil, err
	}
	if bm.stockRejections, err = NewCounter(cfg.Meter, "retail_stock_rejections_total", "Sales refused for insufficient stock", "{sales}"); err != nil {
		return nil, err
	}
	if bm.invoicesIssued, err = NewCounter(cfg.Meter, "retail_invoices_issued_total", "Vouchers authorized by the tax authority", "{vouchers}"); err != nil {
		return nil, err
	}
	if bm.authorityCalls, err = NewHistogram(cfg.Meter, "retail_authority_call_duration_seconds",
		"Latency of tax authority calls", RemoteCallBuckets); err != nil {
		return nil, err
	}

	if cfg.LowStock != nil {
		if err := bm.registerLowStockGauge(cfg.Meter, cfg.LowStock); err != nil {
			return nil, err
		}
	}

	return bm, nil
}

// registerLowStockGauge observes the low-stock count on every collection
func (bm *BusinessMetrics) registerLowStockGauge(meter metric.Meter, counter LowStockCounter) error {
	_, err := meter.Int64ObservableGauge("retail_products_low_stock",
		metric.WithDescription("Active products at or below their minimum stock"),
		metric.WithUnit("{products}"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			count, err := counter.CountLowStock(ctx)
			if err != nil {
				bm.logger.Warn("Failed to count low-stock products", zap.Error(err))
				return nil
			}
			o.Observe(count)
			return nil
		}),
	)
	return err
}

// SaleCreated records a committed sale
func (bm *BusinessMetrics) SaleCreated(ctx context.Context, itemCount int) {
	bm.salesCreated.Inc(ctx)
	bm.saleItems.Add(ctx, int64(itemCount))
}

// StockRejected records a sale refused for insufficient stock
func (bm *BusinessMetrics) StockRejected(ctx context.Context) {
	bm.stockRejections.Inc(ctx)
}

// InvoiceIssued records an authorized voucher
func (bm *BusinessMetrics) InvoiceIssued(ctx context.Context, voucherType fiscal.VoucherType) {
	bm.invoicesIssued.Inc(ctx, AttrVoucherType.String(voucherType.String()))
}

// AuthorityCall records the latency and outcome of one authority request
func (bm *BusinessMetrics) AuthorityCall(ctx context.Context, operation string, elapsed time.Duration, err error) {
	outcome := "ok"
	var rejection *fiscal.Rejection
	switch {
	case errors.As(err, &rejection):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	}
	bm.authorityCalls.RecordDuration(ctx, elapsed, AttrOperation.String(operation), AttrOutcome.String(outcome))
}
