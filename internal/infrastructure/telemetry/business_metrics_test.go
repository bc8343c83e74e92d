package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/retailcore/backoffice/internal/domain/fiscal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type stubLowStock struct {
	count int64
	err   error
}

func (s *stubLowStock) CountLowStock(context.Context) (int64, error) {
	return s.count, s.err
}

func newTestMetrics(t *testing.T, lowStock LowStockCounter) (*BusinessMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	bm, err := NewBusinessMetrics(BusinessMetricsConfig{
		Meter:    provider.Meter("test"),
		LowStock: lowStock,
	})
	require.NoError(t, err)
	return bm, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumValue(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewBusinessMetrics_NilMeter(t *testing.T) {
	_, err := NewBusinessMetrics(BusinessMetricsConfig{})
	assert.ErrorIs(t, err, ErrMeterNil)
}

func TestNewBusinessMetrics_NoopMeter(t *testing.T) {
	bm, err := NewBusinessMetrics(BusinessMetricsConfig{Meter: noop.NewMeterProvider().Meter("test")})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		bm.SaleCreated(context.Background(), 3)
		bm.StockRejected(context.Background())
		bm.InvoiceIssued(context.Background(), fiscal.VoucherTypeFacturaB)
		bm.AuthorityCall(context.Background(), "FECAESolicitar", time.Second, nil)
	})
}

func TestBusinessMetrics_SaleCounters(t *testing.T) {
	bm, reader := newTestMetrics(t, nil)
	ctx := context.Background()

	bm.SaleCreated(ctx, 2)
	bm.SaleCreated(ctx, 5)
	bm.StockRejected(ctx)

	metrics := collect(t, reader)
	assert.Equal(t, int64(2), sumValue(t, metrics["retail_sales_created_total"]))
	assert.Equal(t, int64(7), sumValue(t, metrics["retail_sale_items_total"]))
	assert.Equal(t, int64(1), sumValue(t, metrics["retail_stock_rejections_total"]))
	_, hasGauge := metrics["retail_products_low_stock"]
	assert.False(t, hasGauge)
}

func TestBusinessMetrics_InvoiceIssuedByVoucherType(t *testing.T) {
	bm, reader := newTestMetrics(t, nil)
	ctx := context.Background()

	bm.InvoiceIssued(ctx, fiscal.VoucherTypeFacturaA)
	bm.InvoiceIssued(ctx, fiscal.VoucherTypeFacturaB)
	bm.InvoiceIssued(ctx, fiscal.VoucherTypeFacturaB)

	sum := collect(t, reader)["retail_invoices_issued_total"].Data.(metricdata.Sum[int64])
	byType := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		v, ok := dp.Attributes.Value(AttrVoucherType)
		require.True(t, ok)
		byType[v.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"Factura A": 1, "Factura B": 2}, byType)
}

func TestBusinessMetrics_AuthorityCallOutcome(t *testing.T) {
	bm, reader := newTestMetrics(t, nil)
	ctx := context.Background()

	bm.AuthorityCall(ctx, "FECAESolicitar", 200*time.Millisecond, nil)
	bm.AuthorityCall(ctx, "FECAESolicitar", 300*time.Millisecond, &fiscal.Rejection{Code: "10016", Message: "bad"})
	bm.AuthorityCall(ctx, "FECompUltimoAutorizado", time.Second, errors.New("connection refused"))

	hist, ok := collect(t, reader)["retail_authority_call_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)

	outcomes := make(map[string]uint64)
	for _, dp := range hist.DataPoints {
		v, ok := dp.Attributes.Value(AttrOutcome)
		require.True(t, ok)
		outcomes[v.AsString()] += dp.Count
	}
	assert.Equal(t, map[string]uint64{"ok": 1, "rejected": 1, "error": 1}, outcomes)
}

func TestBusinessMetrics_LowStockGauge(t *testing.T) {
	stub := &stubLowStock{count: 4}
	_, reader := newTestMetrics(t, stub)

	gauge, ok := collect(t, reader)["retail_products_low_stock"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(4), gauge.DataPoints[0].Value)

	stub.count = 1
	gauge = collect(t, reader)["retail_products_low_stock"].Data.(metricdata.Gauge[int64])
	assert.Equal(t, int64(1), gauge.DataPoints[0].Value)
}

func TestBusinessMetrics_LowStockGaugeSkipsOnError(t *testing.T) {
	_, reader := newTestMetrics(t, &stubLowStock{err: errors.New("db down")})

	m, ok := collect(t, reader)["retail_products_low_stock"]
	if ok {
		gauge := m.Data.(metricdata.Gauge[int64])
		assert.Empty(t, gauge.DataPoints)
	}
}

func TestHistogram_RecordsSeconds(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	h, err := NewHistogram(provider.Meter("test"), "call_seconds", "test", RemoteCallBuckets)
	require.NoError(t, err)
	h.RecordDuration(context.Background(), 1500*time.Millisecond, attribute.String("k", "v"))

	hist := collect(t, reader)["call_seconds"].Data.(metricdata.Histogram[float64])
	require.Len(t, hist.DataPoints, 1)
	assert.InDelta(t, 1.5, hist.DataPoints[0].Sum, 1e-9)
	assert.Equal(t, RemoteCallBuckets, hist.DataPoints[0].Bounds)
}
