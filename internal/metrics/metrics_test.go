package metrics

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apierr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := New(provider.Meter("test"), "storefront-test")
	require.NoError(t, err)
	return m, reader
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

func sumInt(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is %T", m.Name, m.Data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestObserveCall(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ObserveCall(ctx, "list coins", http.StatusOK, 12*time.Millisecond, nil)
	m.ObserveCall(ctx, "create order", http.StatusBadRequest, 5*time.Millisecond, &apierr.APIError{StatusCode: http.StatusBadRequest})
	m.ObserveCall(ctx, "confirm payment", 0, time.Second, apierr.Network("confirm payment", errors.New("timeout")))

	got := collect(t, reader)
	assert.EqualValues(t, 3, sumInt(t, got["storefront.api.request.count"]))

	errSum := got["storefront.api.request.error.count"].Data.(metricdata.Sum[int64])
	types := map[string]int64{}
	for _, dp := range errSum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("error.type"))
		types[v.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{"api": 1, "network": 1}, types)

	hist, ok := got["storefront.api.request.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
		svc, _ := dp.Attributes.Value(attribute.Key("service.name"))
		assert.Equal(t, "storefront-test", svc.AsString())
	}
	assert.EqualValues(t, 3, count)
}

func TestAttachRecordsSignals(t *testing.T) {
	m, reader := newTestMetrics(t)
	bus := events.NewBus()
	detach := m.Attach(bus)

	bus.Notify(events.CatalogChanged, 7)
	bus.Notify(events.CartChanged, cart.Totals{ItemCount: 3, TotalPrice: decimal.NewFromInt(300)})
	bus.Notify(events.OrderStateChanged, checkout.Transition{From: checkout.StateNone, To: checkout.StateSubmitting})
	bus.Notify(events.OrderStateChanged, checkout.Transition{From: checkout.StateSubmitting, To: checkout.StateAwaitingPayment})
	bus.Notify(events.OrderStateChanged, checkout.Transition{From: checkout.StateAwaitingPayment, To: checkout.StateConfirming})
	bus.Notify(events.OrderStateChanged, checkout.Transition{
		From: checkout.StateConfirming, To: checkout.StateConfirmed,
		OrderID: "o1", Amount: decimal.RequireFromString("212.25"),
	})

	got := collect(t, reader)

	assert.EqualValues(t, 4, sumInt(t, got["checkout_transitions_total"]))
	assert.EqualValues(t, 1, sumInt(t, got["orders_confirmed_total"]))

	revenue := got["revenue_confirmed_total"].Data.(metricdata.Sum[float64])
	require.Len(t, revenue.DataPoints, 1)
	assert.InDelta(t, 212.25, revenue.DataPoints[0].Value, 1e-9)

	cartGauge := got["cart_items_count"].Data.(metricdata.Gauge[int64])
	require.Len(t, cartGauge.DataPoints, 1)
	assert.EqualValues(t, 3, cartGauge.DataPoints[0].Value)

	catalogGauge := got["catalog_items_count"].Data.(metricdata.Gauge[int64])
	require.Len(t, catalogGauge.DataPoints, 1)
	assert.EqualValues(t, 7, catalogGauge.DataPoints[0].Value)

	detach()
	bus.Notify(events.OrderStateChanged, checkout.Transition{From: checkout.StateConfirmed, To: checkout.StateNone})
	got = collect(t, reader)
	assert.EqualValues(t, 4, sumInt(t, got["checkout_transitions_total"]), "detached metrics stop counting")
}

func TestAttachIgnoresUnexpectedPayloads(t *testing.T) {
	m, reader := newTestMetrics(t)
	bus := events.NewBus()
	m.Attach(bus)

	bus.Notify(events.CartChanged, "not totals")
	bus.Notify(events.OrderStateChanged, nil)

	got := collect(t, reader)
	_, ok := got["checkout_transitions_total"]
	assert.False(t, ok)
}

func TestInitWithoutExporter(t *testing.T) {
	m, provider, err := Init(context.Background(), config.Config{ServiceName: "storefront-go"})
	require.NoError(t, err)
	require.NotNil(t, m)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m.ObserveCall(context.Background(), "list coins", http.StatusOK, time.Millisecond, nil)
}
