package metrics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apierr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
)

// Metrics holds the storefront instruments.
type Metrics struct {
	APICalls    metric.Int64Counter
	APIErrors   metric.Int64Counter
	APIDuration metric.Float64Histogram

	CheckoutTransitions metric.Int64Counter
	OrdersConfirmed     metric.Int64Counter
	RevenueConfirmed    metric.Float64Counter
	CartItems           metric.Int64Gauge
	CatalogItems        metric.Int64Gauge

	serviceName string
}

// Init builds the meter provider. With an OTLP endpoint configured the
// provider exports every 10 seconds; without one it only aggregates in
// process.
func Init(ctx context.Context, cfg config.Config) (*Metrics, *sdkmetric.MeterProvider, error) {
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if cfg.OTLPEndpoint != "" {
		exporterOpts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint),
			otlpmetrichttp.WithURLPath("/v1/metrics"),
		}
		if cfg.OTLPInsecure {
			exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(10*time.Second),
		)))
	}

	provider := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(provider)

	m, err := New(provider.Meter(cfg.ServiceName), cfg.ServiceName)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, nil, err
	}
	return m, provider, nil
}

// New creates the instruments on meter.
func New(meter metric.Meter, serviceName string) (*Metrics, error) {
	buckets := []float64{2, 4, 6, 8, 10, 50, 100, 200, 400, 800, 1000, 1400, 2000, 5000, 10000}

	m := &Metrics{serviceName: serviceName}
	var errs []error
	add := func(err error) { errs = append(errs, err) }

	var err error
	m.APICalls, err = meter.Int64Counter("storefront.api.request.count",
		metric.WithDescription("Calls made to the storefront API"),
		metric.WithUnit("1"))
	add(err)
	m.APIErrors, err = meter.Int64Counter("storefront.api.request.error.count",
		metric.WithDescription("Failed calls to the storefront API"),
		metric.WithUnit("1"))
	add(err)
	m.APIDuration, err = meter.Float64Histogram("storefront.api.request.duration",
		metric.WithDescription("Storefront API call duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...))
	add(err)
	m.CheckoutTransitions, err = meter.Int64Counter("checkout_transitions_total",
		metric.WithDescription("Applied checkout state transitions"),
		metric.WithUnit("1"))
	add(err)
	m.OrdersConfirmed, err = meter.Int64Counter("orders_confirmed_total",
		metric.WithDescription("Orders whose payment was confirmed"),
		metric.WithUnit("1"))
	add(err)
	m.RevenueConfirmed, err = meter.Float64Counter("revenue_confirmed_total",
		metric.WithDescription("Confirmed order amounts"),
		metric.WithUnit("CHF"))
	add(err)
	m.CartItems, err = meter.Int64Gauge("cart_items_count",
		metric.WithDescription("Units currently in the cart"),
		metric.WithUnit("1"))
	add(err)
	m.CatalogItems, err = meter.Int64Gauge("catalog_items_count",
		metric.WithDescription("Items in the last loaded catalog"),
		metric.WithUnit("1"))
	add(err)

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("failed to create instruments: %w", err)
	}
	return m, nil
}

// WithServiceName adds service.name to attributes
func (m *Metrics) WithServiceName(attrs []attribute.KeyValue) []attribute.KeyValue {
	return append(attrs, attribute.String("service.name", m.serviceName))
}

// ObserveCall records one storefront API call.
func (m *Metrics) ObserveCall(ctx context.Context, op string, status int, elapsed time.Duration, err error) {
	attrs := m.WithServiceName([]attribute.KeyValue{
		attribute.String("api.operation", op),
		attribute.String("http.response.status_code", strconv.Itoa(status)),
	})
	m.APICalls.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.APIDuration.Record(ctx, float64(elapsed.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.APIErrors.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("error.type", errorType(err)))...))
	}
}

func errorType(err error) string {
	var netErr *apierr.NetworkError
	if errors.As(err, &netErr) {
		return "network"
	}
	var apiErr *apierr.APIError
	if errors.As(err, &apiErr) {
		return "api"
	}
	return "other"
}

// Attach records domain signals from bus. The returned func detaches.
func (m *Metrics) Attach(bus *events.Bus) func() {
	ctx := context.Background()
	unsubs := []func(){
		bus.Subscribe(events.CartChanged, func(payload any) {
			if t, ok := payload.(cart.Totals); ok {
				m.CartItems.Record(ctx, int64(t.ItemCount), metric.WithAttributes(m.WithServiceName(nil)...))
			}
		}),
		bus.Subscribe(events.CatalogChanged, func(payload any) {
			if n, ok := payload.(int); ok {
				m.CatalogItems.Record(ctx, int64(n), metric.WithAttributes(m.WithServiceName(nil)...))
			}
		}),
		bus.Subscribe(events.OrderStateChanged, func(payload any) {
			t, ok := payload.(checkout.Transition)
			if !ok {
				return
			}
			m.CheckoutTransitions.Add(ctx, 1, metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
				attribute.String("checkout.from", string(t.From)),
				attribute.String("checkout.to", string(t.To)),
			})...))
			if t.To == checkout.StateConfirmed {
				m.OrdersConfirmed.Add(ctx, 1, metric.WithAttributes(m.WithServiceName(nil)...))
				m.RevenueConfirmed.Add(ctx, t.Amount.InexactFloat64(), metric.WithAttributes(m.WithServiceName(nil)...))
			}
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
