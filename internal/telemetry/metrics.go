package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InitMeterProvider initializes the Prometheus exporter and MeterProvider.
// It returns an http.Handler for the /metrics endpoint and a shutdown function.
func InitMeterProvider(serviceName, serviceVersion string) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return promhttp.Handler(), mp.Shutdown, nil
}

// CheckoutMetrics counts order placement outcomes.
type CheckoutMetrics struct {
	placed   metric.Int64Counter
	rejected metric.Int64Counter
}

func NewCheckoutMetrics() (*CheckoutMetrics, error) {
	meter := otel.Meter("checkout")

	placed, err := meter.Int64Counter("orders_placed_total",
		metric.WithDescription("Orders committed successfully"),
	)
	if err != nil {
		return nil, err
	}

	rejected, err := meter.Int64Counter("orders_rejected_total",
		metric.WithDescription("Baskets rejected before or during commit"),
	)
	if err != nil {
		return nil, err
	}

	return &CheckoutMetrics{placed: placed, rejected: rejected}, nil
}

func (m *CheckoutMetrics) OrderPlaced(ctx context.Context) {
	if m == nil {
		return
	}
	m.placed.Add(ctx, 1)
}

func (m *CheckoutMetrics) OrderRejected(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
