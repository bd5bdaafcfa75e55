// Package metrics configures the OpenTelemetry meter provider and the
// application-level instruments.
package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	invoicesCreated metric.Int64Counter
	paymentEvents   metric.Int64Counter
	rateRefreshes   metric.Int64Counter
	reconcilerRuns  metric.Int64Counter
	reconcilerPaid  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "payne"
	}
	meter := provider.Meter(name)

	invoicesCreated, err := meter.Int64Counter("payne_invoices_created_total")
	if err != nil {
		return nil, err
	}
	paymentEvents, err := meter.Int64Counter("payne_payment_events_total")
	if err != nil {
		return nil, err
	}
	rateRefreshes, err := meter.Int64Counter("payne_rate_refreshes_total")
	if err != nil {
		return nil, err
	}
	reconcilerRuns, err := meter.Int64Counter("payne_reconciler_runs_total")
	if err != nil {
		return nil, err
	}
	reconcilerPaid, err := meter.Int64Counter("payne_reconciler_invoices_paid_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		invoicesCreated: invoicesCreated,
		paymentEvents:   paymentEvents,
		rateRefreshes:   rateRefreshes,
		reconcilerRuns:  reconcilerRuns,
		reconcilerPaid:  reconcilerPaid,
	}, nil
}

// IncInvoiceCreated records a created invoice.
func (m *Metrics) IncInvoiceCreated(ctx context.Context) {
	if m == nil || m.invoicesCreated == nil {
		return
	}
	m.invoicesCreated.Add(ctx, 1)
}

// IncPaymentEvent records a payment pipeline transition outcome.
func (m *Metrics) IncPaymentEvent(ctx context.Context, stage, outcome string) {
	if m == nil || m.paymentEvents == nil {
		return
	}
	m.paymentEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("outcome", outcome),
	))
}

// IncRateRefresh records a rate-cache refresh attempt.
func (m *Metrics) IncRateRefresh(ctx context.Context, source string, ok bool) {
	if m == nil || m.rateRefreshes == nil {
		return
	}
	m.rateRefreshes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.Bool("ok", ok),
	))
}

// IncReconcilerRun records a reconciliation sweep.
func (m *Metrics) IncReconcilerRun(ctx context.Context) {
	if m == nil || m.reconcilerRuns == nil {
		return
	}
	m.reconcilerRuns.Add(ctx, 1)
}

// IncReconcilerPaid records an invoice settled by the reconciler.
func (m *Metrics) IncReconcilerPaid(ctx context.Context) {
	if m == nil || m.reconcilerPaid == nil {
		return
	}
	m.reconcilerPaid.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp protocol %q", protocol)
	}
}
