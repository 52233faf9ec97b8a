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
	pricingCalculations metric.Int64Counter
	pricingRejections   metric.Int64Counter
	sessionsSaved       metric.Int64Counter
	recordsCreated      metric.Int64Counter
	statusChanges       metric.Int64Counter
	notificationsSent   metric.Int64Counter
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

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "opsdesk"
	}
	meter := provider.Meter(name)

	pricingCalculations, err := meter.Int64Counter("opsdesk_pricing_calculations_total")
	if err != nil {
		return nil, err
	}
	pricingRejections, err := meter.Int64Counter("opsdesk_pricing_rejections_total")
	if err != nil {
		return nil, err
	}
	sessionsSaved, err := meter.Int64Counter("opsdesk_pricing_sessions_saved_total")
	if err != nil {
		return nil, err
	}
	recordsCreated, err := meter.Int64Counter("opsdesk_records_created_total")
	if err != nil {
		return nil, err
	}
	statusChanges, err := meter.Int64Counter("opsdesk_status_changes_total")
	if err != nil {
		return nil, err
	}
	notificationsSent, err := meter.Int64Counter("opsdesk_notifications_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		pricingCalculations: pricingCalculations,
		pricingRejections:   pricingRejections,
		sessionsSaved:       sessionsSaved,
		recordsCreated:      recordsCreated,
		statusChanges:       statusChanges,
		notificationsSent:   notificationsSent,
	}, nil
}

// RecordPricingCalculation counts priced items per mode.
func (m *Metrics) RecordPricingCalculation(ctx context.Context, mode string, items int) {
	if m == nil || items <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("mode", strings.TrimSpace(mode)))
	m.pricingCalculations.Add(ctx, int64(items), metric.WithAttributes(attrs...))
}

// RecordPricingRejection counts calculations rejected by validation.
func (m *Metrics) RecordPricingRejection(ctx context.Context, mode, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("mode", strings.TrimSpace(mode)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.pricingRejections.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordSessionSaved(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("mode", strings.TrimSpace(mode)))
	m.sessionsSaved.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordCreated(ctx context.Context, recordType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("record_type", strings.TrimSpace(recordType)))
	m.recordsCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordStatusChange counts workflow transitions by target status.
func (m *Metrics) RecordStatusChange(ctx context.Context, recordType, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("record_type", strings.TrimSpace(recordType)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	m.statusChanges.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordNotification(ctx context.Context, template, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("template", strings.TrimSpace(template)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.notificationsSent.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"mode":        {},
	"reason":      {},
	"record_type": {},
	"status":      {},
	"template":    {},
	"outcome":     {},
	"endpoint":    {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
