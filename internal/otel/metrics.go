// Package otel provides lightweight wrapper functions
// to initialize and record OpenTelemetry metrics.
package otel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"

	"github.com/tzrikka/unapprove/internal/logger"
)

const name = "github.com/tzrikka/unapprove/internal/otel"

// Options configure the OTLP HTTP exporter.
type Options struct {
	Endpoint    string
	Timeout     time.Duration
	Compression string
}

// InitMetrics sets a global meter provider which exports metrics over OTLP/HTTP.
// The caller is responsible to shut down the provider, which also flushes it.
func InitMetrics(ctx context.Context, opts Options) (*metric.MeterProvider, error) {
	exporterOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(opts.Endpoint)}
	if opts.Timeout > 0 {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithTimeout(opts.Timeout))
	}

	switch opts.Compression {
	case "", "none":
	case "gzip":
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithCompression(otlpmetrichttp.GzipCompression))
	default:
		return nil, fmt.Errorf("unsupported OTLP compression method: %q", opts.Compression)
	}

	exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, err
	}

	reader := metric.NewPeriodicReader(exporter)
	res := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName("unapprove"))
	provider := metric.NewMeterProvider(metric.WithReader(reader), metric.WithResource(res))

	otel.SetMeterProvider(provider)
	return provider, nil
}

// IncrementCounter increments a metric counter. Attributes are optional,
// and attributes with empty values are omitted.
func IncrementCounter(ctx context.Context, counterName string, incr int64, attrs map[string]string) {
	counter, err := otel.GetMeterProvider().Meter(name).Int64Counter(counterName)
	if err != nil {
		logger.FromContext(ctx).Error("failed to increment metric counter", slog.Any("error", err),
			slog.String("name", counterName), slog.Any("attrs", attrs))
		return
	}

	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		if v == "" {
			continue
		}
		kvs = append(kvs, attribute.String(k, v))
	}

	counter.Add(ctx, incr, otelmetric.WithAttributes(kvs...))
}
