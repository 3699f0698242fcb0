// Package telemetry installs the OpenTelemetry trace and metric providers.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/yelinaung/finance-concierge/internal/config"
	"gitlab.com/yelinaung/finance-concierge/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ShutdownFunc flushes and stops the installed providers.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Setup installs global providers for the configured exporter. With
// config.ExporterNone nothing is installed and the returned func is a no-op.
func Setup(ctx context.Context, cfg *config.Config) (ShutdownFunc, error) {
	if cfg.OTelExporter == "" || cfg.OTelExporter == config.ExporterNone {
		return noopShutdown, nil
	}

	traceExp, metricExp, err := exporters(ctx, cfg.OTelExporter)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(attribute.String("service.name", cfg.OTelServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExp), sdktrace.WithResource(res))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	logger.Log.Info().
		Str("exporter", cfg.OTelExporter).
		Str("service", cfg.OTelServiceName).
		Msg("Telemetry enabled")

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

func exporters(ctx context.Context, kind string) (sdktrace.SpanExporter, sdkmetric.Exporter, error) {
	var (
		te  sdktrace.SpanExporter
		me  sdkmetric.Exporter
		err error
	)
	switch kind {
	case config.ExporterStdout:
		if te, err = stdouttrace.New(); err == nil {
			me, err = stdoutmetric.New()
		}
	case config.ExporterOTLPGRPC:
		if te, err = otlptracegrpc.New(ctx); err == nil {
			me, err = otlpmetricgrpc.New(ctx)
		}
	case config.ExporterOTLPHTTP:
		if te, err = otlptracehttp.New(ctx); err == nil {
			me, err = otlpmetrichttp.New(ctx)
		}
	default:
		return nil, nil, fmt.Errorf("unknown otel exporter %q", kind)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s exporter: %w", kind, err)
	}
	return te, me, nil
}
