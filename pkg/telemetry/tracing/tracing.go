// Package tracing configures the process-wide OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/goclaw/livecheck/config"
	"github.com/goclaw/livecheck/pkg/logger"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

type options struct {
	exporter sdktrace.SpanExporter
	log      logger.Logger
}

// Option customizes Init.
type Option func(*options)

// WithExporter replaces the OTLP exporter, typically with an in-memory one.
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) { o.exporter = exp }
}

// WithLogger sets the logger used to report export failures.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// Init installs a tracer provider and W3C propagators. When tracing is
// disabled a no-op provider is installed so spans cost nothing.
func Init(ctx context.Context, app config.AppConfig, cfg config.TracingConfig, opts ...Option) (ShutdownFunc, error) {
	o := options{log: logger.Global()}
	for _, opt := range opts {
		opt(&o)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	endpoint := normalizeEndpoint(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("tracing endpoint cannot be empty")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("tracing timeout must be > 0")
	}

	exp := o.exporter
	if exp == nil {
		var err error
		exp, err = newOTLPExporter(ctx, endpoint, cfg)
		if err != nil {
			return nil, fmt.Errorf("create tracing exporter: %w", err)
		}
	}
	exp = &isolatingExporter{exporter: exp, endpoint: endpoint, log: o.log}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(app.Name),
			semconv.ServiceVersion(app.Version),
			semconv.DeploymentEnvironmentName(app.Environment),
		),
	)
	if err != nil {
		_ = exp.Shutdown(ctx)
		return nil, fmt.Errorf("create tracing resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(selectSampler(cfg)),
	)
	otel.SetTracerProvider(tp)

	return func(shutdownCtx context.Context) error {
		flushErr := tp.ForceFlush(shutdownCtx)
		if err := tp.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown tracing provider: %w", err)
		}
		if flushErr != nil {
			return fmt.Errorf("flush tracing provider: %w", flushErr)
		}
		return nil
	}, nil
}

func newOTLPExporter(ctx context.Context, endpoint string, cfg config.TracingConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithTimeout(cfg.Timeout),
		otlptracegrpc.WithInsecure(),
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}
	return otlptracegrpc.New(ctx, opts...)
}

// isolatingExporter logs export failures instead of surfacing them, so a
// collector outage never fails a wait or a send.
type isolatingExporter struct {
	exporter sdktrace.SpanExporter
	endpoint string
	log      logger.Logger
}

func (e *isolatingExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if err := e.exporter.ExportSpans(ctx, spans); err != nil {
		e.log.Warn("tracing export failed",
			"error", err,
			"endpoint", e.endpoint,
			"span_count", len(spans),
		)
	}
	return nil
}

func (e *isolatingExporter) Shutdown(ctx context.Context) error {
	return e.exporter.Shutdown(ctx)
}

func selectSampler(cfg config.TracingConfig) sdktrace.Sampler {
	switch strings.ToLower(strings.TrimSpace(cfg.Sampler)) {
	case "always_on":
		return sdktrace.AlwaysSample()
	case "always_off":
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))
	}
}

// normalizeEndpoint reduces a URL to host:port as the gRPC exporter expects.
func normalizeEndpoint(endpoint string) string {
	raw := strings.TrimSpace(endpoint)
	if !strings.Contains(raw, "://") {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return raw
	}
	return parsed.Host
}
