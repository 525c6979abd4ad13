package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Resource attribute keys describing which backend a CLI run talked to.
const (
	EndpointHostKey = attribute.Key("orgdata.endpoint.host")
	ProfileKey      = attribute.Key("orgdata.profile")
	LocalKey        = attribute.Key("orgdata.endpoint.local")
)

// Config describes the process exporting telemetry.
type Config struct {
	ServiceName string
	Version     string
	Endpoint    string
	Region      string
	Profile     string
	Local       bool

	// ExportInterval defaults to 10s; a short-lived CLI flushes on shutdown anyway.
	ExportInterval time.Duration
}

// Enabled reports whether an OTLP endpoint is configured. Without one the
// global no-op providers are left in place.
func Enabled() bool {
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" ||
		os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT") != "" ||
		os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT") != ""
}

// Setup installs OTLP gRPC meter and tracer providers as the otel globals.
// Exporter settings (endpoint, headers) come from the standard OTEL_ env vars.
// The returned function flushes and stops both providers.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	res, err := NewResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	metricExporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		_ = metricExporter.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)

	otel.SetMeterProvider(mp)
	otel.SetTracerProvider(tp)

	log.Debug().
		Str("service", cfg.ServiceName).
		Str("endpoint_host", endpointHost(cfg.Endpoint)).
		Msg("telemetry enabled")

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

// NewResource describes this CLI run: service, version, region and the
// backend it is pointed at. OTEL_RESOURCE_ATTRIBUTES may add to it.
func NewResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
		LocalKey.Bool(cfg.Local),
	}
	if cfg.Region != "" {
		attrs = append(attrs, semconv.CloudRegion(cfg.Region))
	}
	if host := endpointHost(cfg.Endpoint); host != "" {
		attrs = append(attrs, EndpointHostKey.String(host))
	}
	if cfg.Profile != "" {
		attrs = append(attrs, ProfileKey.String(cfg.Profile))
	}

	return resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithFromEnv(),
		resource.WithOSType(),
	)
}

// endpointHost keeps only the host of the GraphQL endpoint; paths and query
// strings stay out of exported telemetry.
func endpointHost(endpoint string) string {
	if endpoint == "" {
		return ""
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return ""
	}
	return u.Host
}
