package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	meterName = "github.com/wolfeidau/orgdata"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Dispatch metrics
	DispatchTotal       metric.Int64Counter
	DispatchErrorsTotal metric.Int64Counter
	DispatchDuration    metric.Float64Histogram
	BatchSize           metric.Int64Histogram

	// Failures surfaced to the user
	ReportsTotal metric.Int64Counter

	// Admin API metrics
	AdminCallsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.DispatchTotal, _ = meter.Int64Counter(
		"orgdata.dispatch.total",
		metric.WithDescription("Total number of backend operations dispatched"),
		metric.WithUnit("{operation}"),
	)

	m.DispatchErrorsTotal, _ = meter.Int64Counter(
		"orgdata.dispatch.errors.total",
		metric.WithDescription("Total number of backend operations that failed"),
		metric.WithUnit("{error}"),
	)

	m.DispatchDuration, _ = meter.Float64Histogram(
		"orgdata.dispatch.duration",
		metric.WithDescription("Duration of backend operations"),
		metric.WithUnit("ms"),
	)

	m.BatchSize, _ = meter.Int64Histogram(
		"orgdata.dispatch.batch.size",
		metric.WithDescription("Number of records submitted per batch write"),
		metric.WithUnit("{record}"),
	)

	m.ReportsTotal, _ = meter.Int64Counter(
		"orgdata.reports.total",
		metric.WithDescription("Total number of failures reported to the user"),
		metric.WithUnit("{report}"),
	)

	m.AdminCallsTotal, _ = meter.Int64Counter(
		"orgdata.admin.calls.total",
		metric.WithDescription("Total number of admin API calls"),
		metric.WithUnit("{call}"),
	)

	return m
}

// Tracer returns the tracer for backend calls from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(meterName)
}
