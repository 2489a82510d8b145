package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Observability struct {
	meterProvider       *metric.MeterProvider
	meter               otelmetric.Meter
	jobCounter          otelmetric.Int64Counter
	jobDuration         otelmetric.Float64Histogram
	coordinationCounter otelmetric.Int64Counter
	coordinationLatency otelmetric.Float64Histogram
	partialFailures     otelmetric.Int64Histogram
}

// New registers an OpenTelemetry meter provider backed by the Prometheus
// exporter. On exporter failure it returns a no-op Observability.
func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	res := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName))
	provider := metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
	otel.SetMeterProvider(provider)

	return newWithProvider(provider, serviceName)
}

// NewWithReader is used by tests to collect with a manual reader.
func NewWithReader(reader metric.Reader, serviceName string) *Observability {
	return newWithProvider(metric.NewMeterProvider(metric.WithReader(reader)), serviceName)
}

func newWithProvider(provider *metric.MeterProvider, serviceName string) *Observability {
	meter := provider.Meter(serviceName)

	jobCounter, _ := meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	jobDuration, _ := meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	coordinationCounter, _ := meter.Int64Counter(
		"coordination.requests",
		otelmetric.WithDescription("Coordination requests by outcome"),
	)
	coordinationLatency, _ := meter.Float64Histogram(
		"coordination.duration",
		otelmetric.WithDescription("End-to-end coordination duration"),
		otelmetric.WithUnit("ms"),
	)
	partialFailures, _ := meter.Int64Histogram(
		"coordination.partial_failures",
		otelmetric.WithDescription("Partial failures recorded per coordination request"),
	)

	return &Observability{
		meterProvider:       provider,
		meter:               meter,
		jobCounter:          jobCounter,
		jobDuration:         jobDuration,
		coordinationCounter: coordinationCounter,
		coordinationLatency: coordinationLatency,
		partialFailures:     partialFailures,
	}
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o == nil || o.jobCounter == nil {
		return
	}
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	if o == nil || o.jobDuration == nil {
		return
	}
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

// RecordCoordination records one pipeline run. outcome is "ok", "no_venues" or a fatal error code.
func (o *Observability) RecordCoordination(ctx context.Context, outcome string, duration time.Duration, partialFailures int) {
	if o == nil || o.coordinationCounter == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("outcome", outcome))
	o.coordinationCounter.Add(ctx, 1, attrs)
	o.coordinationLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	o.partialFailures.Record(ctx, int64(partialFailures), attrs)
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
