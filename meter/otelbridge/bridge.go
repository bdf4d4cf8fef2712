// Package otelbridge mirrors Meter terminal outcomes onto OpenTelemetry
// metrics instruments: a duration histogram and an outcome counter,
// labeled by category and result. Adapted from the teacher's otelProvider
// (engine/telemetry/metrics/otel_provider.go) — same meter.Float64Counter/
// Float64Histogram construction against an SDK MeterProvider — but fixed
// to the two instruments a Meter terminal transition needs instead of a
// general-purpose Provider abstraction.
package otelbridge

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"telemetron/meter"
)

// Bridge mirrors meter.Data terminal events onto OTel instruments.
type Bridge struct {
	provider *sdkmetric.MeterProvider
	duration metric.Float64Histogram
	outcomes metric.Int64Counter
}

// New creates a Bridge backed by a fresh SDK MeterProvider. Callers that
// want their own exporters/readers should construct the MeterProvider
// themselves and use NewWithProvider instead.
func New() *Bridge {
	return NewWithProvider(sdkmetric.NewMeterProvider())
}

// NewWithProvider creates a Bridge against an already-configured
// MeterProvider (e.g. one wired to a real exporter).
func NewWithProvider(provider *sdkmetric.MeterProvider) *Bridge {
	m := provider.Meter("telemetron.meter")
	duration, _ := m.Float64Histogram("telemetron.meter.duration",
		metric.WithDescription("Meter elapsed time from start to terminal transition, in seconds."),
		metric.WithUnit("s"),
	)
	outcomes, _ := m.Int64Counter("telemetron.meter.outcomes",
		metric.WithDescription("Count of Meter terminal transitions by result."),
	)
	return &Bridge{provider: provider, duration: duration, outcomes: outcomes}
}

// Observe records one terminal meter.Data: its elapsed time and result.
// Call this from wherever a terminal event is produced (e.g. a logsink.Sink
// decorator that inspects DATA_OK/DATA_SLOW_OK/DATA_REJECT/DATA_FAIL
// markers, or directly after Ok/Reject/Fail in application code that has
// the Data at hand).
func (b *Bridge) Observe(ctx context.Context, category string, d meter.Data) {
	attrs := metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("result", d.Result.String()),
	)
	if b.duration != nil && d.StopTime > d.StartTime {
		seconds := float64(d.StopTime-d.StartTime) / 1e9
		b.duration.Record(ctx, seconds, attrs)
	}
	if b.outcomes != nil {
		b.outcomes.Add(ctx, 1, attrs)
	}
}

// Shutdown flushes and stops the underlying MeterProvider.
func (b *Bridge) Shutdown(ctx context.Context) error {
	return b.provider.Shutdown(ctx)
}
