// Package observe provides application-wide observability primitives for
// Twistvox: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Twistvox metrics.
const meterName = "github.com/twistvox/twistvox"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// CaptureDuration tracks how long voice capture takes from the moment a
	// player is prompted until the clip is finalised.
	CaptureDuration metric.Float64Histogram

	// TranscribeDuration tracks speech-to-text transcription latency.
	TranscribeDuration metric.Float64Histogram

	// AttemptDuration tracks end-to-end attempt processing (capture through
	// scoring and persistence).
	AttemptDuration metric.Float64Histogram

	// --- Counters ---

	// Attempts counts scored attempts. Use with attributes:
	//   attribute.String("mode", ...), attribute.String("difficulty", ...), attribute.String("status", ...)
	Attempts metric.Int64Counter

	// DuelMatches counts completed duel matches. Use with attribute:
	//   attribute.String("outcome", ...) ("decided" or "draw")
	DuelMatches metric.Int64Counter

	// --- Error counters ---

	// TranscribeErrors counts transcription failures. Use with attribute:
	//   attribute.String("backend", ...)
	TranscribeErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live game sessions.
	ActiveSessions metric.Int64UpDownCounter

	// ActiveDuels tracks the number of pending or running duels.
	ActiveDuels metric.Int64UpDownCounter

	// ConnectedChannels tracks the number of voice channels the bot is
	// currently joined to.
	ConnectedChannels metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// voice-pipeline latencies, from sub-second transcription up to the longest
// permitted recording.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.CaptureDuration, err = m.Float64Histogram("twistvox.capture.duration",
		metric.WithDescription("Latency of voice capture from prompt to finalised clip."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscribeDuration, err = m.Float64Histogram("twistvox.transcribe.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AttemptDuration, err = m.Float64Histogram("twistvox.attempt.duration",
		metric.WithDescription("End-to-end attempt processing latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Attempts, err = m.Int64Counter("twistvox.attempts",
		metric.WithDescription("Total scored attempts by mode, difficulty, and status."),
	); err != nil {
		return nil, err
	}
	if met.DuelMatches, err = m.Int64Counter("twistvox.duel.matches",
		metric.WithDescription("Total completed duel matches by outcome."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.TranscribeErrors, err = m.Int64Counter("twistvox.transcribe.errors",
		metric.WithDescription("Total transcription failures by backend."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("twistvox.active_sessions",
		metric.WithDescription("Number of live game sessions."),
	); err != nil {
		return nil, err
	}
	if met.ActiveDuels, err = m.Int64UpDownCounter("twistvox.active_duels",
		metric.WithDescription("Number of pending or running duels."),
	); err != nil {
		return nil, err
	}
	if met.ConnectedChannels, err = m.Int64UpDownCounter("twistvox.connected_channels",
		metric.WithDescription("Number of voice channels currently joined."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("twistvox.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordAttempt records an attempt counter increment with the standard
// attribute set. status is "success" or "failed" per the pass threshold.
func (m *Metrics) RecordAttempt(ctx context.Context, mode, difficulty, status string) {
	m.Attempts.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("mode", mode),
			attribute.String("difficulty", difficulty),
			attribute.String("status", status),
		),
	)
}

// RecordDuelMatch records a completed duel match. outcome is "decided" when
// a winner emerged and "draw" otherwise.
func (m *Metrics) RecordDuelMatch(ctx context.Context, outcome string) {
	m.DuelMatches.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordTranscribeError records a transcription failure for the given
// backend.
func (m *Metrics) RecordTranscribeError(ctx context.Context, backend string) {
	m.TranscribeErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("backend", backend)),
	)
}
