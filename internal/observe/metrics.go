// Package observe provides application-wide observability for Echo:
// OpenTelemetry metrics, structured-logging setup, and the HTTP middleware
// used by the operational endpoints.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exported
// through a Prometheus bridge via [InitProvider] so they can be scraped from
// the standard /metrics endpoint. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
//
// All recording helpers are nil-safe: calling them on a nil *Metrics is a
// no-op, so pipeline components can take metrics as an optional dependency.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Echo metrics.
const meterName = "github.com/brandonviaje/echo"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// TranscriptionDuration tracks whisper transcription latency.
	TranscriptionDuration metric.Float64Histogram

	// TranscriptionConfidence tracks the confidence score of each transcript,
	// accepted or not.
	TranscriptionConfidence metric.Float64Histogram

	// PhrasesDispatched counts phrases accepted into the transcription queue.
	PhrasesDispatched metric.Int64Counter

	// PhrasesDropped counts phrases discarded before reaching the
	// interpreter. Use with attribute:
	//   attribute.String("reason", ...)
	PhrasesDropped metric.Int64Counter

	// FramesSuppressed counts audio frames discarded inside a speaker's
	// post-move suppression window.
	FramesSuppressed metric.Int64Counter

	// Commands counts interpreted voice commands. Use with attributes:
	//   attribute.String("command", ...), attribute.String("status", ...)
	Commands metric.Int64Counter

	// ActiveSessions tracks the number of speakers with live segmentation
	// state.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time on the
	// operational endpoints. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// on-device transcription latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// confidenceBuckets defines histogram bucket boundaries for the 0..1
// confidence scale.
var confidenceBuckets = []float64{
	0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TranscriptionDuration, err = m.Float64Histogram("echo.transcription.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionConfidence, err = m.Float64Histogram("echo.transcription.confidence",
		metric.WithDescription("Confidence score of each transcript."),
		metric.WithExplicitBucketBoundaries(confidenceBuckets...),
	); err != nil {
		return nil, err
	}

	if met.PhrasesDispatched, err = m.Int64Counter("echo.phrases.dispatched",
		metric.WithDescription("Total phrases accepted into the transcription queue."),
	); err != nil {
		return nil, err
	}
	if met.PhrasesDropped, err = m.Int64Counter("echo.phrases.dropped",
		metric.WithDescription("Total phrases discarded before interpretation, by reason."),
	); err != nil {
		return nil, err
	}
	if met.FramesSuppressed, err = m.Int64Counter("echo.frames.suppressed",
		metric.WithDescription("Total audio frames discarded during post-move suppression."),
	); err != nil {
		return nil, err
	}
	if met.Commands, err = m.Int64Counter("echo.commands",
		metric.WithDescription("Total interpreted voice commands by command and status."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("echo.active_sessions",
		metric.WithDescription("Number of speakers with live segmentation state."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("echo.http.request.duration",
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

// PhraseDispatched records a phrase entering the transcription queue.
func (m *Metrics) PhraseDispatched() {
	if m == nil {
		return
	}
	m.PhrasesDispatched.Add(context.Background(), 1)
}

// PhraseDropped records a discarded phrase with the given reason.
func (m *Metrics) PhraseDropped(reason string) {
	if m == nil {
		return
	}
	m.PhrasesDropped.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// FrameSuppressed records one frame dropped by the suppression window.
func (m *Metrics) FrameSuppressed() {
	if m == nil {
		return
	}
	m.FramesSuppressed.Add(context.Background(), 1)
}

// TranscriptionObserved records one transcription's latency and confidence.
func (m *Metrics) TranscriptionObserved(seconds, confidence float64) {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.TranscriptionDuration.Record(ctx, seconds)
	m.TranscriptionConfidence.Record(ctx, confidence)
}

// CommandObserved records an interpreted command and whether it succeeded.
func (m *Metrics) CommandObserved(command string, success bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !success {
		status = "failed"
	}
	m.Commands.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("command", command),
			attribute.String("status", status),
		),
	)
}

// SessionDelta records a session-count change of delta (+1 on create, -1 on
// destroy).
func (m *Metrics) SessionDelta(delta int64) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(context.Background(), delta)
}
