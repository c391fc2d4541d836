package observe

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestTranscriptionObserved(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.TranscriptionObserved(0.25, 0.85)
	m.TranscriptionObserved(0.5, 0.3)

	rm := collect(t, reader)
	for _, name := range []string{"echo.transcription.duration", "echo.transcription.confidence"} {
		met := findMetric(rm, name)
		if met == nil {
			t.Fatalf("metric %q not found", name)
		}
		hist, ok := met.Data.(metricdata.Histogram[float64])
		if !ok {
			t.Fatalf("metric %q is not a histogram", name)
		}
		if len(hist.DataPoints) == 0 {
			t.Fatalf("metric %q has no data points", name)
		}
		if got := hist.DataPoints[0].Count; got != 2 {
			t.Errorf("%s sample count = %d, want 2", name, got)
		}
	}
}

func TestPhraseCounters(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.PhraseDispatched()
	m.PhraseDispatched()
	m.PhraseDropped("too_short")
	m.PhraseDropped("low_confidence")
	m.PhraseDropped("low_confidence")

	rm := collect(t, reader)

	met := findMetric(rm, "echo.phrases.dispatched")
	if met == nil {
		t.Fatal("echo.phrases.dispatched not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 {
		t.Fatal("echo.phrases.dispatched has no data points")
	}
	if got := sum.DataPoints[0].Value; got != 2 {
		t.Errorf("dispatched = %d, want 2", got)
	}

	met = findMetric(rm, "echo.phrases.dropped")
	if met == nil {
		t.Fatal("echo.phrases.dropped not found")
	}
	sum, ok = met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("echo.phrases.dropped is not a sum")
	}
	// One data point per drop reason.
	if len(sum.DataPoints) != 2 {
		t.Fatalf("dropped has %d attribute sets, want 2", len(sum.DataPoints))
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 3 {
		t.Errorf("dropped total = %d, want 3", total)
	}
}

func TestCommandObserved(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.CommandObserved("move", true)
	m.CommandObserved("move", false)
	m.CommandObserved("disconnect", true)

	rm := collect(t, reader)
	met := findMetric(rm, "echo.commands")
	if met == nil {
		t.Fatal("echo.commands not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("echo.commands is not a sum")
	}
	if len(sum.DataPoints) != 3 {
		t.Errorf("commands has %d attribute sets, want 3", len(sum.DataPoints))
	}
}

func TestSessionDelta(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.SessionDelta(1)
	m.SessionDelta(1)
	m.SessionDelta(-1)

	rm := collect(t, reader)
	met := findMetric(rm, "echo.active_sessions")
	if met == nil {
		t.Fatal("echo.active_sessions not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 {
		t.Fatal("echo.active_sessions has no data points")
	}
	if got := sum.DataPoints[0].Value; got != 1 {
		t.Errorf("active sessions = %d, want 1", got)
	}
}

func TestNilMetricsHelpersAreNoOps(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.PhraseDispatched()
	m.PhraseDropped("too_short")
	m.TranscriptionObserved(0.1, 0.9)
	m.CommandObserved("move", true)
	m.SessionDelta(1)
}

func TestFrameSuppressed(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.FrameSuppressed()
	m.FrameSuppressed()

	rm := collect(t, reader)
	met := findMetric(rm, "echo.frames.suppressed")
	if met == nil {
		t.Fatal("echo.frames.suppressed not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 {
		t.Fatal("echo.frames.suppressed has no data points")
	}
	if got := sum.DataPoints[0].Value; got != 2 {
		t.Errorf("suppressed = %d, want 2", got)
	}
}
