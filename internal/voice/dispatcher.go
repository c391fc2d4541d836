package voice

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brandonviaje/echo/internal/observe"
	"github.com/brandonviaje/echo/pkg/audio"
	"github.com/brandonviaje/echo/pkg/provider/stt"
)

// PhraseHandler receives the normalized transcript of a successfully
// recognized phrase. It runs on a dispatcher worker goroutine.
type PhraseHandler func(ctx context.Context, speakerID, text string)

// DispatcherOption configures a [Dispatcher].
type DispatcherOption func(*Dispatcher)

// WithWorkers sets the number of transcription workers. Defaults to 2.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize sets the pending-phrase queue capacity. Defaults to 16.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithMinClipSamples sets the minimum sample count a clip needs before it is
// worth transcribing.
func WithMinClipSamples(n int) DispatcherOption {
	return func(d *Dispatcher) { d.minClipSamples = n }
}

// WithMinConfidence sets the confidence floor below which transcripts are
// discarded.
func WithMinConfidence(c float64) DispatcherOption {
	return func(d *Dispatcher) { d.minConfidence = c }
}

// WithMetrics attaches pipeline metrics to the dispatcher.
func WithMetrics(m *observe.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// Dispatcher owns the transcription stage. Flushed phrases enter a bounded
// queue consumed by a fixed worker pool; each worker converts the clip to
// samples, transcribes it, applies the length and confidence gates, and
// forwards surviving transcripts to the phrase handler.
//
// Dispatch never blocks the caller: when the queue is full the phrase is
// dropped with a warning rather than stalling the watchdog.
type Dispatcher struct {
	recognizer stt.Recognizer
	handler    PhraseHandler
	metrics    *observe.Metrics

	workers        int
	queueSize      int
	minClipSamples int
	minConfidence  float64

	queue chan phrase
}

type phrase struct {
	speakerID string
	pcm       []byte
}

// NewDispatcher creates a dispatcher feeding handler with transcripts from
// recognizer. Call [Dispatcher.Run] to start the workers.
func NewDispatcher(recognizer stt.Recognizer, handler PhraseHandler, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		recognizer:     recognizer,
		handler:        handler,
		workers:        2,
		queueSize:      16,
		minClipSamples: 8000,
		minConfidence:  0.4,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = make(chan phrase, d.queueSize)
	return d
}

// Dispatch enqueues a flushed phrase for transcription. Clips shorter than
// the minimum sample count are rejected here, before they occupy a queue
// slot. The caller relinquishes ownership of pcm.
func (d *Dispatcher) Dispatch(speakerID string, pcm []byte) {
	if len(pcm)/2 < d.minClipSamples {
		slog.Debug("voice: clip too short, skipping",
			"speaker_id", speakerID, "samples", len(pcm)/2, "min_samples", d.minClipSamples)
		d.metrics.PhraseDropped("too_short")
		return
	}

	select {
	case d.queue <- phrase{speakerID: speakerID, pcm: pcm}:
		d.metrics.PhraseDispatched()
	default:
		slog.Warn("voice: transcription queue full, dropping phrase",
			"speaker_id", speakerID, "bytes", len(pcm))
		d.metrics.PhraseDropped("queue_full")
	}
}

// Run starts the worker pool and blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	slog.Info("voice: dispatcher started", "workers", d.workers, "queue_size", d.queueSize)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case p := <-d.queue:
					d.process(ctx, p)
				}
			}
		})
	}
	return g.Wait()
}

// process transcribes one phrase and forwards it if it passes the gates.
func (d *Dispatcher) process(ctx context.Context, p phrase) {
	samples := audio.PCM16ToFloat32(p.pcm)

	start := time.Now()
	result, err := d.recognizer.Transcribe(ctx, samples)
	if err != nil {
		slog.Error("voice: transcription failed", "speaker_id", p.speakerID, "error", err)
		d.metrics.PhraseDropped("transcribe_error")
		return
	}

	text, confidence := collapse(result)
	d.metrics.TranscriptionObserved(time.Since(start).Seconds(), confidence)

	if text == "" {
		slog.Debug("voice: empty transcript", "speaker_id", p.speakerID)
		d.metrics.PhraseDropped("empty")
		return
	}
	if confidence < d.minConfidence {
		slog.Debug("voice: low-confidence transcript discarded",
			"speaker_id", p.speakerID, "confidence", confidence, "text", text)
		d.metrics.PhraseDropped("low_confidence")
		return
	}

	slog.Info("voice: transcript", "speaker_id", p.speakerID, "text", text, "confidence", confidence)
	d.handler(ctx, p.speakerID, text)
}

// collapse joins a recognition result into one normalized lowercase string
// and computes its confidence as exp of the mean segment log-probability.
// A result with no segments has confidence 0.
func collapse(result stt.Result) (text string, confidence float64) {
	if len(result.Segments) == 0 {
		return "", 0
	}
	var (
		parts []string
		sum   float64
	)
	for _, seg := range result.Segments {
		parts = append(parts, strings.TrimSpace(seg.Text))
		sum += seg.AvgLogProb
	}
	text = strings.ToLower(strings.TrimSpace(strings.Join(parts, " ")))
	confidence = math.Exp(sum / float64(len(result.Segments)))
	return text, confidence
}
