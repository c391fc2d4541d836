// Package whisper implements [stt.Recognizer] backed by the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/brandonviaje/echo/pkg/provider/stt"
)

const (
	defaultLanguage = "en"
	defaultBeamSize = 5
)

// Compile-time assertion that Recognizer satisfies stt.Recognizer.
var _ stt.Recognizer = (*Recognizer)(nil)

// Recognizer implements stt.Recognizer using whisper.cpp Go bindings (CGO).
// The model is loaded once at startup and shared across all Transcribe calls;
// each call creates its own whisper context, so decoding is deterministic and
// never conditioned on text from earlier phrases.
type Recognizer struct {
	model    whisperlib.Model
	language string
	beamSize int

	closeMu sync.Mutex
	closed  bool
}

// Option is a functional option for configuring a [Recognizer].
type Option func(*Recognizer)

// WithLanguage sets the language code for transcription (e.g. "en", "de").
// Defaults to "en".
func WithLanguage(lang string) Option {
	return func(r *Recognizer) { r.language = lang }
}

// WithBeamSize sets the beam-search width used for decoding. Defaults to 5.
func WithBeamSize(n int) Option {
	return func(r *Recognizer) { r.beamSize = n }
}

// New loads the whisper.cpp model from the given file path. The caller must
// call Close when the recognizer is no longer needed.
func New(modelPath string, opts ...Option) (*Recognizer, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	r := &Recognizer{
		model:    model,
		language: defaultLanguage,
		beamSize: defaultBeamSize,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Transcribe decodes one phrase of normalized mono 16 kHz samples.
//
// A fresh whisper context is created per call: contexts are not thread-safe,
// but the model can be shared across goroutines, and a fresh context also
// guarantees the decode is not conditioned on any prior phrase. Decoding uses
// greedy-deterministic parameters (temperature 0, fixed beam size).
func (r *Recognizer) Transcribe(ctx context.Context, samples []float32) (stt.Result, error) {
	if err := ctx.Err(); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: transcribe: %w", err)
	}

	wctx, err := r.model.NewContext()
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: create context: %w", err)
	}

	wctx.SetTranslate(false)
	wctx.SetTemperature(0)
	wctx.SetBeamSize(r.beamSize)
	if err := wctx.SetLanguage(r.language); err != nil {
		slog.Warn("whisper: failed to set language, using model default",
			"language", r.language, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: process audio: %w", err)
	}

	var result stt.Result
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stt.Result{}, fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		result.Segments = append(result.Segments, stt.Segment{
			Text:       text,
			AvgLogProb: avgLogProb(segment.Tokens),
		})
	}

	return result, nil
}

// Close releases the whisper model. Calling Close more than once is safe.
func (r *Recognizer) Close() error {
	r.closeMu.Lock()
	defer r.closeMu.Unlock()
	if r.closed || r.model == nil {
		return nil
	}
	r.closed = true
	return r.model.Close()
}

// avgLogProb returns the mean natural-log probability of the segment's
// tokens, or 0 when the segment carries no tokens.
func avgLogProb(tokens []whisperlib.Token) float64 {
	if len(tokens) == 0 {
		return 0
	}
	var sum float64
	for _, tok := range tokens {
		p := float64(tok.P)
		if p <= 0 {
			// Guard against log(0) from degenerate token probabilities.
			p = math.SmallestNonzeroFloat64
		}
		sum += math.Log(p)
	}
	return sum / float64(len(tokens))
}
