// Package silero implements [vad.Classifier] on top of the Silero VAD ONNX
// model via the streamer45/silero-vad-go bindings.
//
// Silero's native inference window is 512 samples at 16 kHz, which does not
// line up with the 10/20/30 ms frames the pipeline classifies. The classifier
// bridges the two by accumulating incoming frames into model-sized windows and
// carrying the model's speech state across Classify calls: a frame is reported
// as speech while the detector considers the stream inside a speech segment.
package silero

import (
	"fmt"
	"sync"

	"github.com/streamer45/silero-vad-go/speech"

	"github.com/brandonviaje/echo/pkg/audio"
	"github.com/brandonviaje/echo/pkg/provider/vad"
)

// modelWindowSamples is Silero's fixed inference window at 16 kHz.
const modelWindowSamples = 512

// Compile-time interface assertion.
var _ vad.Classifier = (*Classifier)(nil)

// Classifier is a Silero-backed [vad.Classifier]. Create one per audio stream:
// the detector carries cross-frame state and is not safe to interleave between
// streams.
type Classifier struct {
	mu         sync.Mutex
	detector   *speech.Detector
	frameBytes int

	// pending accumulates float32 samples until a full model window exists.
	pending []float32

	// inSpeech is the detector's current segment state, updated on every
	// completed model window.
	inSpeech bool

	closed bool
}

// New loads the Silero model from modelPath and returns a Classifier for the
// given configuration. The configuration's sample rate must be 16000 — the
// only rate the bundled model supports at this window size.
func New(modelPath string, cfg vad.Config) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.SampleRate != 16000 {
		return nil, fmt.Errorf("silero: sample rate %d is unsupported (want 16000)", cfg.SampleRate)
	}

	detector, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:  modelPath,
		SampleRate: cfg.SampleRate,
		Threshold:  float32(cfg.SpeechThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("silero: create detector: %w", err)
	}

	return &Classifier{
		detector:   detector,
		frameBytes: cfg.FrameBytes(),
	}, nil
}

// Classify reports whether the frame contains speech. The frame must be
// exactly one configured frame of 16-bit mono PCM.
func (c *Classifier) Classify(frame []byte) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, fmt.Errorf("silero: classifier is closed")
	}
	if len(frame) != c.frameBytes {
		return false, fmt.Errorf("silero: frame size %d bytes, want %d", len(frame), c.frameBytes)
	}

	c.pending = append(c.pending, audio.PCM16ToFloat32(frame)...)

	// Feed every complete model window through the detector and fold its
	// start/end events into the segment state.
	for len(c.pending) >= modelWindowSamples {
		window := c.pending[:modelWindowSamples]
		c.pending = c.pending[modelWindowSamples:]

		event, err := c.detector.DetectStreamFrame(window)
		if err != nil {
			// Recover the detector and report the bad window upward; the
			// windowed adapter treats it as non-speech.
			c.detector.Reset()
			c.inSpeech = false
			return false, fmt.Errorf("silero: detect: %w", err)
		}
		if event != nil {
			if event.IsStart {
				c.inSpeech = true
			}
			if event.IsEnd {
				c.inSpeech = false
			}
		}
	}

	return c.inSpeech, nil
}

// Close releases the ONNX session. Calling Close more than once is safe.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.pending = nil
	return c.detector.Destroy()
}
