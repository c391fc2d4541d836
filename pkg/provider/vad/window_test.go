package vad_test

import (
	"errors"
	"testing"

	"github.com/brandonviaje/echo/pkg/provider/vad"
	"github.com/brandonviaje/echo/pkg/provider/vad/mock"
)

// cfg20ms is the pipeline's standard classifier configuration: 20 ms frames
// at 16 kHz mono, i.e. 640 bytes per frame.
var cfg20ms = vad.Config{SampleRate: 16000, FrameSizeMs: 20, SpeechThreshold: 0.5}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     vad.Config
		wantErr bool
	}{
		{"valid 20ms", vad.Config{SampleRate: 16000, FrameSizeMs: 20, SpeechThreshold: 0.5}, false},
		{"valid 10ms", vad.Config{SampleRate: 16000, FrameSizeMs: 10, SpeechThreshold: 0.5}, false},
		{"valid 30ms", vad.Config{SampleRate: 8000, FrameSizeMs: 30, SpeechThreshold: 0.5}, false},
		{"bad frame size", vad.Config{SampleRate: 16000, FrameSizeMs: 25, SpeechThreshold: 0.5}, true},
		{"zero sample rate", vad.Config{SampleRate: 0, FrameSizeMs: 20, SpeechThreshold: 0.5}, true},
		{"threshold above one", vad.Config{SampleRate: 16000, FrameSizeMs: 20, SpeechThreshold: 1.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigFrameBytes(t *testing.T) {
	t.Parallel()

	if got := cfg20ms.FrameBytes(); got != 640 {
		t.Errorf("FrameBytes() = %d, want 640", got)
	}
}

func TestWindowedAnySpeechWindowMarksBufferActive(t *testing.T) {
	t.Parallel()

	c := &mock.Classifier{Results: []bool{false, false, true, false}}
	w := vad.NewWindowed(c, cfg20ms)

	// Four full windows; the third is speech.
	buf := make([]byte, 640*4)
	if !w.DetectSpeech(buf) {
		t.Error("expected buffer with one speech window to be detected as speech")
	}
}

func TestWindowedAllSilent(t *testing.T) {
	t.Parallel()

	c := &mock.Classifier{Default: false}
	w := vad.NewWindowed(c, cfg20ms)

	buf := make([]byte, 640*3)
	if w.DetectSpeech(buf) {
		t.Error("expected all-silent buffer to not be detected as speech")
	}
	if len(c.Frames) != 3 {
		t.Errorf("classified %d windows, want 3", len(c.Frames))
	}
}

func TestWindowedDiscardsTrailingPartial(t *testing.T) {
	t.Parallel()

	c := &mock.Classifier{Default: false}
	w := vad.NewWindowed(c, cfg20ms)

	// Two full windows plus a 100-byte tail: the tail must never reach the
	// classifier.
	buf := make([]byte, 640*2+100)
	w.DetectSpeech(buf)

	if len(c.Frames) != 2 {
		t.Fatalf("classified %d windows, want 2 (trailing partial must be discarded)", len(c.Frames))
	}
	for i, f := range c.Frames {
		if len(f) != 640 {
			t.Errorf("window %d has %d bytes, want 640", i, len(f))
		}
	}
}

func TestWindowedShorterThanOneFrame(t *testing.T) {
	t.Parallel()

	c := &mock.Classifier{Default: true}
	w := vad.NewWindowed(c, cfg20ms)

	if w.DetectSpeech(make([]byte, 639)) {
		t.Error("expected sub-frame buffer to be non-speech")
	}
	if len(c.Frames) != 0 {
		t.Errorf("classifier saw %d windows, want 0", len(c.Frames))
	}
}

func TestWindowedFailOpenPerWindow(t *testing.T) {
	t.Parallel()

	// Every window errors: the buffer is non-speech, not an error.
	c := &mock.Classifier{ClassifyErr: errors.New("malformed frame")}
	w := vad.NewWindowed(c, cfg20ms)

	if w.DetectSpeech(make([]byte, 640*5)) {
		t.Error("expected erroring windows to count as non-speech")
	}
	if len(c.Frames) != 5 {
		t.Errorf("classifier saw %d windows, want 5 (errors must not abort the scan)", len(c.Frames))
	}
}
