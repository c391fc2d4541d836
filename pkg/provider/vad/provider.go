// Package vad defines the Classifier interface for Voice Activity Detection
// backends and the windowed adapter that frames arbitrary PCM buffers into
// classifier-sized windows.
//
// A VAD classifier wraps a frame-level speech detector (e.g. Silero VAD) and
// answers a single question per fixed-duration frame: speech or not. VAD is
// synchronous by design: Classify returns immediately, making it suitable for
// low-latency pipeline stages that gate the phrase segmenter.
//
// A single Classifier should not be shared across goroutines unless the
// implementation explicitly documents thread safety.
package vad

import "fmt"

// ValidFrameMs lists the frame durations a Classifier must accept.
// Frames of any other duration are a contract violation.
var ValidFrameMs = []int{10, 20, 30}

// Config holds the parameters for a VAD classifier.
type Config struct {
	// SampleRate is the audio sample rate in Hz. Must match the rate of the
	// PCM frames passed to Classify. The pipeline uses 16000.
	SampleRate int

	// FrameSizeMs is the duration of each audio frame in milliseconds.
	// Must be 10, 20, or 30; Classify returns an error for frames whose
	// length does not match.
	FrameSizeMs int

	// SpeechThreshold is the probability above which a frame is classified
	// as speech, for backends that produce a probability. Range: [0.0, 1.0].
	// Typical: 0.5.
	SpeechThreshold float64
}

// Validate reports whether cfg describes a usable classifier configuration.
func (cfg Config) Validate() error {
	if cfg.SampleRate <= 0 {
		return fmt.Errorf("vad: sample rate %d is invalid", cfg.SampleRate)
	}
	valid := false
	for _, ms := range ValidFrameMs {
		if cfg.FrameSizeMs == ms {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("vad: frame size %dms is invalid; valid values: 10, 20, 30", cfg.FrameSizeMs)
	}
	if cfg.SpeechThreshold < 0 || cfg.SpeechThreshold > 1 {
		return fmt.Errorf("vad: speech threshold %.2f is out of range [0, 1]", cfg.SpeechThreshold)
	}
	return nil
}

// FrameBytes returns the expected byte length of one classifier frame
// (16-bit mono PCM).
func (cfg Config) FrameBytes() int {
	return cfg.SampleRate * cfg.FrameSizeMs / 1000 * 2
}

// Classifier answers speech/non-speech for a single fixed-duration frame of
// 16-bit little-endian mono PCM. The frame length must equal
// [Config.FrameBytes] for the configuration the classifier was created with.
//
// Classify must not block; it is called synchronously on the frame ingestion
// path.
type Classifier interface {
	// Classify reports whether the frame contains speech. Returns an error
	// if the frame size is wrong or the backend fails on this frame.
	Classify(frame []byte) (bool, error)

	// Close releases backend resources. Calling Close more than once is safe
	// and returns nil.
	Close() error
}
