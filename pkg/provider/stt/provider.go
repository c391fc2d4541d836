// Package stt defines the Recognizer interface for speech-to-text backends.
//
// Unlike streaming STT services, the voice-command pipeline transcribes one
// completed phrase at a time: the phrase segmenter hands over a finished
// mono 16 kHz clip and the recognizer returns the segments it decoded,
// each with an average log-probability the dispatcher folds into a
// confidence score. Phrases are independent — implementations must not
// condition decoding on text from earlier calls.
//
// Implementations must be safe for concurrent use; the transcription worker
// pool calls Transcribe from multiple goroutines.
package stt

import "context"

// Segment is one decoded span of a transcription result.
type Segment struct {
	// Text is the transcribed content of this segment.
	Text string

	// AvgLogProb is the mean log-probability of the segment's tokens.
	// Zero when the backend produced no token probabilities.
	AvgLogProb float64
}

// Result is the outcome of transcribing one phrase.
type Result struct {
	// Segments holds the decoded spans in order. Empty when the backend
	// recognised nothing.
	Segments []Segment
}

// Recognizer transcribes a completed phrase of normalized mono 16 kHz audio.
type Recognizer interface {
	// Transcribe decodes samples (float32 PCM in [-1, 1) at 16 kHz mono)
	// and returns the recognised segments. An empty result is not an error;
	// an error means the backend itself failed.
	Transcribe(ctx context.Context, samples []float32) (Result, error)

	// Close releases backend resources. Calling Close more than once is
	// safe and returns nil.
	Close() error
}
