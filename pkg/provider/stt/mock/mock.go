// Package mock provides test doubles for the stt package interfaces.
//
// Use Recognizer to script transcription results and inspect the sample
// buffers that were submitted.
package mock

import (
	"context"
	"sync"

	"github.com/brandonviaje/echo/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Recognizer.Transcribe.
type TranscribeCall struct {
	// Samples is a copy of the float32 buffer passed to Transcribe.
	Samples []float32
}

// Recognizer is a mock implementation of stt.Recognizer.
type Recognizer struct {
	mu sync.Mutex

	// Result is returned by every Transcribe call.
	Result stt.Result

	// TranscribeErr, if non-nil, is returned by every Transcribe call.
	TranscribeErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// --- Call records ---

	// TranscribeCalls records every call to Transcribe in order.
	TranscribeCalls []TranscribeCall

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// Transcribe records the call and returns Result, TranscribeErr.
func (r *Recognizer) Transcribe(_ context.Context, samples []float32) (stt.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]float32, len(samples))
	copy(cp, samples)
	r.TranscribeCalls = append(r.TranscribeCalls, TranscribeCall{Samples: cp})
	if r.TranscribeErr != nil {
		return stt.Result{}, r.TranscribeErr
	}
	return r.Result, nil
}

// Close records the call and returns CloseErr.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CloseCallCount++
	return r.CloseErr
}

// CallCount returns the number of Transcribe calls recorded so far.
// Thread-safe.
func (r *Recognizer) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.TranscribeCalls)
}

// Reset clears all recorded call history. Thread-safe.
func (r *Recognizer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.TranscribeCalls = nil
	r.CloseCallCount = 0
}

// Compile-time assertion that Recognizer satisfies stt.Recognizer.
var _ stt.Recognizer = (*Recognizer)(nil)
