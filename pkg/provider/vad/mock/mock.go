// Package mock provides test doubles for the vad package interfaces.
//
// Use Classifier to script speech/non-speech answers and inspect the frames
// that were submitted for classification.
//
// Example:
//
//	c := &mock.Classifier{Results: []bool{false, true}}
//	speech, _ := c.Classify(frame) // false, then true, then Default
package mock

import (
	"sync"

	"github.com/brandonviaje/echo/pkg/provider/vad"
)

// Classifier is a mock implementation of vad.Classifier.
type Classifier struct {
	mu sync.Mutex

	// Results is consumed one entry per Classify call. When exhausted,
	// Default is returned.
	Results []bool

	// Default is returned once Results is exhausted.
	Default bool

	// ClassifyErr, if non-nil, is returned by every Classify call.
	ClassifyErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// --- Call records ---

	// Frames records a copy of every frame passed to Classify, in order.
	Frames [][]byte

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// Classify records the call and returns the next scripted result.
func (c *Classifier) Classify(frame []byte) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp := make([]byte, len(frame))
	copy(cp, frame)
	c.Frames = append(c.Frames, cp)

	if c.ClassifyErr != nil {
		return false, c.ClassifyErr
	}

	idx := len(c.Frames) - 1
	if idx < len(c.Results) {
		return c.Results[idx], nil
	}
	return c.Default, nil
}

// Close records the call and returns CloseErr.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CloseCallCount++
	return c.CloseErr
}

// Reset clears all recorded call history. Thread-safe.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Frames = nil
	c.CloseCallCount = 0
}

// Compile-time assertion that Classifier satisfies vad.Classifier.
var _ vad.Classifier = (*Classifier)(nil)
