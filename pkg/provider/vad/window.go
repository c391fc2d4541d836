package vad

// Windowed adapts a fixed-frame [Classifier] to arbitrary-length PCM buffers.
// It partitions a buffer into consecutive classifier-sized windows and reports
// speech if ANY window is classified as speech.
//
// Error handling is fail-open per window, not per buffer: a window the backend
// rejects counts as non-speech and scanning continues, so a single clean
// window is enough to mark the whole chunk active. A trailing partial window
// shorter than one frame is discarded, never classified.
type Windowed struct {
	classifier Classifier
	frameBytes int
}

// NewWindowed wraps classifier, which must accept frames of
// cfg.FrameBytes() bytes.
func NewWindowed(classifier Classifier, cfg Config) *Windowed {
	return &Windowed{
		classifier: classifier,
		frameBytes: cfg.FrameBytes(),
	}
}

// DetectSpeech scans pcm window by window and reports whether any window
// contains speech.
func (w *Windowed) DetectSpeech(pcm []byte) bool {
	for off := 0; off+w.frameBytes <= len(pcm); off += w.frameBytes {
		speech, err := w.classifier.Classify(pcm[off : off+w.frameBytes])
		if err != nil {
			// Malformed or rejected window: skip it, keep scanning.
			continue
		}
		if speech {
			return true
		}
	}
	return false
}

// Close releases the underlying classifier.
func (w *Windowed) Close() error {
	return w.classifier.Close()
}
