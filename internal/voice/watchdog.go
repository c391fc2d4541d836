package voice

import (
	"context"
	"log/slog"
	"time"
)

// FlushFunc receives a phrase captured from a silent session. The byte slice
// is owned by the callee.
type FlushFunc func(speakerID string, pcm []byte)

// Watchdog periodically sweeps the session arena and flushes any session
// whose buffered phrase has been bounded by enough trailing silence. It is
// the only component that turns open utterances into dispatched phrases, so
// each phrase is flushed at most once.
type Watchdog struct {
	manager   *Manager
	threshold time.Duration
	period    time.Duration
	flush     FlushFunc

	now func() time.Time
}

// NewWatchdog creates a watchdog over manager. threshold is the trailing
// silence that ends a phrase; period is the sweep interval.
func NewWatchdog(manager *Manager, threshold, period time.Duration, flush FlushFunc) *Watchdog {
	return &Watchdog{
		manager:   manager,
		threshold: threshold,
		period:    period,
		flush:     flush,
		now:       time.Now,
	}
}

// Run sweeps until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) error {
	slog.Info("voice: silence watchdog started",
		"silence_threshold", w.threshold, "period", w.period)
	ticker := time.NewTicker(w.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("voice: silence watchdog stopped")
			return ctx.Err()
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep runs one pass over the arena, flushing every session silent past the
// threshold. A session vanishing between the snapshot and the lookup was
// disconnected and is skipped; its audio is gone with it.
func (w *Watchdog) Sweep() {
	now := w.now()
	for _, speakerID := range w.manager.Snapshot() {
		sess, ok := w.manager.Lookup(speakerID)
		if !ok {
			continue
		}
		if !sess.SilentFor(w.threshold, now) {
			continue
		}
		pcm := sess.Flush()
		if len(pcm) == 0 {
			// Flushed concurrently since the silence check.
			continue
		}
		slog.Debug("voice: phrase flushed", "speaker_id", speakerID, "bytes", len(pcm))
		w.flush(speakerID, pcm)
	}
}
