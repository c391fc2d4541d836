// Package voice implements the core of Echo: the per-speaker phrase
// segmentation state machine and the command pipeline built on top of it.
//
// Audio flows through the package in two directions. The hot path is frame
// ingestion ([Pipeline.HandleFrame]): suppression check, downmix/resample,
// VAD classification, and segmenter buffering. The cold path is driven by the
// [Watchdog], which flushes phrases bounded by silence and hands them to the
// [Dispatcher]'s worker pool for transcription, after which the [Interpreter]
// turns transcripts into platform actions.
package voice

import (
	"log/slog"
	"sync"
	"time"
)

// SpeechDetector reports whether a PCM buffer contains speech. It is the
// gate between raw audio and the phrase segmenter; vad.Windowed implements
// it over a frame classifier.
//
// Detectors may carry cross-frame state, so each speaker session owns its
// own instance.
type SpeechDetector interface {
	DetectSpeech(pcm []byte) bool
	Close() error
}

// Session holds the segmentation and command state for one tracked speaker.
// A session exists iff at least one frame has been received since the
// speaker's last (re)join; it is destroyed on disconnect.
//
// All methods are safe for concurrent use: the buffer and flags are guarded
// by the session's own mutex so frame ingestion, the watchdog, and move
// handling never race on them.
type Session struct {
	// SpeakerID is the stable platform identity this session tracks.
	SpeakerID string

	mu              sync.Mutex
	buffer          []byte
	lastSpeech      time.Time
	speaking        bool
	lastWake        time.Time // zero until the first wake trigger
	suppressedUntil time.Time

	detector SpeechDetector // may be nil; nil detects nothing
}

// Ingest runs one step of the segmentation state machine on a classified
// chunk. Speech updates the last-speech timestamp, marks the utterance
// active, and buffers the chunk. Silence is buffered only mid-utterance so
// natural pauses survive while leading silence never accumulates.
func (s *Session) Ingest(chunk []byte, isSpeech bool, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if isSpeech {
		s.lastSpeech = now
		s.speaking = true
		s.buffer = append(s.buffer, chunk...)
		return
	}
	if s.speaking {
		s.buffer = append(s.buffer, chunk...)
	}
}

// Flush atomically takes ownership of the buffered phrase, clears the buffer,
// and resets the speaking flag. The returned bytes may be empty.
func (s *Session) Flush() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	captured := s.buffer
	s.buffer = nil
	s.speaking = false
	return captured
}

// SilentFor reports whether the session has been silent longer than threshold
// and has buffered audio waiting to be flushed.
func (s *Session) SilentFor(threshold time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer) > 0 && now.Sub(s.lastSpeech) > threshold
}

// BufferLen returns the current buffered byte count.
func (s *Session) BufferLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

// DetectSpeech classifies pcm with the session's detector. A session without
// a detector reports no speech.
func (s *Session) DetectSpeech(pcm []byte) bool {
	// The detector handles its own synchronisation; frames for one speaker
	// never arrive concurrently.
	if s.detector == nil {
		return false
	}
	return s.detector.DetectSpeech(pcm)
}

// MarkWake records a wake-word trigger at now.
func (s *Session) MarkWake(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastWake = now
}

// Awake reports whether now falls inside the wake window opened by the most
// recent wake trigger.
func (s *Session) Awake(window time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.lastWake.IsZero() && now.Sub(s.lastWake) < window
}

// Suppress drops all buffered audio and discards incoming frames until the
// given deadline. Called after a successful move so the speaker's own
// transition audio is never reinterpreted as a new command.
func (s *Session) Suppress(until time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suppressedUntil = until
	s.buffer = nil
	s.speaking = false
}

// Suppressed reports whether incoming audio should currently be discarded.
// While suppressed the buffer is also kept clear.
func (s *Session) Suppressed(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Before(s.suppressedUntil) {
		s.buffer = nil
		return true
	}
	return false
}

// close releases the session's detector.
func (s *Session) close() {
	if s.detector == nil {
		return
	}
	if err := s.detector.Close(); err != nil {
		slog.Warn("voice: closing speech detector", "speaker_id", s.SpeakerID, "error", err)
	}
}

// DetectorFactory creates a per-session speech detector. A factory error is
// logged and the session falls back to detecting nothing, which fails open
// to "not speech" exactly like a rejected classifier window.
type DetectorFactory func() (SpeechDetector, error)

// Manager owns the mapping from speaker identity to [Session] exclusively.
// Other components operate on session references obtained through it and must
// not retain them past the current operation: the manager may destroy the
// session concurrently on disconnect.
//
// A coarse RWMutex guards insert/remove/snapshot; per-session state is
// guarded by each session's own lock.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	newDetector DetectorFactory

	// onCount, when set, observes session-count changes (+1/-1). Wired to
	// the active-sessions gauge.
	onCount func(delta int64)
}

// NewManager creates an empty session arena. newDetector may be nil, in which
// case sessions detect no speech.
func NewManager(newDetector DetectorFactory) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		newDetector: newDetector,
	}
}

// OnCountChange registers an observer for session-count changes.
func (m *Manager) OnCountChange(fn func(delta int64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCount = fn
}

// Get returns the session for speakerID, creating it on first use. Creation
// corresponds to the speaker's implicit join via their first audio frame.
func (m *Manager) Get(speakerID string) *Session {
	m.mu.RLock()
	sess, ok := m.sessions[speakerID]
	m.mu.RUnlock()
	if ok {
		return sess
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[speakerID]; ok {
		return sess
	}

	sess = &Session{SpeakerID: speakerID}
	if m.newDetector != nil {
		det, err := m.newDetector()
		if err != nil {
			slog.Error("voice: creating speech detector; session will detect no speech",
				"speaker_id", speakerID, "error", err)
		} else {
			sess.detector = det
		}
	}
	m.sessions[speakerID] = sess
	if m.onCount != nil {
		m.onCount(1)
	}
	slog.Debug("voice: session created", "speaker_id", speakerID)
	return sess
}

// Lookup returns the session for speakerID without creating one.
func (m *Manager) Lookup(speakerID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[speakerID]
	return sess, ok
}

// Remove destroys the session for speakerID, dropping its buffer and timers.
// This is pure garbage collection: buffered audio is never dispatched.
// Removing an unknown speaker is a no-op.
func (m *Manager) Remove(speakerID string) {
	m.mu.Lock()
	sess, ok := m.sessions[speakerID]
	if ok {
		delete(m.sessions, speakerID)
		if m.onCount != nil {
			m.onCount(-1)
		}
	}
	m.mu.Unlock()

	if ok {
		sess.close()
		slog.Debug("voice: session removed", "speaker_id", speakerID)
	}
}

// Snapshot returns a stable copy of the current speaker IDs. The watchdog
// iterates over it so concurrent joins and disconnects never invalidate the
// scan; a speaker missing by lookup time is simply skipped.
func (m *Manager) Snapshot() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close removes every session and releases their detectors.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}
}
