package voice

import (
	"testing"
	"time"

	"github.com/brandonviaje/echo/pkg/audio"
)

func frame16kMono(bytes int) audio.Frame {
	return audio.Frame{
		Data:       make([]byte, bytes),
		SampleRate: 16000,
		Channels:   1,
		Timestamp:  20 * time.Millisecond,
	}
}

func TestPipelineBuffersSpeechOnly(t *testing.T) {
	t.Parallel()

	det := &stubDetector{Results: []bool{false, false, true, true, false}}
	m := NewManager(func() (SpeechDetector, error) { return det, nil })
	defer m.Close()

	p := NewPipeline(m)
	for range 5 {
		p.HandleFrame("alice", frame16kMono(640))
	}

	// Two speech frames plus the one trailing silence frame buffered
	// mid-utterance; the two leading silence frames are dropped.
	sess, _ := m.Lookup("alice")
	if got := sess.BufferLen(); got != 3*640 {
		t.Fatalf("BufferLen() = %d, want %d", got, 3*640)
	}
}

func TestPipelineDropsSuppressedFrames(t *testing.T) {
	t.Parallel()

	det := &stubDetector{Default: true}
	m := NewManager(func() (SpeechDetector, error) { return det, nil })
	defer m.Close()

	p := NewPipeline(m)
	now := time.Now()
	p.now = func() time.Time { return now }

	sess := m.Get("alice")
	sess.Suppress(now.Add(3 * time.Second))

	p.HandleFrame("alice", frame16kMono(640))
	if got := sess.BufferLen(); got != 0 {
		t.Fatalf("BufferLen() = %d during suppression, want 0", got)
	}
	if det.Calls != 0 {
		t.Errorf("detector called %d times during suppression, want 0", det.Calls)
	}

	// Past the deadline frames flow again.
	now = now.Add(4 * time.Second)
	p.HandleFrame("alice", frame16kMono(640))
	if got := sess.BufferLen(); got != 640 {
		t.Fatalf("BufferLen() = %d after suppression ended, want 640", got)
	}
}

func TestPipelineConvertsToRecognitionFormat(t *testing.T) {
	t.Parallel()

	det := &stubDetector{Default: true}
	m := NewManager(func() (SpeechDetector, error) { return det, nil })
	defer m.Close()

	p := NewPipeline(m)

	// One 20 ms stereo frame at 48 kHz: 960 frames * 4 bytes.
	p.HandleFrame("alice", audio.Frame{
		Data:       make([]byte, 3840),
		SampleRate: 48000,
		Channels:   2,
		Timestamp:  20 * time.Millisecond,
	})

	// 20 ms at 16 kHz mono is 320 samples, 640 bytes.
	sess, _ := m.Lookup("alice")
	if got := sess.BufferLen(); got != 640 {
		t.Fatalf("BufferLen() = %d, want 640 after downmix and resample", got)
	}
}

func TestPipelineRemovesSessionOnLeave(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	defer m.Close()

	p := NewPipeline(m)
	p.HandleFrame("alice", frame16kMono(640))
	if m.Len() != 1 {
		t.Fatalf("Len() = %d after first frame, want 1", m.Len())
	}

	p.HandleEvent(audio.Event{Type: audio.EventLeave, SpeakerID: "alice"})
	if m.Len() != 0 {
		t.Fatalf("Len() = %d after leave event, want 0", m.Len())
	}

	// A join event creates nothing; sessions are created by frames.
	p.HandleEvent(audio.Event{Type: audio.EventJoin, SpeakerID: "bob"})
	if m.Len() != 0 {
		t.Fatalf("Len() = %d after join event, want 0", m.Len())
	}
}
