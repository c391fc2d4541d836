package voice

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/brandonviaje/echo/pkg/provider/stt"
	sttmock "github.com/brandonviaje/echo/pkg/provider/stt/mock"
)

func TestDispatcherRejectsShortClips(t *testing.T) {
	t.Parallel()

	rec := &sttmock.Recognizer{}
	d := NewDispatcher(rec, func(ctx context.Context, speakerID, text string) {
		t.Error("handler called for a short clip")
	}, WithMinClipSamples(8000))

	// 0.3 s at 16 kHz mono: 4800 samples, 9600 bytes.
	d.Dispatch("alice", make([]byte, 9600))

	if got := rec.CallCount(); got != 0 {
		t.Fatalf("recognizer called %d times for a short clip, want 0", got)
	}
	if len(d.queue) != 0 {
		t.Fatalf("short clip occupied a queue slot")
	}
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	rec := &sttmock.Recognizer{}
	d := NewDispatcher(rec, nil, WithQueueSize(1), WithMinClipSamples(1))

	// Workers are not running, so the second dispatch finds the queue full.
	d.Dispatch("alice", make([]byte, 16000))
	d.Dispatch("bob", make([]byte, 16000))

	if len(d.queue) != 1 {
		t.Fatalf("queue holds %d phrases, want 1", len(d.queue))
	}
}

func TestDispatcherForwardsTranscript(t *testing.T) {
	t.Parallel()

	rec := &sttmock.Recognizer{
		Result: stt.Result{Segments: []stt.Segment{
			{Text: " Hey Echo,", AvgLogProb: -0.1},
			{Text: " move me to General. ", AvgLogProb: -0.3},
		}},
	}

	type handled struct {
		speakerID string
		text      string
	}
	got := make(chan handled, 1)
	d := NewDispatcher(rec, func(ctx context.Context, speakerID, text string) {
		got <- handled{speakerID: speakerID, text: text}
	}, WithMinClipSamples(1), WithMinConfidence(0.4))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Dispatch("alice", make([]byte, 32000))

	select {
	case h := <-got:
		if h.speakerID != "alice" {
			t.Errorf("speakerID = %q, want alice", h.speakerID)
		}
		if want := "hey echo, move me to general."; h.text != want {
			t.Errorf("text = %q, want %q", h.text, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handler never called")
	}
}

func TestDispatcherDiscardsLowConfidence(t *testing.T) {
	t.Parallel()

	// exp(-2) ≈ 0.135, well under the 0.4 floor.
	rec := &sttmock.Recognizer{
		Result: stt.Result{Segments: []stt.Segment{
			{Text: "mumble", AvgLogProb: -2},
		}},
	}

	d := NewDispatcher(rec, func(ctx context.Context, speakerID, text string) {
		t.Error("handler called for a low-confidence transcript")
	}, WithMinClipSamples(1), WithMinConfidence(0.4))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Dispatch("alice", make([]byte, 32000))

	// Wait for the worker to drain the queue and finish processing.
	deadline := time.Now().Add(5 * time.Second)
	for rec.CallCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if rec.CallCount() == 0 {
		t.Fatal("recognizer never called")
	}
	time.Sleep(50 * time.Millisecond)
}

func TestCollapse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		result         stt.Result
		wantText       string
		wantConfidence float64
	}{
		{
			name:           "no segments",
			result:         stt.Result{},
			wantText:       "",
			wantConfidence: 0,
		},
		{
			name: "single segment",
			result: stt.Result{Segments: []stt.Segment{
				{Text: " Hello there. ", AvgLogProb: -0.5},
			}},
			wantText:       "hello there.",
			wantConfidence: math.Exp(-0.5),
		},
		{
			name: "confidence is exp of mean log-probability",
			result: stt.Result{Segments: []stt.Segment{
				{Text: "one", AvgLogProb: -0.1},
				{Text: "two", AvgLogProb: -0.3},
			}},
			wantText:       "one two",
			wantConfidence: math.Exp(-0.2),
		},
		{
			name: "whitespace-only segments collapse to empty",
			result: stt.Result{Segments: []stt.Segment{
				{Text: "   ", AvgLogProb: -0.1},
			}},
			wantText:       "",
			wantConfidence: math.Exp(-0.1),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			text, confidence := collapse(tc.result)
			if text != tc.wantText {
				t.Errorf("text = %q, want %q", text, tc.wantText)
			}
			if math.Abs(confidence-tc.wantConfidence) > 1e-9 {
				t.Errorf("confidence = %v, want %v", confidence, tc.wantConfidence)
			}
		})
	}
}
