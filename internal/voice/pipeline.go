package voice

import (
	"log/slog"
	"time"

	"github.com/brandonviaje/echo/internal/observe"
	"github.com/brandonviaje/echo/pkg/audio"
)

// Pipeline is the frame-ingestion front of the voice stack. It normalizes
// incoming frames to the recognition format, classifies them, and advances
// the owning speaker's segmentation state. It also reacts to participant
// events, tearing sessions down on departure.
//
// HandleFrame is called from the platform's single receive goroutine, so the
// converter needs no locking; session state is still locked because the
// watchdog and interpreter touch it concurrently.
type Pipeline struct {
	manager   *Manager
	converter *audio.FormatConverter
	metrics   *observe.Metrics

	now func() time.Time
}

// PipelineOption configures a [Pipeline].
type PipelineOption func(*Pipeline)

// WithPipelineMetrics attaches pipeline metrics to frame ingestion.
func WithPipelineMetrics(m *observe.Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// RecognitionFormat is the format all audio is normalized to before VAD and
// transcription: 16 kHz mono, the native rate of both silero and whisper.
var RecognitionFormat = audio.Format{SampleRate: 16000, Channels: 1}

// NewPipeline creates a pipeline feeding the given session arena.
func NewPipeline(manager *Manager, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		manager:   manager,
		converter: &audio.FormatConverter{Target: RecognitionFormat},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleFrame ingests one decoded frame for a speaker. Frames arriving
// during the speaker's post-move suppression window are discarded outright.
func (p *Pipeline) HandleFrame(speakerID string, frame audio.Frame) {
	sess := p.manager.Get(speakerID)
	now := p.now()
	if sess.Suppressed(now) {
		p.metrics.FrameSuppressed()
		return
	}

	converted := p.converter.Convert(frame)
	if len(converted.Data) == 0 {
		return
	}

	sess.Ingest(converted.Data, sess.DetectSpeech(converted.Data), now)
}

// HandleEvent reacts to participant changes. A departure destroys the
// speaker's session, buffered audio included; joins are implicit via the
// first frame.
func (p *Pipeline) HandleEvent(ev audio.Event) {
	switch ev.Type {
	case audio.EventLeave:
		p.manager.Remove(ev.SpeakerID)
	case audio.EventJoin:
		slog.Debug("voice: participant joined", "speaker_id", ev.SpeakerID, "username", ev.Username)
	}
}
