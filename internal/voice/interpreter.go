package voice

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/brandonviaje/echo/internal/observe"
)

// Actions is the platform surface the interpreter drives. The discord layer
// implements it over the gateway session.
type Actions interface {
	// Connected reports whether the speaker is currently in a voice channel.
	Connected(speakerID string) bool
	// MoveSpeaker moves the speaker to the given voice channel.
	MoveSpeaker(ctx context.Context, speakerID, channelID string) error
	// DisconnectSpeaker removes the speaker from voice entirely.
	DisconnectSpeaker(ctx context.Context, speakerID string) error
	// PlayAck plays the acknowledgement cue in the bot's channel, if one is
	// loaded. Best effort.
	PlayAck()
}

// wakeWords are checked as substrings of the lowercased transcript, longest
// first so "hey echo" is reported over its "echo" suffix.
var wakeWords = []string{"hey echo", "echo"}

// destinationRe extracts the spoken destination from a move command:
// everything after the first "to", trimmed.
var destinationRe = regexp.MustCompile(`to\s+(.+)`)

// InterpreterOption configures an [Interpreter].
type InterpreterOption func(*Interpreter)

// WithWakeWindow sets how long a wake trigger keeps the speaker's session
// awake.
func WithWakeWindow(d time.Duration) InterpreterOption {
	return func(i *Interpreter) { i.wakeWindow = d }
}

// WithMoveSuppression sets how long audio from a speaker is discarded after
// a successful move.
func WithMoveSuppression(d time.Duration) InterpreterOption {
	return func(i *Interpreter) { i.moveSuppression = d }
}

// WithInterpreterMetrics attaches pipeline metrics to the interpreter.
func WithInterpreterMetrics(m *observe.Metrics) InterpreterOption {
	return func(i *Interpreter) { i.metrics = m }
}

// Interpreter turns transcripts into platform actions. A transcript first
// passes wake detection: any wake word anywhere in the text opens (or
// refreshes) the speaker's wake window, so "hey echo move me to general"
// wakes and commands in one breath. Commands are then honored only while the
// window is open.
type Interpreter struct {
	manager  *Manager
	resolver *Resolver
	actions  Actions
	metrics  *observe.Metrics

	wakeWindow      time.Duration
	moveSuppression time.Duration

	now func() time.Time
}

// NewInterpreter creates an interpreter over the session arena.
func NewInterpreter(manager *Manager, resolver *Resolver, actions Actions, opts ...InterpreterOption) *Interpreter {
	i := &Interpreter{
		manager:         manager,
		resolver:        resolver,
		actions:         actions,
		wakeWindow:      10 * time.Second,
		moveSuppression: 3 * time.Second,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// HandlePhrase processes one transcript for a speaker. It is the
// [PhraseHandler] wired into the dispatcher.
func (i *Interpreter) HandlePhrase(ctx context.Context, speakerID, text string) {
	sess, ok := i.manager.Lookup(speakerID)
	if !ok {
		// Speaker disconnected while the phrase was in flight.
		slog.Debug("voice: transcript for departed speaker dropped", "speaker_id", speakerID)
		return
	}

	now := i.now()
	if wake, found := detectWake(text); found {
		slog.Info("voice: wake word detected", "speaker_id", speakerID, "wake", wake)
		sess.MarkWake(now)
		if i.actions.Connected(speakerID) {
			i.actions.PlayAck()
		}
	}
	if !sess.Awake(i.wakeWindow, now) {
		slog.Debug("voice: transcript outside wake window ignored",
			"speaker_id", speakerID, "text", text)
		return
	}

	switch cmd := classifyCommand(text); cmd.kind {
	case commandMove:
		i.handleMove(ctx, sess, cmd.destination)
	case commandDisconnect:
		i.handleDisconnect(ctx, sess)
	case commandNone:
		// Awake but no command; the window simply stays open.
	}
}

func (i *Interpreter) handleMove(ctx context.Context, sess *Session, spoken string) {
	if spoken == "" {
		slog.Info("voice: move command without destination", "speaker_id", sess.SpeakerID)
		i.metrics.CommandObserved("move", false)
		return
	}

	channelID, channelName, ok := i.resolver.Resolve(spoken)
	if !ok {
		slog.Info("voice: no channel matched destination",
			"speaker_id", sess.SpeakerID, "spoken", spoken)
		i.metrics.CommandObserved("move", false)
		return
	}
	if !i.actions.Connected(sess.SpeakerID) {
		slog.Info("voice: speaker not in voice, move skipped", "speaker_id", sess.SpeakerID)
		i.metrics.CommandObserved("move", false)
		return
	}

	if err := i.actions.MoveSpeaker(ctx, sess.SpeakerID, channelID); err != nil {
		slog.Error("voice: moving speaker",
			"speaker_id", sess.SpeakerID, "channel", channelName, "error", err)
		i.metrics.CommandObserved("move", false)
		return
	}

	// Moving over an active voice connection emits transition noise that
	// would otherwise be segmented as a fresh phrase.
	sess.Suppress(i.now().Add(i.moveSuppression))
	slog.Info("voice: speaker moved",
		"speaker_id", sess.SpeakerID, "channel", channelName, "channel_id", channelID)
	i.metrics.CommandObserved("move", true)
}

func (i *Interpreter) handleDisconnect(ctx context.Context, sess *Session) {
	if !i.actions.Connected(sess.SpeakerID) {
		slog.Info("voice: speaker not in voice, disconnect skipped", "speaker_id", sess.SpeakerID)
		i.metrics.CommandObserved("disconnect", false)
		return
	}
	if err := i.actions.DisconnectSpeaker(ctx, sess.SpeakerID); err != nil {
		slog.Error("voice: disconnecting speaker", "speaker_id", sess.SpeakerID, "error", err)
		i.metrics.CommandObserved("disconnect", false)
		return
	}
	slog.Info("voice: speaker disconnected by command", "speaker_id", sess.SpeakerID)
	i.metrics.CommandObserved("disconnect", true)
}

// detectWake returns the wake word found in text, if any.
func detectWake(text string) (string, bool) {
	for _, w := range wakeWords {
		if strings.Contains(text, w) {
			return w, true
		}
	}
	return "", false
}

type commandKind int

const (
	commandNone commandKind = iota
	commandMove
	commandDisconnect
)

type command struct {
	kind        commandKind
	destination string
}

// classifyCommand recognizes the two supported commands in a lowercased
// transcript. Disconnect takes priority over move.
func classifyCommand(text string) command {
	if strings.Contains(text, "disconnect") || strings.Contains(text, "leave") {
		return command{kind: commandDisconnect}
	}
	if strings.Contains(text, "move") && strings.Contains(text, "to") {
		var dest string
		if m := destinationRe.FindStringSubmatch(text); m != nil {
			dest = strings.TrimSpace(m[1])
		}
		return command{kind: commandMove, destination: dest}
	}
	return command{}
}
