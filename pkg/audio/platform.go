// Platform connectivity interfaces. Implementations are provided by
// platform-specific adapter packages (e.g. audio/discord); the voice pipeline
// depends only on these interfaces so tests can run against mocks.
package audio

import "context"

// EventType classifies participant lifecycle events emitted by a [Connection].
type EventType int

const (
	// EventJoin is emitted when a participant enters the voice channel.
	EventJoin EventType = iota

	// EventLeave is emitted when a participant leaves the voice channel.
	EventLeave
)

// String returns the human-readable name of the event type.
func (e EventType) String() string {
	switch e {
	case EventJoin:
		return "JOIN"
	case EventLeave:
		return "LEAVE"
	default:
		return "UNKNOWN"
	}
}

// Event describes a participant lifecycle change on a voice channel.
// Callbacks registered via [Connection.OnParticipantChange] receive values of
// this type.
type Event struct {
	// Type indicates whether the participant joined or left.
	Type EventType

	// SpeakerID is the platform-specific unique identifier for the participant.
	SpeakerID string

	// Username is the human-readable display name of the participant, when known.
	Username string
}

// Connection represents an active listening session on a voice channel.
//
// A Connection is obtained by calling [Platform.Connect] and remains valid
// until [Connection.Disconnect] is called. Implementations must be safe for
// concurrent use.
type Connection interface {
	// OnFrame registers cb as the callback invoked for every decoded audio
	// frame, tagged with the ID of the speaker it came from. Frames for the
	// same speaker are delivered in order; frames from different speakers may
	// interleave but never run concurrently for one speaker. Only one
	// callback may be registered at a time; subsequent calls replace the
	// previous registration.
	OnFrame(cb func(speakerID string, frame Frame))

	// OnParticipantChange registers cb as the callback to invoke whenever a
	// participant joins or leaves the channel. Only one callback may be
	// registered at a time. The callback is invoked on an internal goroutine;
	// callers must not block.
	OnParticipantChange(cb func(Event))

	// Play queues a PCM clip (format per the platform's native output, 48 kHz
	// stereo for Discord) for playback into the channel. It returns
	// immediately; playback happens on an internal goroutine. Frames are
	// dropped, not queued, if a clip is already playing.
	Play(pcm []byte)

	// Playing reports whether a clip is currently being played.
	Playing() bool

	// OnClosed registers cb to be invoked once if the connection's transport
	// drops without [Connection.Disconnect] being called. A deliberate
	// Disconnect never triggers it. Only one callback may be registered at a
	// time; subsequent calls replace the previous registration.
	OnClosed(cb func())

	// ChannelID returns the platform identifier of the connected channel.
	ChannelID() string

	// Disconnect cleanly tears down the connection and stops all background
	// goroutines. It is safe to call Disconnect more than once; subsequent
	// calls are no-ops and return nil.
	Disconnect() error
}

// Platform is the entry point for a voice-channel provider.
// Implementations wrap provider-specific SDKs and expose a uniform
// [Connection] abstraction.
//
// Implementations must be safe for concurrent use.
type Platform interface {
	// Connect joins the voice channel identified by channelID and returns an
	// active [Connection]. The supplied ctx governs the lifetime of the
	// connection attempt only; once connected, the Connection remains alive
	// until [Connection.Disconnect] is called.
	Connect(ctx context.Context, channelID string) (Connection, error)
}
