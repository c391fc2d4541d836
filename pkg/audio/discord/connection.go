package discord

import (
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/brandonviaje/echo/pkg/audio"
)

// Compile-time interface assertion.
var _ audio.Connection = (*Connection)(nil)

// Connection wraps a discordgo.VoiceConnection and adapts it to the
// [audio.Connection] interface. It demuxes incoming Opus packets by SSRC,
// decodes them to PCM, resolves the speaking user via VoiceSpeakingUpdate
// events, and delivers frames through the registered callback. Outgoing audio
// is limited to the ack cue played via [Connection.Play].
//
// Connection is safe for concurrent use.
type Connection struct {
	vc        *discordgo.VoiceConnection
	session   *discordgo.Session
	guildID   string
	channelID string

	ssrcMu   sync.RWMutex
	ssrcUser map[uint32]string // SSRC -> userID, fed by speaking updates

	frameMu  sync.Mutex
	frameCb  func(speakerID string, frame audio.Frame)
	changeMu sync.Mutex
	changeCb func(audio.Event)
	closedMu sync.Mutex
	closedCb func()

	playing atomic.Bool

	done      chan struct{}
	closeOnce sync.Once

	removeHandler func() // removes the VoiceStateUpdate handler

	// disconnectVC is called during Disconnect to tear down the voice
	// connection. Defaults to vc.Disconnect; overridden in tests.
	disconnectVC func() error
}

// newConnection initialises a Connection for an already-joined voice channel
// and starts the receive loop.
func newConnection(vc *discordgo.VoiceConnection, session *discordgo.Session, guildID, channelID string) (*Connection, error) {
	c := &Connection{
		vc:           vc,
		session:      session,
		guildID:      guildID,
		channelID:    channelID,
		ssrcUser:     make(map[uint32]string),
		done:         make(chan struct{}),
		disconnectVC: vc.Disconnect,
	}

	// Speaking updates carry the SSRC → user mapping for the receive loop.
	vc.AddHandler(c.handleSpeakingUpdate)

	// VoiceStateUpdate events detect participant join/leave.
	c.removeHandler = session.AddHandler(c.handleVoiceStateUpdate)

	go c.recvLoop()

	return c, nil
}

// OnFrame registers cb as the per-frame callback. Only one callback may be
// registered; subsequent calls replace the previous one.
func (c *Connection) OnFrame(cb func(speakerID string, frame audio.Frame)) {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	c.frameCb = cb
}

// OnParticipantChange registers cb as the callback for participant join/leave
// events. Only one callback may be registered; subsequent calls replace the
// previous one.
func (c *Connection) OnParticipantChange(cb func(audio.Event)) {
	c.changeMu.Lock()
	defer c.changeMu.Unlock()
	c.changeCb = cb
}

// OnClosed registers cb to be invoked once if Discord drops the voice
// transport. A deliberate [Connection.Disconnect] never triggers it.
func (c *Connection) OnClosed(cb func()) {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()
	c.closedCb = cb
}

// Play queues a 48 kHz stereo PCM clip for playback. It returns immediately;
// the clip is encoded and sent on an internal goroutine. If a clip is already
// playing the call is a no-op.
func (c *Connection) Play(pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	if !c.playing.CompareAndSwap(false, true) {
		return
	}
	go c.playClip(pcm)
}

// Playing reports whether a clip is currently being played.
func (c *Connection) Playing() bool {
	return c.playing.Load()
}

// ChannelID returns the Discord channel ID this connection is bound to.
func (c *Connection) ChannelID() string {
	return c.channelID
}

// Disconnect cleanly tears down the voice connection and stops all background
// goroutines. It is safe to call more than once; subsequent calls return nil.
func (c *Connection) Disconnect() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		if c.removeHandler != nil {
			c.removeHandler()
		}
		if c.disconnectVC != nil {
			err = c.disconnectVC()
		}
	})
	return err
}

// recvLoop reads Opus packets from the Discord voice connection, demuxes them
// by SSRC, decodes Opus to PCM, and delivers frames to the registered
// callback. Decode errors (corrupted packets) are logged and the packet is
// skipped; they never abort the loop.
func (c *Connection) recvLoop() {
	// Each SSRC gets its own decoder to maintain state across frames.
	decoders := make(map[uint32]*opusDecoder)

	for {
		select {
		case <-c.done:
			return
		case pkt, ok := <-c.vc.OpusRecv:
			if !ok {
				c.notifyClosed()
				return
			}
			if pkt == nil {
				continue
			}

			ssrc := pkt.SSRC

			dec, exists := decoders[ssrc]
			if !exists {
				var err error
				dec, err = newOpusDecoder()
				if err != nil {
					slog.Error("discord: failed to create opus decoder", "ssrc", ssrc, "error", err)
					continue
				}
				decoders[ssrc] = dec
			}

			pcm, err := dec.decode(pkt.Opus)
			if err != nil {
				slog.Warn("discord: dropping corrupted audio packet", "ssrc", ssrc, "error", err)
				continue
			}

			c.frameMu.Lock()
			cb := c.frameCb
			c.frameMu.Unlock()
			if cb == nil {
				continue
			}

			cb(c.speakerForSSRC(ssrc), audio.Frame{
				Data:       pcm,
				SampleRate: opusSampleRate,
				Channels:   opusChannels,
				Timestamp:  time.Duration(pkt.Timestamp) * time.Second / time.Duration(opusSampleRate),
			})
		}
	}
}

// notifyClosed reports an unexpected transport drop to the registered
// callback. Drops caused by our own Disconnect are not reported.
func (c *Connection) notifyClosed() {
	select {
	case <-c.done:
		return
	default:
	}

	c.closedMu.Lock()
	cb := c.closedCb
	c.closedMu.Unlock()
	if cb != nil {
		slog.Warn("discord: voice transport dropped", "channel_id", c.channelID)
		go cb()
	}
}

// playClip encodes pcm into 20 ms Opus frames and sends them to Discord.
// The playing flag is cleared when the clip finishes or the connection closes.
func (c *Connection) playClip(pcm []byte) {
	defer c.playing.Store(false)

	enc, err := newOpusEncoder()
	if err != nil {
		slog.Error("discord: failed to create opus encoder", "error", err)
		return
	}

	c.setSpeaking(true)
	defer c.setSpeaking(false)

	for off := 0; off+opusFrameBytes <= len(pcm); off += opusFrameBytes {
		frame, err := enc.encode(pcm[off : off+opusFrameBytes])
		if err != nil {
			slog.Warn("discord: opus encode error", "error", err)
			return
		}
		select {
		case c.vc.OpusSend <- frame:
		case <-c.done:
			return
		}
	}
}

// handleSpeakingUpdate records the SSRC → user mapping that Discord announces
// when a participant starts transmitting.
func (c *Connection) handleSpeakingUpdate(_ *discordgo.VoiceConnection, su *discordgo.VoiceSpeakingUpdate) {
	if su == nil || su.UserID == "" {
		return
	}
	c.ssrcMu.Lock()
	c.ssrcUser[uint32(su.SSRC)] = su.UserID
	c.ssrcMu.Unlock()
	slog.Debug("discord: mapped SSRC to user", "ssrc", su.SSRC, "speaker_id", su.UserID)
}

// speakerForSSRC returns the user ID associated with the given SSRC. Before
// the first speaking update arrives the SSRC itself (as a decimal string) is
// used as a provisional identity.
func (c *Connection) speakerForSSRC(ssrc uint32) string {
	c.ssrcMu.RLock()
	defer c.ssrcMu.RUnlock()
	if uid, ok := c.ssrcUser[ssrc]; ok {
		return uid
	}
	return strconv.FormatUint(uint64(ssrc), 10)
}

// handleVoiceStateUpdate processes Discord VoiceStateUpdate events to detect
// participant joins and leaves for the voice channel this connection is on.
func (c *Connection) handleVoiceStateUpdate(_ *discordgo.Session, vsu *discordgo.VoiceStateUpdate) {
	if vsu.GuildID != c.guildID {
		return
	}

	// Participant left our channel (includes moves to another channel).
	if vsu.BeforeUpdate != nil && vsu.BeforeUpdate.ChannelID == c.channelID && vsu.ChannelID != c.channelID {
		c.emitEvent(audio.Event{
			Type:      audio.EventLeave,
			SpeakerID: vsu.UserID,
			Username:  memberName(vsu.Member),
		})
		return
	}

	// Participant joined our channel.
	if vsu.ChannelID == c.channelID && (vsu.BeforeUpdate == nil || vsu.BeforeUpdate.ChannelID != c.channelID) {
		c.emitEvent(audio.Event{
			Type:      audio.EventJoin,
			SpeakerID: vsu.UserID,
			Username:  memberName(vsu.Member),
		})
	}
}

// setSpeaking sends a speaking notification to Discord, logging any errors.
func (c *Connection) setSpeaking(b bool) {
	if err := c.vc.Speaking(b); err != nil {
		slog.Warn("discord: speaking notification error", "speaking", b, "error", err)
	}
}

// emitEvent safely invokes the registered participant change callback.
func (c *Connection) emitEvent(ev audio.Event) {
	c.changeMu.Lock()
	cb := c.changeCb
	c.changeMu.Unlock()
	if cb != nil {
		go cb(ev)
	}
}

// memberName extracts a display name from a guild member, if present.
func memberName(m *discordgo.Member) string {
	if m == nil || m.User == nil {
		return ""
	}
	return m.User.Username
}
