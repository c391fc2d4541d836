package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/brandonviaje/echo/internal/voice"
	"github.com/brandonviaje/echo/pkg/audio"
)

// Compile-time interface assertions.
var (
	_ voice.Actions          = (*GuildActions)(nil)
	_ voice.ChannelDirectory = (*GuildActions)(nil)
)

// GuildActions implements the guild operations the voice pipeline drives:
// moving members, disconnecting them, listing voice channels, and playing
// the acknowledgement cue on the active voice connection.
//
// GuildActions is safe for concurrent use.
type GuildActions struct {
	session *discordgo.Session
	guildID string
	ack     []byte

	mu   sync.RWMutex
	conn audio.Connection
}

// NewGuildActions creates actions for the given session and guild. ack is
// the PCM cue played when a wake phrase is heard; nil disables it.
func NewGuildActions(session *discordgo.Session, guildID string, ack []byte) *GuildActions {
	return &GuildActions{
		session: session,
		guildID: guildID,
		ack:     ack,
	}
}

// SetConnection updates the active voice connection used for the ack cue.
// Pass nil when the bot leaves voice.
func (a *GuildActions) SetConnection(conn audio.Connection) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.conn = conn
}

// Connected reports whether the speaker currently occupies a voice channel
// in the guild, per gateway state.
func (a *GuildActions) Connected(speakerID string) bool {
	vs, err := a.session.State.VoiceState(a.guildID, speakerID)
	return err == nil && vs != nil && vs.ChannelID != ""
}

// MoveSpeaker moves the speaker to the given voice channel.
func (a *GuildActions) MoveSpeaker(_ context.Context, speakerID, channelID string) error {
	if err := a.session.GuildMemberMove(a.guildID, speakerID, &channelID); err != nil {
		return fmt.Errorf("discord: move member %s to channel %s: %w", speakerID, channelID, err)
	}
	return nil
}

// DisconnectSpeaker removes the speaker from voice entirely.
func (a *GuildActions) DisconnectSpeaker(_ context.Context, speakerID string) error {
	if err := a.session.GuildMemberMove(a.guildID, speakerID, nil); err != nil {
		return fmt.Errorf("discord: disconnect member %s: %w", speakerID, err)
	}
	return nil
}

// PlayAck plays the acknowledgement cue on the active voice connection.
// Silently does nothing when no cue is loaded, the bot is not in voice, or
// another clip is mid-playback.
func (a *GuildActions) PlayAck() {
	if len(a.ack) == 0 {
		return
	}
	a.mu.RLock()
	conn := a.conn
	a.mu.RUnlock()
	if conn == nil || conn.Playing() {
		return
	}
	conn.Play(a.ack)
}

// VoiceChannels returns name -> ID for every voice channel in the guild,
// read from gateway state with an API fallback when the guild is not cached.
func (a *GuildActions) VoiceChannels() map[string]string {
	channels := a.guildChannels()
	out := make(map[string]string)
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildVoice {
			out[ch.Name] = ch.ID
		}
	}
	return out
}

func (a *GuildActions) guildChannels() []*discordgo.Channel {
	if guild, err := a.session.State.Guild(a.guildID); err == nil && len(guild.Channels) > 0 {
		return guild.Channels
	}
	channels, err := a.session.GuildChannels(a.guildID)
	if err != nil {
		slog.Warn("discord: listing guild channels", "guild_id", a.guildID, "err", err)
		return nil
	}
	return channels
}
