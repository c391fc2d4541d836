package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// VoiceController is the subset of the application the slash commands drive.
type VoiceController interface {
	// Listen joins the given voice channel and starts the pipeline.
	Listen(ctx context.Context, channelID string) error
	// Leave disconnects from voice and stops the pipeline.
	Leave(ctx context.Context) error
}

// RegisterCommands wires the /listen and /leave slash commands into the
// bot's router.
func RegisterCommands(b *Bot, ctrl VoiceController) {
	listenCmd := &discordgo.ApplicationCommand{
		Name:        "listen",
		Description: "Join a voice channel and listen for commands",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         "channel",
				Description:  "Voice channel to join (defaults to yours)",
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice},
			},
		},
	}
	b.Router().RegisterCommand("listen", listenCmd, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		handleListen(s, i, ctrl)
	})

	leaveCmd := &discordgo.ApplicationCommand{
		Name:        "leave",
		Description: "Leave the voice channel",
	}
	b.Router().RegisterCommand("leave", leaveCmd, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		handleLeave(s, i, ctrl)
	})
}

func handleListen(s *discordgo.Session, i *discordgo.InteractionCreate, ctrl VoiceController) {
	channelID := targetChannel(s, i)
	if channelID == "" {
		RespondEphemeral(s, i, "Join a voice channel first, or pass one with the channel option.")
		return
	}

	if err := ctrl.Listen(context.Background(), channelID); err != nil {
		slog.Error("discord: /listen failed", "channel_id", channelID, "err", err)
		RespondError(s, i, err)
		return
	}
	RespondEphemeral(s, i, "Listening for voice commands. Say \"hey echo\" to wake me.")
}

func handleLeave(s *discordgo.Session, i *discordgo.InteractionCreate, ctrl VoiceController) {
	if err := ctrl.Leave(context.Background()); err != nil {
		slog.Error("discord: /leave failed", "err", err)
		RespondError(s, i, err)
		return
	}
	RespondEphemeral(s, i, "Left the voice channel.")
}

// targetChannel resolves the channel for /listen: the explicit option when
// given, otherwise the invoker's current voice channel.
func targetChannel(s *discordgo.Session, i *discordgo.InteractionCreate) string {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "channel" {
			if ch := opt.ChannelValue(s); ch != nil {
				return ch.ID
			}
		}
	}
	if i.Member == nil || i.Member.User == nil {
		return ""
	}
	vs, err := s.State.VoiceState(i.GuildID, i.Member.User.ID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}
