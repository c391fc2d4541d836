package discord

import (
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// HandlerFunc is the signature for slash command handlers.
type HandlerFunc func(s *discordgo.Session, i *discordgo.InteractionCreate)

// commandEntry stores a command definition along with its handler.
type commandEntry struct {
	command *discordgo.ApplicationCommand
	handler HandlerFunc
}

// CommandRouter dispatches Discord slash command interactions to registered
// handlers.
type CommandRouter struct {
	mu       sync.RWMutex
	commands map[string]commandEntry // command name → entry
}

// NewCommandRouter creates an empty router.
func NewCommandRouter() *CommandRouter {
	return &CommandRouter{
		commands: make(map[string]commandEntry),
	}
}

// RegisterCommand registers a handler for a slash command. The cmd definition
// is used when registering commands with Discord.
func (r *CommandRouter) RegisterCommand(name string, cmd *discordgo.ApplicationCommand, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = commandEntry{command: cmd, handler: handler}
}

// ApplicationCommands returns the command definitions for registration with
// the Discord API.
func (r *CommandRouter) ApplicationCommands() []*discordgo.ApplicationCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var cmds []*discordgo.ApplicationCommand
	for _, entry := range r.commands {
		if entry.command != nil {
			cmds = append(cmds, entry.command)
		}
	}
	return cmds
}

// Handle dispatches an interaction to the appropriate handler.
func (r *CommandRouter) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		slog.Warn("discord: unhandled interaction type", "type", i.Type)
		return
	}

	name := i.ApplicationCommandData().Name

	r.mu.RLock()
	entry, ok := r.commands[name]
	r.mu.RUnlock()

	if !ok {
		slog.Warn("discord: unknown command", "name", name)
		RespondEphemeral(s, i, "Unknown command.")
		return
	}
	entry.handler(s, i)
}
