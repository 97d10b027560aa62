package commands

import (
	"context"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
)

// Command is a slash command registered with Discord.
type Command interface {
	// Definition describes the command for registration.
	Definition() discord.SlashCommandCreate

	// AdminOnly commands may only be run by guild administrators.
	AdminOnly() bool

	// Ephemeral reports whether the deferred reply is hidden from other users.
	Ephemeral() bool

	// HandleCommand runs after the interaction has been deferred.
	HandleCommand(ctx context.Context, event *events.ApplicationCommandInteractionCreate)
}

// ComponentHandler is implemented by commands whose messages carry buttons or
// select menus. Component custom IDs start with the command name.
type ComponentHandler interface {
	// HandleComponent must respond to the interaction itself.
	HandleComponent(ctx context.Context, event *events.ComponentInteractionCreate)
}

// ModalHandler is implemented by commands that open modals.
type ModalHandler interface {
	// HandleModal must respond to the interaction itself.
	HandleModal(ctx context.Context, event *events.ModalSubmitInteractionCreate)
}

// ModalOpener is implemented by commands that may answer with a modal. A
// modal must be the first response, so these commands are not deferred and
// HandleCommand must respond to the interaction itself.
type ModalOpener interface {
	OpensModal() bool
}

// replier is any interaction that can still be answered with a new message.
type replier interface {
	CreateMessage(messageCreate discord.MessageCreate, opts ...rest.RequestOpt) error
}

// ephemeral builds a private reply.
func ephemeral(content string) discord.MessageCreate {
	return discord.NewMessageCreateBuilder().
		SetContent(content).
		SetEphemeral(true).
		Build()
}
