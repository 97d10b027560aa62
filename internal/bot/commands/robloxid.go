package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/projectamerika/mayflower/internal/bot/constants"
	"github.com/projectamerika/mayflower/internal/bot/core/interaction"
	"github.com/projectamerika/mayflower/internal/roblox/fetcher"
	"go.uber.org/zap"
)

// UsernameResolver maps Roblox usernames to user IDs.
type UsernameResolver interface {
	ResolveUsername(ctx context.Context, username string) (uint64, error)
}

// GetRobloxID replies with the Roblox user ID behind a username.
type GetRobloxID struct {
	users   UsernameResolver
	respond *interaction.Respond
	logger  *zap.Logger
}

// NewGetRobloxID creates the get-roblox-id command.
func NewGetRobloxID(users UsernameResolver, respond *interaction.Respond, logger *zap.Logger) *GetRobloxID {
	return &GetRobloxID{
		users:   users,
		respond: respond,
		logger:  logger.Named("get_roblox_id_command"),
	}
}

// Definition implements Command.
func (g *GetRobloxID) Definition() discord.SlashCommandCreate {
	return discord.SlashCommandCreate{
		Name:        constants.GetRobloxIDCommandName,
		Description: "Get a user's Roblox ID from their username.",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionString{
				Name:        constants.RobloxUsernameOptionName,
				Description: "The Roblox username of the user.",
				Required:    true,
			},
		},
	}
}

// AdminOnly implements Command.
func (g *GetRobloxID) AdminOnly() bool { return false }

// Ephemeral implements Command.
func (g *GetRobloxID) Ephemeral() bool { return true }

// HandleCommand implements Command.
func (g *GetRobloxID) HandleCommand(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	username := event.SlashCommandInteractionData().String(constants.RobloxUsernameOptionName)

	userID, err := g.users.ResolveUsername(ctx, username)
	if errors.Is(err, fetcher.ErrUserNotFound) {
		g.respond.Clear(event, constants.UserNotFoundMessage)
		return
	} else if err != nil {
		g.logger.Error("Failed to resolve username",
			zap.String("username", username),
			zap.Error(err))
		g.respond.Clear(event, constants.LookupFailedMessage)
		return
	}

	g.respond.Clear(event, fmt.Sprintf(constants.RobloxIDMessageFormat, userID))
}
