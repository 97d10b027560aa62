package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"go.uber.org/zap"

	"github.com/projectamerika/mayflower/internal/bot/commands"
	"github.com/projectamerika/mayflower/internal/bot/constants"
	"github.com/projectamerika/mayflower/internal/bot/core/interaction"
	"github.com/projectamerika/mayflower/internal/bot/guilds"
	"github.com/projectamerika/mayflower/internal/bot/utils"
	"github.com/projectamerika/mayflower/internal/database"
	"github.com/projectamerika/mayflower/internal/moderation"
	"github.com/projectamerika/mayflower/internal/setup/config"
)

// InteractionTimeout is how long Discord accepts edits to an interaction response.
const InteractionTimeout = 15 * time.Minute

// Dependencies are the services the commands are built from.
type Dependencies struct {
	Workflow   *moderation.Workflow
	Users      commands.UsernameResolver
	Pending    *guilds.PendingStore
	AlertLock  *guilds.OperationLock
	DB         database.Client
	Moderation *config.Moderation
}

// Bot routes Discord interactions to the registered commands and keeps
// track of the guilds it has joined.
type Bot struct {
	client   bot.Client
	commands map[string]commands.Command
	tracker  *guilds.Tracker
	respond  *interaction.Respond
	logger   *zap.Logger
}

// New creates the Discord client and registers every command with it.
func New(token string, deps *Dependencies, logger *zap.Logger) (*Bot, error) {
	b := &Bot{
		commands: make(map[string]commands.Command),
		tracker:  guilds.NewTracker(),
		respond:  interaction.NewRespond(logger),
		logger:   logger.Named("bot"),
	}

	// Guild events are needed to know where cross-server bans apply. Role
	// alerts list members, which needs the members intent.
	client, err := disgo.New(token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMembers,
			),
		),
		bot.WithEventListeners(&events.ListenerAdapter{
			OnApplicationCommandInteraction: b.handleApplicationCommandInteraction,
			OnComponentInteraction:          b.handleComponentInteraction,
			OnModalSubmit:                   b.handleModalSubmit,
			OnGuildReady:                    b.handleGuildReady,
			OnGuildJoin:                     b.handleGuildJoin,
			OnGuildLeave:                    b.handleGuildLeave,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}

	b.client = client

	executor := guilds.NewExecutor(
		guilds.NewRestBanner(client.Rest()),
		deps.Moderation.UltraBanWorkers,
		time.Duration(deps.Moderation.UltraBanSpacing)*time.Millisecond,
		logger,
	)

	messenger := guilds.NewRestMessenger(client.Rest())
	broadcaster := guilds.NewBroadcaster(
		messenger,
		deps.Moderation.AlertWorkers,
		time.Duration(deps.Moderation.AlertSpacing)*time.Millisecond,
		logger,
	)

	b.register(
		commands.NewManage(deps.Workflow, b.respond, deps.Moderation, logger),
		commands.NewGetRobloxID(deps.Users, b.respond, logger),
		commands.NewUltraBan(b.tracker, executor, deps.Pending, deps.DB, b.respond, logger),
		commands.NewUnUltraBan(b.tracker, executor, deps.Pending, deps.DB, b.respond, logger),
		commands.NewAlert(messenger, broadcaster, deps.AlertLock, b.respond, deps.Moderation, logger),
		commands.NewPing(b.respond),
	)

	return b, nil
}

func (b *Bot) register(cmds ...commands.Command) {
	for _, cmd := range cmds {
		b.commands[cmd.Definition().Name] = cmd
	}
}

// Start registers global commands with Discord and opens the gateway connection.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Registering commands", zap.Int("count", len(b.commands)))

	definitions := make([]discord.ApplicationCommandCreate, 0, len(b.commands))
	for _, cmd := range b.commands {
		definitions = append(definitions, cmd.Definition())
	}

	if _, err := b.client.Rest().SetGlobalCommands(b.client.ApplicationID(), definitions); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	b.logger.Info("Starting bot")

	return b.client.OpenGateway(ctx)
}

// Close gracefully shuts down the Discord gateway connection.
func (b *Bot) Close(ctx context.Context) {
	b.logger.Info("Closing bot")
	b.client.Close(ctx)
}

// handleApplicationCommandInteraction checks permissions, defers the response
// and runs the command in its own goroutine.
func (b *Bot) handleApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	go func() {
		name := event.Data.CommandName()

		cmd, ok := b.commands[name]
		if !ok {
			b.reply(event, constants.UnknownCommandMessage)
			return
		}

		if cmd.AdminOnly() {
			if event.GuildID() == nil {
				b.reply(event, constants.GuildOnlyMessage)
				return
			}

			if !interaction.IsAdministrator(event.Member()) {
				b.reply(event, constants.PermissionDeniedMessage)
				return
			}
		}

		// Defer response to prevent Discord timeout while processing
		if opener, ok := cmd.(commands.ModalOpener); !ok || !opener.OpensModal() {
			if err := event.DeferCreateMessage(cmd.Ephemeral()); err != nil {
				b.logger.Error("Failed to defer create message", zap.Error(err))
				return
			}
		}

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in application command interaction handler", zap.Any("panic", r))
				b.respond.Error(event, constants.InternalErrorMessage)
			}

			b.logger.Debug("Application command interaction handled",
				zap.String("command", name),
				zap.Uint64("userID", uint64(event.User().ID)),
				zap.Duration("duration", time.Since(start)))
		}()

		ctx, cancel := context.WithTimeout(context.Background(), InteractionTimeout)
		defer cancel()

		cmd.HandleCommand(ctx, event)
	}()
}

// handleComponentInteraction routes button clicks and select menu choices to
// the command named by the first custom ID segment.
func (b *Bot) handleComponentInteraction(event *events.ComponentInteractionCreate) {
	go func() {
		customID := event.Data.CustomID()

		handler, ok := b.commands[utils.SplitCustomID(customID)[0]].(commands.ComponentHandler)
		if !ok {
			b.logger.Warn("Unhandled component interaction", zap.String("customID", customID))
			b.reply(event, constants.UnknownCommandMessage)
			return
		}

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in component interaction handler", zap.Any("panic", r))
				b.respond.Followup(event, constants.InternalErrorMessage)
			}

			b.logger.Debug("Component interaction handled",
				zap.String("customID", customID),
				zap.Duration("duration", time.Since(start)))
		}()

		ctx, cancel := context.WithTimeout(context.Background(), InteractionTimeout)
		defer cancel()

		handler.HandleComponent(ctx, event)
	}()
}

// handleModalSubmit routes modal submissions the same way as components.
func (b *Bot) handleModalSubmit(event *events.ModalSubmitInteractionCreate) {
	go func() {
		customID := event.Data.CustomID

		handler, ok := b.commands[utils.SplitCustomID(customID)[0]].(commands.ModalHandler)
		if !ok {
			b.logger.Warn("Unhandled modal submission", zap.String("customID", customID))
			b.reply(event, constants.UnknownCommandMessage)
			return
		}

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in modal submit interaction handler", zap.Any("panic", r))
				b.respond.Followup(event, constants.InternalErrorMessage)
			}

			b.logger.Debug("Modal submit interaction handled",
				zap.String("customID", customID),
				zap.Duration("duration", time.Since(start)))
		}()

		ctx, cancel := context.WithTimeout(context.Background(), InteractionTimeout)
		defer cancel()

		handler.HandleModal(ctx, event)
	}()
}

func (b *Bot) handleGuildReady(event *events.GuildReady) {
	b.tracker.Add(event.GuildID)
}

func (b *Bot) handleGuildJoin(event *events.GuildJoin) {
	b.tracker.Add(event.GuildID)
	b.logger.Info("Joined guild",
		zap.Uint64("guildID", uint64(event.GuildID)),
		zap.Int("guilds", b.tracker.Count()))
}

func (b *Bot) handleGuildLeave(event *events.GuildLeave) {
	b.tracker.Remove(event.GuildID)
	b.logger.Info("Left guild",
		zap.Uint64("guildID", uint64(event.GuildID)),
		zap.Int("guilds", b.tracker.Count()))
}

// replier is any interaction that can still be answered with a new message.
type replier interface {
	CreateMessage(messageCreate discord.MessageCreate, opts ...rest.RequestOpt) error
}

// reply answers an interaction that has not been responded to yet.
func (b *Bot) reply(event replier, content string) {
	messageCreate := discord.NewMessageCreateBuilder().
		SetContent(content).
		SetEphemeral(true).
		Build()

	if err := event.CreateMessage(messageCreate); err != nil {
		b.logger.Error("Failed to reply to interaction", zap.Error(err))
	}
}
