package commands

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/projectamerika/mayflower/internal/bot/constants"
	"github.com/projectamerika/mayflower/internal/bot/core/interaction"
	"github.com/projectamerika/mayflower/internal/bot/guilds"
	"github.com/projectamerika/mayflower/internal/bot/views/alert"
	"github.com/projectamerika/mayflower/internal/setup/config"
	"go.uber.org/zap"
)

// Alert sends a direct message to every member of a role.
type Alert struct {
	members     guilds.MemberLister
	broadcaster *guilds.Broadcaster
	lock        *guilds.OperationLock
	respond     *interaction.Respond
	config      *config.Moderation
	logger      *zap.Logger
}

// NewAlert creates the salert command.
func NewAlert(
	members guilds.MemberLister, broadcaster *guilds.Broadcaster, lock *guilds.OperationLock,
	respond *interaction.Respond, cfg *config.Moderation, logger *zap.Logger,
) *Alert {
	return &Alert{
		members:     members,
		broadcaster: broadcaster,
		lock:        lock,
		respond:     respond,
		config:      cfg,
		logger:      logger.Named("alert_command"),
	}
}

// Definition implements Command.
func (a *Alert) Definition() discord.SlashCommandCreate {
	return discord.SlashCommandCreate{
		Name:        constants.AlertCommandName,
		Description: "Send a direct message to all Staff Members with a specified role.",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionRole{
				Name:        constants.RoleOptionName,
				Description: "The role to alert.",
				Required:    true,
			},
		},
	}
}

// AdminOnly implements Command.
func (a *Alert) AdminOnly() bool { return true }

// Ephemeral implements Command.
func (a *Alert) Ephemeral() bool { return false }

// OpensModal implements ModalOpener.
func (a *Alert) OpensModal() bool { return true }

// HandleCommand asks for the alert content unless another alert is running.
func (a *Alert) HandleCommand(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	running, err := a.lock.Held(ctx)
	if err != nil {
		a.logger.Error("Failed to check alert lock", zap.Error(err))
		a.reply(event, constants.InternalErrorMessage)
		return
	}

	if running {
		a.reply(event, constants.AlertRunningMessage)
		return
	}

	role := event.SlashCommandInteractionData().Role(constants.RoleOptionName)

	if err := event.Modal(alert.NewModal(alert.ModalID{RoleID: role.ID, IssuedAt: time.Now()})); err != nil {
		a.logger.Error("Failed to open alert modal", zap.Error(err))
	}
}

// HandleModal sends the submitted alert to every member of the role.
func (a *Alert) HandleModal(ctx context.Context, event *events.ModalSubmitInteractionCreate) {
	id, err := alert.ParseModalID(event.Data.CustomID)
	if err != nil {
		a.logger.Warn("Unknown alert modal", zap.Error(err))
		return
	}

	timeout := time.Duration(a.config.AlertModalTimeout) * time.Second
	if id.Expired(time.Now(), timeout) {
		a.reply(event, constants.PromptTimedOutMessage)
		return
	}

	content := &guilds.Alert{
		Title: event.Data.Text(constants.AlertTitleInputCustomID),
		Body:  event.Data.Text(constants.AlertBodyInputCustomID),
	}
	if err := content.Validate(); err != nil {
		a.reply(event, constants.AlertInvalidMessage)
		return
	}

	guildID := event.GuildID()
	if guildID == nil {
		a.reply(event, constants.GuildOnlyMessage)
		return
	}

	if err := event.DeferCreateMessage(false); err != nil {
		a.logger.Error("Failed to defer create message", zap.Error(err))
		return
	}

	members, err := a.members.MembersWithRole(ctx, *guildID, id.RoleID)
	if err != nil {
		a.logger.Error("Failed to list role members",
			zap.Uint64("guildID", uint64(*guildID)),
			zap.Uint64("roleID", uint64(id.RoleID)),
			zap.Error(err))
		a.respond.Error(event, constants.MemberListFailedMessage)
		return
	}

	if len(members) == 0 {
		a.respond.Clear(event, constants.NoRoleMembersMessage)
		return
	}

	estimate := a.broadcaster.Estimate(len(members))

	acquired, err := a.lock.Acquire(ctx, estimate+constants.AlertLockMargin)
	if err != nil {
		a.logger.Error("Failed to acquire alert lock", zap.Error(err))
		a.respond.Error(event, constants.InternalErrorMessage)
		return
	} else if !acquired {
		a.respond.Clear(event, constants.AlertRunningMessage)
		return
	}

	// Large roles take longer than the interaction deadline
	jobCtx := context.WithoutCancel(ctx)
	defer func() {
		if err := a.lock.Release(jobCtx); err != nil {
			a.logger.Warn("Failed to release alert lock", zap.Error(err))
		}
	}()

	a.logger.Info("Sending alert",
		zap.Uint64("operatorID", uint64(event.User().ID)),
		zap.Uint64("roleID", uint64(id.RoleID)),
		zap.Int("members", len(members)))

	a.respond.Clear(event, alert.StartedMessage(estimate))

	result := a.broadcaster.Send(jobCtx, members, content.Message(constants.InfoEmbedColor))

	a.respond.Clear(event, alert.ResultMessage(result))
}

func (a *Alert) reply(event replier, content string) {
	if err := event.CreateMessage(ephemeral(content)); err != nil {
		a.logger.Error("Failed to reply to interaction", zap.Error(err))
	}
}
