package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/projectamerika/mayflower/internal/bot/constants"
	"github.com/projectamerika/mayflower/internal/bot/core/interaction"
	"github.com/projectamerika/mayflower/internal/bot/guilds"
	"github.com/projectamerika/mayflower/internal/bot/utils"
	"github.com/projectamerika/mayflower/internal/database"
	"github.com/projectamerika/mayflower/internal/database/types"
	"go.uber.org/zap"
)

// crossBanText holds the wording that differs between banning and unbanning.
type crossBanText struct {
	name        string
	description string
	prompt      string
	progress    string
	done        string
}

// CrossBan bans or unbans a Discord user in every guild the bot is in,
// after the operator confirms.
type CrossBan struct {
	action   types.GuildBanAction
	text     crossBanText
	tracker  *guilds.Tracker
	executor *guilds.Executor
	pending  *guilds.PendingStore
	db       database.Client
	respond  *interaction.Respond
	logger   *zap.Logger
}

// NewUltraBan creates the ultra-ban command.
func NewUltraBan(
	tracker *guilds.Tracker, executor *guilds.Executor, pending *guilds.PendingStore,
	db database.Client, respond *interaction.Respond, logger *zap.Logger,
) *CrossBan {
	return newCrossBan(types.GuildBanActionBan, crossBanText{
		name:        constants.UltraBanCommandName,
		description: "Ban a user from all Discord servers the bot is in.",
		prompt:      constants.UltraBanPromptFormat,
		progress:    constants.UltraBanProgressFormat,
		done:        constants.UltraBanDoneFormat,
	}, tracker, executor, pending, db, respond, logger)
}

// NewUnUltraBan creates the un-ultra-ban command.
func NewUnUltraBan(
	tracker *guilds.Tracker, executor *guilds.Executor, pending *guilds.PendingStore,
	db database.Client, respond *interaction.Respond, logger *zap.Logger,
) *CrossBan {
	return newCrossBan(types.GuildBanActionUnban, crossBanText{
		name:        constants.UnUltraBanCommandName,
		description: "Unban a user from all Discord servers the bot is in.",
		prompt:      constants.UnUltraBanPromptFormat,
		progress:    constants.UnUltraBanProgressFormat,
		done:        constants.UnUltraBanDoneFormat,
	}, tracker, executor, pending, db, respond, logger)
}

func newCrossBan(
	action types.GuildBanAction, text crossBanText, tracker *guilds.Tracker, executor *guilds.Executor,
	pending *guilds.PendingStore, db database.Client, respond *interaction.Respond, logger *zap.Logger,
) *CrossBan {
	return &CrossBan{
		action:   action,
		text:     text,
		tracker:  tracker,
		executor: executor,
		pending:  pending,
		db:       db,
		respond:  respond,
		logger:   logger.Named("cross_ban_command").With(zap.String("action", string(action))),
	}
}

// Definition implements Command.
func (c *CrossBan) Definition() discord.SlashCommandCreate {
	return discord.SlashCommandCreate{
		Name:        c.text.name,
		Description: c.text.description,
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionUser{
				Name:        constants.UserOptionName,
				Description: "The user to " + string(c.action) + ".",
				Required:    true,
			},
			discord.ApplicationCommandOptionString{
				Name:        constants.ReasonOptionName,
				Description: "The reason for the " + string(c.action) + ".",
				Required:    true,
			},
		},
	}
}

// AdminOnly implements Command.
func (c *CrossBan) AdminOnly() bool { return true }

// Ephemeral implements Command.
func (c *CrossBan) Ephemeral() bool { return false }

// HandleCommand asks the operator to confirm before anything is banned.
func (c *CrossBan) HandleCommand(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	target := data.User(constants.UserOptionName)
	operator := event.User()

	pending := &guilds.Pending{
		Action:       c.action,
		OperatorID:   operator.ID,
		OperatorName: operator.Username,
		TargetID:     target.ID,
		TargetName:   target.Username,
		Reason:       data.String(constants.ReasonOptionName),
	}

	prompt := discord.NewMessageUpdateBuilder().
		SetContent(fmt.Sprintf(c.text.prompt, target.Username, c.tracker.Count())).
		AddActionRow(
			discord.NewSuccessButton("Yes", utils.JoinCustomID(c.text.name, constants.ConfirmButtonCustomID)),
			discord.NewDangerButton("No", utils.JoinCustomID(c.text.name, constants.DenyButtonCustomID)),
		).
		Build()

	message, err := c.respond.Update(event, prompt)
	if err != nil {
		return
	}

	if err := c.pending.Put(ctx, message.ID, pending); err != nil {
		c.logger.Error("Failed to store pending operation", zap.Error(err))
		c.respond.Error(event, constants.PromptStoreFailedMessage)
		return
	}

	go c.expire(context.WithoutCancel(ctx), event, operator.ID, message.ID)
}

// expire cancels the prompt if nobody answered it in time.
func (c *CrossBan) expire(
	ctx context.Context, event *events.ApplicationCommandInteractionCreate, operatorID, messageID snowflake.ID,
) {
	timer := time.NewTimer(constants.ConfirmPromptTimeout)
	defer timer.Stop()
	<-timer.C

	if _, err := c.pending.Claim(ctx, operatorID, messageID); err != nil {
		if !errors.Is(err, guilds.ErrNoPending) {
			c.logger.Warn("Failed to expire pending operation", zap.Error(err))
		}

		return
	}

	c.respond.Clear(event, constants.CancelledMessage)
}

// HandleComponent runs the operation once the operator confirms it.
func (c *CrossBan) HandleComponent(ctx context.Context, event *events.ComponentInteractionCreate) {
	parts := utils.SplitCustomID(event.Data.CustomID())
	if len(parts) != 2 {
		return
	}

	pending, err := c.pending.Claim(ctx, event.User().ID, event.Message.ID)
	if err != nil {
		if !errors.Is(err, guilds.ErrNoPending) {
			c.logger.Error("Failed to claim pending operation", zap.Error(err))
		}

		if err := event.CreateMessage(ephemeral(constants.PromptUnavailableMessage)); err != nil {
			c.logger.Error("Failed to reply to component", zap.Error(err))
		}

		return
	}

	if parts[1] != constants.ConfirmButtonCustomID {
		c.update(event, constants.CancelledMessage)
		return
	}

	c.update(event, fmt.Sprintf(c.text.progress, pending.TargetName))

	result := c.executor.Run(ctx, pending.Action, c.tracker.IDs(), pending.TargetID, pending.AuditReason())

	err = c.db.Model().GuildBan().LogBanOperation(ctx, result.Log(pending.OperatorID, pending.TargetID, pending.Action, pending.Reason))
	if err != nil {
		c.logger.Warn("Failed to log cross-server operation", zap.Error(err))
	}

	content := fmt.Sprintf(c.text.done, pending.TargetName, len(result.Succeeded))
	if len(result.Failed) > 0 {
		content += fmt.Sprintf(constants.GuildFailuresSuffixFormat, len(result.Failed))
	}

	c.respond.Clear(event, content)
}

func (c *CrossBan) update(event *events.ComponentInteractionCreate, content string) {
	messageUpdate := discord.NewMessageUpdateBuilder().
		SetContent(content).
		ClearContainerComponents().
		Build()

	if err := event.UpdateMessage(messageUpdate); err != nil {
		c.logger.Error("Failed to update message", zap.Error(err))
	}
}
