package commands

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/projectamerika/mayflower/internal/bot/constants"
	"github.com/projectamerika/mayflower/internal/bot/core/interaction"
	"github.com/projectamerika/mayflower/internal/bot/utils"
	"github.com/projectamerika/mayflower/internal/bot/views/manage"
	"github.com/projectamerika/mayflower/internal/moderation"
	"github.com/projectamerika/mayflower/internal/setup/config"
	"go.uber.org/zap"
)

// Manage opens an interactive moderation session for a Roblox user.
type Manage struct {
	workflow *moderation.Workflow
	respond  *interaction.Respond
	config   *config.Moderation
	logger   *zap.Logger
}

// NewManage creates the manage command.
func NewManage(
	workflow *moderation.Workflow, respond *interaction.Respond, cfg *config.Moderation, logger *zap.Logger,
) *Manage {
	return &Manage{
		workflow: workflow,
		respond:  respond,
		config:   cfg,
		logger:   logger.Named("manage_command"),
	}
}

// Definition implements Command.
func (m *Manage) Definition() discord.SlashCommandCreate {
	return discord.SlashCommandCreate{
		Name:        constants.ManageCommandName,
		Description: "Manage a Roblox user in-game.",
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
func (m *Manage) AdminOnly() bool { return true }

// Ephemeral implements Command.
func (m *Manage) Ephemeral() bool { return false }

// HandleCommand resolves the username, shows the user's ledger state and
// starts a session bound to the reply.
func (m *Manage) HandleCommand(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	username := event.SlashCommandInteractionData().String(constants.RobloxUsernameOptionName)
	operatorID := event.User().ID

	view, err := m.workflow.Open(ctx, username)
	if errors.Is(err, moderation.ErrUserNotFound) {
		m.respond.Private(event, constants.UserNotFoundMessage)
		return
	} else if err != nil {
		m.logger.Error("Failed to open manage session",
			zap.String("username", username),
			zap.Error(err))
		m.respond.Private(event, constants.LookupFailedMessage)
		return
	}

	message, err := m.respond.Update(event, manage.NewBuilder(*view, operatorID).Build().Build())
	if err != nil {
		return
	}

	if _, err := m.workflow.Start(ctx, uint64(operatorID), uint64(message.ID), view); err != nil {
		m.logger.Error("Failed to start manage session",
			zap.Uint64("operatorID", uint64(operatorID)),
			zap.Uint64("userID", view.UserID),
			zap.Error(err))
		m.respond.Error(event, constants.SessionStartFailedMessage)
	}
}

// HandleComponent handles the session menu. Actions that need a reason open
// a modal; the rest are applied straight away.
func (m *Manage) HandleComponent(ctx context.Context, event *events.ComponentInteractionCreate) {
	action, ownerID, ok := manage.ParseActionCustomID(event.Data.CustomID())
	if !ok {
		m.logger.Warn("Unknown manage component", zap.String("customID", event.Data.CustomID()))
		return
	}

	operatorID := uint64(event.User().ID)
	key := moderation.SessionKey{OperatorID: uint64(ownerID), MessageID: uint64(event.Message.ID)}

	if action.NeedsReason() {
		// A modal must be the first response, so session checks happen before it
		if _, err := m.workflow.View(ctx, key, operatorID); err != nil {
			m.reject(event, err)
			return
		}

		prompt := utils.PromptID{
			Command:   constants.ManageCommandName,
			Action:    string(action),
			MessageID: event.Message.ID,
			IssuedAt:  time.Now(),
		}

		if err := event.Modal(manage.NewReasonModal(prompt, action, m.config.MaxReasonLength)); err != nil {
			m.logger.Error("Failed to open reason modal", zap.Error(err))
		}

		return
	}

	if err := event.DeferUpdateMessage(); err != nil {
		m.logger.Error("Failed to defer update message", zap.Error(err))
		return
	}

	var (
		result *moderation.Result
		err    error
	)

	switch action {
	case moderation.ActionUnban:
		result, err = m.workflow.Unban(ctx, key, operatorID)
	case moderation.ActionRemoveWarning:
		data, ok := event.Data.(discord.StringSelectMenuInteractionData)
		if !ok || len(data.Values) == 0 {
			return
		}

		index, convErr := strconv.Atoi(data.Values[0])
		if convErr != nil {
			return
		}

		result, err = m.workflow.RemoveWarning(ctx, key, operatorID, index)
	case moderation.ActionCancel:
		result, err = m.workflow.Cancel(ctx, key, operatorID)
	case moderation.ActionKick, moderation.ActionBan, moderation.ActionAddWarning:
		return
	default:
		m.logger.Warn("Unknown manage action", zap.String("action", string(action)))
		return
	}

	m.present(event, ownerID, result, err)
}

// HandleModal applies an action once its reason has been submitted.
func (m *Manage) HandleModal(ctx context.Context, event *events.ModalSubmitInteractionCreate) {
	prompt, err := utils.ParsePromptID(event.Data.CustomID)
	if err != nil {
		m.logger.Warn("Unknown manage modal", zap.Error(err))
		return
	}

	// Late answers are treated like a dismissed modal
	timeout := time.Duration(m.config.ModalTimeout) * time.Second
	if prompt.Expired(time.Now(), timeout) {
		if err := event.CreateMessage(ephemeral(constants.PromptTimedOutMessage)); err != nil {
			m.logger.Error("Failed to reply to expired modal", zap.Error(err))
		}

		return
	}

	if err := event.DeferUpdateMessage(); err != nil {
		m.logger.Error("Failed to defer update message", zap.Error(err))
		return
	}

	operatorID := event.User().ID
	key := moderation.SessionKey{OperatorID: uint64(operatorID), MessageID: uint64(prompt.MessageID)}
	reason := event.Data.Text(constants.ReasonInputCustomID)

	var result *moderation.Result

	switch moderation.Action(prompt.Action) {
	case moderation.ActionKick:
		result, err = m.workflow.Kick(ctx, key, uint64(operatorID), reason)
	case moderation.ActionBan:
		result, err = m.workflow.Ban(ctx, key, uint64(operatorID), reason)
	case moderation.ActionAddWarning:
		result, err = m.workflow.AddWarning(ctx, key, uint64(operatorID), reason)
	case moderation.ActionUnban, moderation.ActionRemoveWarning, moderation.ActionCancel:
		return
	default:
		m.logger.Warn("Unknown manage modal action", zap.String("action", prompt.Action))
		return
	}

	m.present(event, operatorID, result, err)
}

// present re-renders the session message and tells the operator how the
// transition went.
func (m *Manage) present(
	event interaction.CommonEvent, ownerID snowflake.ID, result *moderation.Result, err error,
) {
	if err != nil {
		if !errors.Is(err, moderation.ErrSessionClosed) && !errors.Is(err, moderation.ErrNotSessionOwner) {
			m.logger.Error("Manage transition failed", zap.Error(err))
		}

		m.respond.Followup(event, manage.ErrorMessage(err))

		return
	}

	if result.Action == moderation.ActionCancel {
		m.respond.Clear(event, constants.CancelledPromptMessage)
		return
	}

	_, _ = m.respond.Update(event, manage.NewBuilder(result.View, ownerID).Build().Build())

	if message := manage.ResultMessage(result, m.config.SurfaceFailures, m.config.MaxReasonLength); message != "" {
		m.respond.Followup(event, message)
	}
}

// reject answers a component interaction that cannot drive the session.
func (m *Manage) reject(event *events.ComponentInteractionCreate, err error) {
	if !errors.Is(err, moderation.ErrSessionClosed) && !errors.Is(err, moderation.ErrNotSessionOwner) {
		m.logger.Error("Failed to load manage session", zap.Error(err))
	}

	if err := event.CreateMessage(ephemeral(manage.ErrorMessage(err))); err != nil {
		m.logger.Error("Failed to reply to component", zap.Error(err))
	}
}
