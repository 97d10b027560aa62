package manage

import (
	"strconv"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/projectamerika/mayflower/internal/bot/constants"
	"github.com/projectamerika/mayflower/internal/bot/utils"
	"github.com/projectamerika/mayflower/internal/moderation"
	pkgutils "github.com/projectamerika/mayflower/pkg/utils"
)

// ActionCustomID is the custom ID of the component that triggers action in
// the session opened by operatorID.
func ActionCustomID(action moderation.Action, operatorID snowflake.ID) string {
	return utils.JoinCustomID(constants.ManageCommandName, string(action), operatorID.String())
}

// ParseActionCustomID reverses ActionCustomID.
func ParseActionCustomID(customID string) (moderation.Action, snowflake.ID, bool) {
	parts := utils.SplitCustomID(customID)
	if len(parts) != 3 || parts[0] != constants.ManageCommandName {
		return "", 0, false
	}

	operatorID, err := snowflake.Parse(parts[2])
	if err != nil {
		return "", 0, false
	}

	return moderation.Action(parts[1]), operatorID, true
}

// Builder creates the visual layout for a manage session.
type Builder struct {
	summary    moderation.Summary
	operatorID snowflake.ID
}

// NewBuilder creates a new manage menu builder for the session opened by operatorID.
func NewBuilder(view moderation.View, operatorID snowflake.ID) *Builder {
	return &Builder{
		summary:    moderation.Render(view),
		operatorID: operatorID,
	}
}

// Embed creates the embed showing the user's ban and warnings.
func (b *Builder) Embed() discord.Embed {
	embed := discord.NewEmbedBuilder().
		SetTitle(b.summary.Title).
		SetColor(constants.DefaultEmbedColor).
		SetTimestamp(time.Now()).
		AddField("Banned", b.summary.Banned, false).
		AddField("Warnings", b.summary.Warnings, false)

	if b.summary.ThumbnailURL != "" {
		embed.SetThumbnail(b.summary.ThumbnailURL)
	}

	return embed.Build()
}

// Build creates the full session message with its action menu.
func (b *Builder) Build() *discord.MessageUpdateBuilder {
	var (
		buttons []discord.InteractiveComponent
		remove  discord.InteractiveComponent
		cancel  discord.InteractiveComponent
	)

	for _, option := range b.summary.Actions {
		customID := ActionCustomID(option.Action, b.operatorID)

		switch option.Action {
		case moderation.ActionKick:
			buttons = append(buttons, discord.NewPrimaryButton(option.Label, customID))
		case moderation.ActionBan:
			buttons = append(buttons, discord.NewDangerButton(option.Label, customID))
		case moderation.ActionUnban:
			buttons = append(buttons, discord.NewSuccessButton(option.Label, customID))
		case moderation.ActionAddWarning:
			buttons = append(buttons, discord.NewSecondaryButton(option.Label, customID))
		case moderation.ActionRemoveWarning:
			remove = discord.NewStringSelectMenu(customID, option.Label, b.warningOptions()...).
				WithMinValues(1).
				WithMaxValues(1).
				WithDisabled(option.Disabled)
		case moderation.ActionCancel:
			cancel = discord.NewDangerButton(option.Label, customID)
		}
	}

	return discord.NewMessageUpdateBuilder().
		SetContent("").
		SetEmbeds(b.Embed()).
		AddActionRow(buttons...).
		AddActionRow(remove).
		AddActionRow(cancel)
}

// warningOptions lists the removable warnings. Discord requires at least one
// option even when the menu is disabled and allows at most 25.
func (b *Builder) warningOptions() []discord.StringSelectMenuOption {
	if len(b.summary.Removable) == 0 {
		return []discord.StringSelectMenuOption{
			discord.NewStringSelectMenuOption(constants.ManageSelectEmptyValue, constants.ManageSelectEmptyValue),
		}
	}

	count := min(len(b.summary.Removable), constants.MaxSelectOptions)
	options := make([]discord.StringSelectMenuOption, 0, count)

	for _, warning := range b.summary.Removable[:count] {
		description := pkgutils.TruncateString("Reason: "+utils.NormalizeString(warning.Reason), constants.MaxSelectDescriptionRunes)
		options = append(options,
			discord.NewStringSelectMenuOption(warning.Label, strconv.Itoa(warning.Index)).
				WithDescription(description),
		)
	}

	return options
}

// NewReasonModal creates the modal that collects a reason for action.
func NewReasonModal(prompt utils.PromptID, action moderation.Action, maxLength int) discord.ModalCreate {
	title, placeholder := reasonLabels(action)

	return discord.NewModalCreateBuilder().
		SetCustomID(prompt.String()).
		SetTitle(title).
		AddActionRow(
			discord.NewTextInput(constants.ReasonInputCustomID, discord.TextInputStyleParagraph, "reason").
				WithRequired(true).
				WithMaxLength(maxLength).
				WithPlaceholder(placeholder),
		).
		Build()
}

func reasonLabels(action moderation.Action) (string, string) {
	switch action {
	case moderation.ActionBan:
		return "Ban User", "Reason for the ban"
	case moderation.ActionAddWarning:
		return "Warn User", "Reason for the warn"
	default:
		return "Kick User", "Reason for the kick"
	}
}
