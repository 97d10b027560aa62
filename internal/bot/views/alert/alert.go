package alert

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/projectamerika/mayflower/internal/bot/constants"
	"github.com/projectamerika/mayflower/internal/bot/guilds"
	"github.com/projectamerika/mayflower/internal/bot/utils"
)

// ErrInvalidModalID is returned for custom IDs that are not alert modals.
var ErrInvalidModalID = errors.New("invalid alert modal custom ID")

// ModalID identifies an alert modal and the role it targets.
type ModalID struct {
	RoleID   snowflake.ID
	IssuedAt time.Time
}

// String encodes the modal as a custom ID.
func (m ModalID) String() string {
	return utils.JoinCustomID(
		constants.AlertCommandName,
		constants.ManageModalCustomID,
		m.RoleID.String(),
		strconv.FormatInt(m.IssuedAt.Unix(), 10),
	)
}

// Expired reports whether the modal was shown more than timeout ago.
func (m ModalID) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(m.IssuedAt) > timeout
}

// ParseModalID decodes a custom ID created by ModalID.String.
func ParseModalID(customID string) (ModalID, error) {
	parts := utils.SplitCustomID(customID)
	if len(parts) != 4 || parts[0] != constants.AlertCommandName || parts[1] != constants.ManageModalCustomID {
		return ModalID{}, fmt.Errorf("%w: %q", ErrInvalidModalID, customID)
	}

	roleID, err := snowflake.Parse(parts[2])
	if err != nil {
		return ModalID{}, fmt.Errorf("%w: %w", ErrInvalidModalID, err)
	}

	issued, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return ModalID{}, fmt.Errorf("%w: %w", ErrInvalidModalID, err)
	}

	return ModalID{RoleID: roleID, IssuedAt: time.Unix(issued, 0)}, nil
}

// NewModal creates the modal that collects the alert title and body.
func NewModal(id ModalID) discord.ModalCreate {
	return discord.NewModalCreateBuilder().
		SetCustomID(id.String()).
		SetTitle("Alert Command").
		AddActionRow(
			discord.NewTextInput(constants.AlertTitleInputCustomID, discord.TextInputStyleParagraph, "alert title").
				WithRequired(true).
				WithMaxLength(constants.MaxAlertTitleLength),
		).
		AddActionRow(
			discord.NewTextInput(constants.AlertBodyInputCustomID, discord.TextInputStyleParagraph, "alert content").
				WithRequired(true).
				WithMaxLength(constants.MaxAlertBodyLength),
		).
		Build()
}

// StartedMessage tells the operator how long the alert should take.
func StartedMessage(estimate time.Duration) string {
	return fmt.Sprintf(constants.AlertStartedFormat, utils.FormatDuration(estimate))
}

// ResultMessage summarizes a finished alert.
func ResultMessage(result *guilds.Result) string {
	content := fmt.Sprintf(constants.AlertDoneFormat, len(result.Succeeded))
	if len(result.Failed) > 0 {
		content += fmt.Sprintf(constants.AlertFailuresSuffixFormat, len(result.Failed))
	}

	return content
}
