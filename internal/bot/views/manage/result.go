package manage

import (
	"errors"
	"fmt"

	"github.com/projectamerika/mayflower/internal/bot/constants"
	"github.com/projectamerika/mayflower/internal/ledger"
	"github.com/projectamerika/mayflower/internal/moderation"
	"github.com/projectamerika/mayflower/internal/opencloud"
)

// ResultMessage returns the private follow-up for a finished transition, or
// an empty string when the operator should not be told anything.
// Failed ledger writes are only reported when surfaceFailures is set.
func ResultMessage(result *moderation.Result, surfaceFailures bool, maxReasonLength int) string {
	switch result.Outcome {
	case moderation.OutcomeRejected:
		switch {
		case errors.Is(result.Err, moderation.ErrInvalidReason):
			return fmt.Sprintf("Reasons must be between 1 and %d characters.", maxReasonLength)
		case errors.Is(result.Err, ledger.ErrInvalidIndex):
			return "That warning no longer exists."
		default:
			return constants.InternalErrorMessage
		}
	case moderation.OutcomeStoreFailed:
		if surfaceFailures {
			return constants.StoreFailedMessage
		}
		return ""
	case moderation.OutcomeApplied:
	}

	username := result.View.Username

	switch result.Action {
	case moderation.ActionKick:
		if errors.Is(result.PublishErr, opencloud.ErrMessageTooLarge) {
			return constants.KickTooLargeMessage
		}
		return fmt.Sprintf(constants.KickedMessageFormat, username)
	case moderation.ActionBan:
		return fmt.Sprintf(constants.BannedMessageFormat, username)
	case moderation.ActionUnban:
		return fmt.Sprintf(constants.UnbannedMessageFormat, username)
	case moderation.ActionAddWarning:
		return fmt.Sprintf(constants.WarnedMessageFormat, username)
	case moderation.ActionRemoveWarning:
		return constants.RemovedWarningMessage
	case moderation.ActionCancel:
		return constants.CancelledPromptMessage
	}

	return ""
}

// ErrorMessage maps a workflow error to what the operator is shown.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, moderation.ErrNotSessionOwner):
		return constants.NotSessionOwnerMessage
	case errors.Is(err, moderation.ErrSessionClosed):
		return constants.SessionClosedMessage
	case errors.Is(err, moderation.ErrUserNotFound):
		return constants.UserNotFoundMessage
	default:
		return constants.InternalErrorMessage
	}
}
