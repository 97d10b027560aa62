package interaction

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/projectamerika/mayflower/internal/bot/utils"
	"go.uber.org/zap"
)

// Respond is a helper struct that handles responding to deferred Discord interactions.
type Respond struct {
	logger *zap.Logger
}

// NewRespond creates a new Respond instance.
func NewRespond(logger *zap.Logger) *Respond {
	return &Respond{
		logger: logger.Named("respond"),
	}
}

// Update edits the interaction response and returns the resulting message.
func (r *Respond) Update(event CommonEvent, messageUpdate discord.MessageUpdate) (*discord.Message, error) {
	message, err := event.Client().Rest().UpdateInteractionResponse(event.ApplicationID(), event.Token(), messageUpdate)
	if err != nil {
		r.logger.Error("Failed to update interaction response",
			zap.Uint64("userID", uint64(event.User().ID)),
			zap.Error(err))

		return nil, err
	}

	return message, nil
}

// Clear updates the interaction response with only a text message.
func (r *Respond) Clear(event CommonEvent, content string) {
	messageUpdate := discord.NewMessageUpdateBuilder().
		SetContent(content).
		ClearEmbeds().
		ClearContainerComponents().
		RetainAttachments().
		Build()

	_, _ = r.Update(event, messageUpdate)
}

// Error updates the interaction response with an error message.
func (r *Respond) Error(event CommonEvent, message string) {
	r.Clear(event, utils.GetTimestampedSubtext("Fatal error: "+message))
}

// Followup sends a message only the invoking user can see.
func (r *Respond) Followup(event CommonEvent, content string) {
	messageCreate := discord.NewMessageCreateBuilder().
		SetContent(content).
		SetEphemeral(true).
		Build()

	_, err := event.Client().Rest().CreateFollowupMessage(event.ApplicationID(), event.Token(), messageCreate)
	if err != nil {
		r.logger.Error("Failed to send followup message",
			zap.Uint64("userID", uint64(event.User().ID)),
			zap.Error(err))
	}
}

// Private replaces a public deferred response with a message only the
// invoking user can see.
func (r *Respond) Private(event CommonEvent, content string) {
	if err := event.Client().Rest().DeleteInteractionResponse(event.ApplicationID(), event.Token()); err != nil {
		r.logger.Warn("Failed to delete interaction response",
			zap.Uint64("userID", uint64(event.User().ID)),
			zap.Error(err))
	}

	r.Followup(event, content)
}
