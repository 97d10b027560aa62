package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/projectamerika/mayflower/internal/bot/constants"
)

// ErrInvalidPromptID is returned for custom IDs that are not reason prompts.
var ErrInvalidPromptID = errors.New("invalid prompt custom ID")

// JoinCustomID builds a component custom ID from its parts.
func JoinCustomID(parts ...string) string {
	return strings.Join(parts, constants.CustomIDSeparator)
}

// SplitCustomID splits a component custom ID into its parts.
func SplitCustomID(customID string) []string {
	return strings.Split(customID, constants.CustomIDSeparator)
}

// PromptID identifies a reason modal opened from a session message.
// It carries everything needed to find the session again once the modal is
// submitted, along with the time it was shown so late answers can be dropped.
type PromptID struct {
	Command   string
	Action    string
	MessageID snowflake.ID
	IssuedAt  time.Time
}

// String encodes the prompt as a custom ID.
func (p PromptID) String() string {
	return JoinCustomID(
		p.Command,
		constants.ManageModalCustomID,
		p.Action,
		p.MessageID.String(),
		strconv.FormatInt(p.IssuedAt.Unix(), 10),
	)
}

// Expired reports whether the prompt was shown more than timeout ago.
func (p PromptID) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(p.IssuedAt) > timeout
}

// ParsePromptID decodes a custom ID created by PromptID.String.
func ParsePromptID(customID string) (PromptID, error) {
	parts := SplitCustomID(customID)
	if len(parts) != 5 || parts[1] != constants.ManageModalCustomID {
		return PromptID{}, fmt.Errorf("%w: %q", ErrInvalidPromptID, customID)
	}

	messageID, err := snowflake.Parse(parts[3])
	if err != nil {
		return PromptID{}, fmt.Errorf("%w: %w", ErrInvalidPromptID, err)
	}

	issued, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		return PromptID{}, fmt.Errorf("%w: %w", ErrInvalidPromptID, err)
	}

	return PromptID{
		Command:   parts[0],
		Action:    parts[2],
		MessageID: messageID,
		IssuedAt:  time.Unix(issued, 0),
	}, nil
}
