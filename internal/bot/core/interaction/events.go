package interaction

import (
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

// CommonEvent extracts shared functionality from different Discord event types.
// This allows responses to work with any interaction event without type checking.
type CommonEvent interface {
	// Client returns the Discord client instance handling this event.
	Client() bot.Client

	// ApplicationID returns the bot's application ID for API requests.
	ApplicationID() snowflake.ID

	// Token returns the interaction token for responding to the event.
	Token() string

	// User returns the Discord user who triggered this event.
	User() discord.User
}

// IsAdministrator reports whether member holds the Administrator permission.
// Members are nil outside of guilds.
func IsAdministrator(member *discord.ResolvedMember) bool {
	return member != nil && member.Permissions.Has(discord.PermissionAdministrator)
}
