package guilds

import (
	"context"

	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// RestBanner bans through the Discord REST API.
type RestBanner struct {
	client rest.Guilds
}

// NewRestBanner creates a RestBanner.
func NewRestBanner(client rest.Guilds) *RestBanner {
	return &RestBanner{client: client}
}

// Ban implements Banner. Message history is kept.
func (b *RestBanner) Ban(ctx context.Context, guildID, userID snowflake.ID, reason string) error {
	return b.client.AddBan(guildID, userID, 0, rest.WithCtx(ctx), rest.WithReason(reason))
}

// Unban implements Banner.
func (b *RestBanner) Unban(ctx context.Context, guildID, userID snowflake.ID, reason string) error {
	return b.client.DeleteBan(guildID, userID, rest.WithCtx(ctx), rest.WithReason(reason))
}
