package types

import "time"

// GuildBanAction is the kind of cross-server ban operation.
type GuildBanAction string

const (
	GuildBanActionBan   GuildBanAction = "ban"
	GuildBanActionUnban GuildBanAction = "unban"
)

// GuildBanLog stores the result of banning or unbanning a Discord user
// across every server the bot is in.
type GuildBanLog struct {
	ID             int64          `bun:",pk,autoincrement"`
	OperatorID     uint64         `bun:",notnull"`
	TargetID       uint64         `bun:",notnull"`
	Action         GuildBanAction `bun:",notnull"`
	Reason         string         `bun:",type:text"`
	SucceededCount int            `bun:",notnull"`
	FailedCount    int            `bun:",notnull"`
	FailedGuildIDs []uint64       `bun:"failed_guild_ids,type:bigint[]"`
	Timestamp      time.Time      `bun:",notnull"`
}
