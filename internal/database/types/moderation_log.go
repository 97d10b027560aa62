package types

import "time"

// LogCursor represents a pagination cursor for log queries.
type LogCursor struct {
	Timestamp time.Time
	Sequence  int64
}

// ModerationLog stores one action applied through a manage session.
type ModerationLog struct {
	ID           int64     `bun:",pk,autoincrement"`
	OperatorID   uint64    `bun:",notnull"`
	RobloxUserID uint64    `bun:",notnull"`
	Username     string    `bun:",type:text"`
	Action       string    `bun:",notnull"`
	Reason       string    `bun:",type:text"`
	CreatedAt    time.Time `bun:",notnull"`
}
