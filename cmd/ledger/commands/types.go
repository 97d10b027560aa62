package commands

import (
	"context"
	"errors"
	"io"

	"github.com/projectamerika/mayflower/internal/database/types"
	"github.com/projectamerika/mayflower/internal/ledger"
	"github.com/projectamerika/mayflower/internal/moderation"
	"go.uber.org/zap"
)

var (
	ErrUserIDRequired = errors.New("USER_ID argument required")
	ErrInvalidUserID  = errors.New("USER_ID must be a positive number")
	ErrReasonRequired = errors.New("REASON argument required")
	ErrIndexRequired  = errors.New("INDEX argument required")
	ErrHistoryOffline = errors.New("moderation history is not available")
)

// HistorySource reads recorded moderation actions.
type HistorySource interface {
	GetUserLogs(
		ctx context.Context, robloxUserID uint64, cursor *types.LogCursor, limit int,
	) ([]*types.ModerationLog, *types.LogCursor, error)
}

// GuildBanHistory reads recorded cross-server bans.
type GuildBanHistory interface {
	GetTargetLogs(
		ctx context.Context, targetID uint64, cursor *types.LogCursor, limit int,
	) ([]*types.GuildBanLog, *types.LogCursor, error)
}

// CLIDependencies holds the common dependencies needed by CLI commands.
type CLIDependencies struct {
	Ledger    *ledger.Ledger
	Actions   *moderation.Actions
	History   HistorySource
	GuildBans GuildBanHistory
	Reasons   *moderation.ReasonValidator
	Out       io.Writer
	Logger    *zap.Logger
}
