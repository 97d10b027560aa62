package models

import (
	"context"
	"fmt"

	"github.com/projectamerika/mayflower/internal/database/dbretry"
	"github.com/projectamerika/mayflower/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// GuildBanModel handles database operations for cross-server ban logs.
type GuildBanModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewGuildBan creates a new guild ban model instance.
func NewGuildBan(db *bun.DB, logger *zap.Logger) *GuildBanModel {
	return &GuildBanModel{
		db:     db,
		logger: logger.Named("db_guild_ban"),
	}
}

// LogBanOperation stores a cross-server ban operation in the database.
func (m *GuildBanModel) LogBanOperation(ctx context.Context, log *types.GuildBanLog) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(log).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to log guild ban operation: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Logged guild ban operation",
		zap.Uint64("targetID", log.TargetID),
		zap.Uint64("operatorID", log.OperatorID),
		zap.String("action", string(log.Action)),
		zap.Int("succeeded_count", log.SucceededCount),
		zap.Int("failed_count", log.FailedCount))

	return nil
}

// GetTargetLogs retrieves ban logs for a Discord user with pagination.
func (m *GuildBanModel) GetTargetLogs(
	ctx context.Context, targetID uint64, cursor *types.LogCursor, limit int,
) ([]*types.GuildBanLog, *types.LogCursor, error) {
	var nextCursor *types.LogCursor

	logs, err := dbretry.Operation(ctx, func(ctx context.Context) ([]*types.GuildBanLog, error) {
		var logs []*types.GuildBanLog

		query := m.db.NewSelect().
			Model(&logs).
			Where("target_id = ?", targetID).
			Limit(limit + 1) // Get one extra to determine if there's a next page

		if cursor != nil {
			query = query.Where("(timestamp, id) <= (?, ?)", cursor.Timestamp, cursor.Sequence)
		}

		if err := query.Order("timestamp DESC", "id DESC").Scan(ctx); err != nil {
			return nil, fmt.Errorf("failed to get guild ban logs: %w", err)
		}

		return logs, nil
	})
	if err != nil {
		return nil, nil, err
	}

	if len(logs) > limit {
		last := logs[limit]
		nextCursor = &types.LogCursor{Timestamp: last.Timestamp, Sequence: last.ID}
		logs = logs[:limit]
	}

	return logs, nextCursor, nil
}
