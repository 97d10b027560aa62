package models

import (
	"context"
	"fmt"

	"github.com/projectamerika/mayflower/internal/database/dbretry"
	"github.com/projectamerika/mayflower/internal/database/types"
	"github.com/projectamerika/mayflower/internal/moderation"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ModerationLogModel handles database operations for the manage audit log.
type ModerationLogModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewModerationLog creates a new moderation log model instance.
func NewModerationLog(db *bun.DB, logger *zap.Logger) *ModerationLogModel {
	return &ModerationLogModel{
		db:     db,
		logger: logger.Named("db_moderation_log"),
	}
}

// Record stores an applied moderation action. It satisfies moderation.AuditSink.
func (m *ModerationLogModel) Record(ctx context.Context, entry *moderation.AuditEntry) error {
	log := &types.ModerationLog{
		OperatorID:   entry.OperatorID,
		RobloxUserID: entry.RobloxUserID,
		Username:     entry.Username,
		Action:       string(entry.Action),
		Reason:       entry.Reason,
		CreatedAt:    entry.CreatedAt,
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(log).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert moderation log: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Recorded moderation action",
		zap.Uint64("robloxUserID", log.RobloxUserID),
		zap.Uint64("operatorID", log.OperatorID),
		zap.String("action", log.Action))

	return nil
}

// GetUserLogs retrieves the moderation history of a Roblox user, newest first.
func (m *ModerationLogModel) GetUserLogs(
	ctx context.Context, robloxUserID uint64, cursor *types.LogCursor, limit int,
) ([]*types.ModerationLog, *types.LogCursor, error) {
	logs, err := dbretry.Operation(ctx, func(ctx context.Context) ([]*types.ModerationLog, error) {
		var logs []*types.ModerationLog

		query := m.db.NewSelect().
			Model(&logs).
			Where("roblox_user_id = ?", robloxUserID).
			Limit(limit + 1)

		if cursor != nil {
			query = query.Where("(created_at, id) <= (?, ?)", cursor.Timestamp, cursor.Sequence)
		}

		if err := query.Order("created_at DESC", "id DESC").Scan(ctx); err != nil {
			return nil, fmt.Errorf("failed to get moderation logs: %w", err)
		}

		return logs, nil
	})
	if err != nil {
		return nil, nil, err
	}

	var nextCursor *types.LogCursor
	if len(logs) > limit {
		last := logs[limit]
		nextCursor = &types.LogCursor{Timestamp: last.CreatedAt, Sequence: last.ID}
		logs = logs[:limit]
	}

	return logs, nextCursor, nil
}
