package migrations

import (
	"context"
	"fmt"

	"github.com/projectamerika/mayflower/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		tables := []struct {
			model any
			name  string
		}{
			{(*types.ModerationLog)(nil), "moderation_logs"},
			{(*types.GuildBanLog)(nil), "guild_ban_logs"},
		}

		for _, table := range tables {
			_, err := db.NewCreateTable().
				Model(table.model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table %s: %w", table.name, err)
			}
		}

		indexes := []string{
			`CREATE INDEX IF NOT EXISTS idx_moderation_logs_user_time
			 ON moderation_logs (roblox_user_id, created_at DESC, id DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_moderation_logs_operator_time
			 ON moderation_logs (operator_id, created_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_guild_ban_logs_target_time
			 ON guild_ban_logs (target_id, timestamp DESC, id DESC)`,
		}

		for _, index := range indexes {
			if _, err := db.NewRaw(index).Exec(ctx); err != nil {
				return fmt.Errorf("failed to create index: %w", err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw("DROP TABLE IF EXISTS moderation_logs, guild_ban_logs CASCADE").Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}

		return nil
	})
}
