package database

import (
	"github.com/projectamerika/mayflower/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	moderationLog *models.ModerationLogModel
	guildBan      *models.GuildBanModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		moderationLog: models.NewModerationLog(db, logger),
		guildBan:      models.NewGuildBan(db, logger),
	}
}

// ModerationLog returns the moderation log model repository.
func (r *Repository) ModerationLog() *models.ModerationLogModel {
	return r.moderationLog
}

// GuildBan returns the guild ban model repository.
func (r *Repository) GuildBan() *models.GuildBanModel {
	return r.guildBan
}
