package moderation

import (
	"context"
	"errors"
	"time"

	"github.com/projectamerika/mayflower/internal/ledger"
	"github.com/projectamerika/mayflower/internal/opencloud"
	"github.com/projectamerika/mayflower/internal/setup/config"
	"go.uber.org/zap"
)

// Target is the user an action applies to and the operator applying it.
type Target struct {
	OperatorID uint64
	UserID     uint64
	Username   string
}

// Change reports what an action did to the ledger and to game servers.
type Change struct {
	// StoreErr is set when the ledger write failed.
	StoreErr error
	// PublishErr is set when game servers were not notified.
	PublishErr error
	// Warnings and WarningsVersion hold the written list after a warning change.
	Warnings        ledger.WarningList
	WarningsVersion opencloud.Version
}

// Actions applies moderation changes to the ledger and notifies game
// servers. It keeps no session state; manage sessions and the ledger CLI
// both use it.
//
// Game servers are notified after every write attempt, including failed
// ones. Audit entries are only written for changes that took effect.
type Actions struct {
	ledger    *ledger.Ledger
	publisher Publisher
	audit     AuditSink
	topics    *config.Ledger
	logger    *zap.Logger
}

// NewActions creates an Actions. audit may be nil.
func NewActions(
	ledger *ledger.Ledger, publisher Publisher, audit AuditSink, topics *config.Ledger, logger *zap.Logger,
) *Actions {
	return &Actions{
		ledger:    ledger,
		publisher: publisher,
		audit:     audit,
		topics:    topics,
		logger:    logger.Named("actions"),
	}
}

// Kick asks game servers to remove the user. The ledger is not touched.
func (a *Actions) Kick(ctx context.Context, target Target, reason string) *Change {
	change := &Change{
		PublishErr: a.publish(ctx, a.topics.KickTopic, KickEvent{
			Action: string(ActionKick),
			Reason: reason,
			UserID: target.UserID,
		}),
	}

	if change.PublishErr == nil {
		a.record(ctx, target, ActionKick, reason)
	}

	return change
}

// Ban writes a ban record and kicks the user from running servers.
func (a *Actions) Ban(ctx context.Context, target Target, reason string) *Change {
	change := &Change{StoreErr: a.ledger.SetBan(ctx, target.UserID, reason)}

	change.PublishErr = a.publish(ctx, a.topics.KickTopic, KickEvent{
		Action: string(ActionKick),
		Reason: BannedKickReason,
		UserID: target.UserID,
	})

	if change.StoreErr == nil {
		a.record(ctx, target, ActionBan, reason)
	}

	return change
}

// Unban deletes the ban record. Game servers read bans on join, so nothing
// is published.
func (a *Actions) Unban(ctx context.Context, target Target) *Change {
	change := &Change{StoreErr: a.ledger.ClearBan(ctx, target.UserID)}

	if change.StoreErr == nil {
		a.record(ctx, target, ActionUnban, "")
	}

	return change
}

// UpdateWarnings applies mutation to the list last read at version and
// tells game servers the warnings changed. reason is what the audit log
// records for the change.
func (a *Actions) UpdateWarnings(
	ctx context.Context, target Target, list ledger.WarningList, version opencloud.Version,
	mutation ledger.WarningMutation, action Action, reason string,
) *Change {
	written, writtenVersion, err := a.ledger.UpdateWarnings(ctx, target.UserID, list, version, mutation)
	change := &Change{StoreErr: err, Warnings: written, WarningsVersion: writtenVersion}

	change.PublishErr = a.publish(ctx, a.topics.WarningTopic, WarningEvent{UserID: target.UserID})

	if change.StoreErr == nil {
		a.record(ctx, target, action, reason)
	}

	return change
}

func (a *Actions) publish(ctx context.Context, topic string, payload any) error {
	err := a.publisher.Publish(ctx, topic, payload)

	switch {
	case err == nil:
	case errors.Is(err, opencloud.ErrMessageTooLarge):
		// Retrying cannot help, the event is lost
		a.logger.Error("Game server notification dropped",
			zap.String("topic", topic),
			zap.Error(err))
	default:
		a.logger.Warn("Failed to notify game servers",
			zap.String("topic", topic),
			zap.Error(err))
	}

	return err
}

func (a *Actions) record(ctx context.Context, target Target, action Action, reason string) {
	if a.audit == nil {
		return
	}

	err := a.audit.Record(ctx, &AuditEntry{
		OperatorID:   target.OperatorID,
		RobloxUserID: target.UserID,
		Username:     target.Username,
		Action:       action,
		Reason:       reason,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		a.logger.Warn("Failed to record moderation action",
			zap.String("action", string(action)),
			zap.Uint64("userID", target.UserID),
			zap.Error(err))
	}
}
