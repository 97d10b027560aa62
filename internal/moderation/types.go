package moderation

import (
	"errors"
	"time"
)

var (
	// ErrUserNotFound means the username does not belong to a Roblox account.
	ErrUserNotFound = errors.New("roblox user not found")
	// ErrNotSessionOwner is returned when someone other than the opener drives a session.
	ErrNotSessionOwner = errors.New("session belongs to another operator")
	// ErrSessionClosed is returned for sessions that were cancelled or expired.
	ErrSessionClosed = errors.New("session closed")
	// ErrInvalidReason is returned when a reason is empty or too long.
	ErrInvalidReason = errors.New("invalid reason")
)

// Action is an operator choice in a manage session.
type Action string

const (
	ActionKick          Action = "kick"
	ActionBan           Action = "ban"
	ActionUnban         Action = "unban"
	ActionAddWarning    Action = "add-warning"
	ActionRemoveWarning Action = "remove-warning"
	ActionCancel        Action = "cancel"
)

// NeedsReason reports whether the action collects a free-text reason first.
func (a Action) NeedsReason() bool {
	return a == ActionKick || a == ActionBan || a == ActionAddWarning
}

// Outcome describes how a transition ended.
type Outcome string

const (
	// OutcomeApplied means the change was written and the view updated.
	OutcomeApplied Outcome = "applied"
	// OutcomeStoreFailed means the ledger write failed and the view is unchanged.
	OutcomeStoreFailed Outcome = "store_failed"
	// OutcomeRejected means the input was invalid and nothing was attempted.
	OutcomeRejected Outcome = "rejected"
)

// Result is what a transition reports back to the presentation layer.
type Result struct {
	Action  Action
	Outcome Outcome
	// View is the session view after the transition.
	View View
	// Err explains a failed or rejected transition.
	Err error
	// PublishErr is set when the game server notification was not accepted.
	// It never changes the outcome.
	PublishErr error
}

// KickEvent tells game servers to remove a player.
type KickEvent struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
	UserID uint64 `json:"userId"`
}

// WarningEvent tells game servers that a player's warnings changed.
type WarningEvent struct {
	UserID uint64 `json:"userId"`
}

// BannedKickReason is the kick reason sent to game servers when a ban is applied.
const BannedKickReason = "Banned."

// AuditEntry describes one applied moderation action.
type AuditEntry struct {
	OperatorID   uint64
	RobloxUserID uint64
	Username     string
	Action       Action
	Reason       string
	CreatedAt    time.Time
}
