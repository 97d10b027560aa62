package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/projectamerika/mayflower/internal/ledger"
	"github.com/projectamerika/mayflower/internal/metrics"
	"github.com/projectamerika/mayflower/internal/roblox/fetcher"
	"github.com/projectamerika/mayflower/internal/setup/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// UserDirectory resolves Roblox accounts.
type UserDirectory interface {
	ResolveUsername(ctx context.Context, username string) (uint64, error)
	GetUser(ctx context.Context, userID uint64) (*fetcher.User, error)
}

// HeadshotSource fetches avatar headshots.
type HeadshotSource interface {
	GetHeadshot(ctx context.Context, userID uint64) (string, error)
}

// Publisher delivers events to game servers.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// AuditSink records applied moderation actions.
type AuditSink interface {
	Record(ctx context.Context, entry *AuditEntry) error
}

// Workflow drives manage sessions: it loads a user's ledger state and
// applies operator actions through Actions.
type Workflow struct {
	users     UserDirectory
	headshots HeadshotSource
	ledger    *ledger.Ledger
	actions   *Actions
	sessions  SessionStore
	reasons   *ReasonValidator
	lifetime  time.Duration
	locks     *keyedMutex
	logger    *zap.Logger
}

// NewWorkflow creates a Workflow. audit may be nil.
func NewWorkflow(
	users UserDirectory, headshots HeadshotSource, ledger *ledger.Ledger, publisher Publisher,
	sessions SessionStore, audit AuditSink, ledgerConfig *config.Ledger, moderationConfig *config.Moderation,
	logger *zap.Logger,
) *Workflow {
	return &Workflow{
		users:     users,
		headshots: headshots,
		ledger:    ledger,
		actions:   NewActions(ledger, publisher, audit, ledgerConfig, logger),
		sessions:  sessions,
		reasons:   NewReasonValidator(moderationConfig.MaxReasonLength),
		lifetime:  time.Duration(moderationConfig.SessionLifetime) * time.Second,
		locks:     newKeyedMutex(),
		logger:    logger.Named("moderation"),
	}
}

// Open resolves username and loads everything the first render needs.
// Only identity failures are returned; a ledger that could not be read is
// shown as empty.
func (w *Workflow) Open(ctx context.Context, username string) (*View, error) {
	userID, err := w.users.ResolveUsername(ctx, username)
	if errors.Is(err, fetcher.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	} else if err != nil {
		return nil, err
	}

	var (
		user      *fetcher.User
		thumbnail string
		snapshot  *ledger.Snapshot
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		info, err := w.users.GetUser(gctx, userID)
		if errors.Is(err, fetcher.ErrUserNotFound) {
			return fmt.Errorf("%w: %w", ErrUserNotFound, err)
		} else if err != nil {
			return err
		}

		user = info

		return nil
	})

	g.Go(func() error {
		url, err := w.headshots.GetHeadshot(gctx, userID)
		if err != nil {
			w.logger.Debug("Opening session without headshot",
				zap.Uint64("userID", userID),
				zap.Error(err))

			return nil
		}

		thumbnail = url

		return nil
	})

	g.Go(func() error {
		loaded, err := w.ledger.Load(gctx, userID)
		if err != nil {
			w.logger.Warn("Ledger partially loaded",
				zap.Uint64("userID", userID),
				zap.Error(err))
		}

		snapshot = loaded

		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	view := newView(user.Name, thumbnail, snapshot)

	return &view, nil
}

// Start stores an opened view as a session owned by operatorID and bound to
// the message that shows it.
func (w *Workflow) Start(ctx context.Context, operatorID, messageID uint64, view *View) (*Session, error) {
	now := time.Now()
	session := &Session{
		OperatorID: operatorID,
		MessageID:  messageID,
		View:       *view,
		OpenedAt:   now,
		LastUsed:   now,
	}

	if err := w.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	metrics.Sessions.WithLabelValues("opened").Inc()
	w.logger.Debug("Opened manage session",
		zap.String("key", session.Key().String()),
		zap.Uint64("userID", view.UserID))

	return session, nil
}

// View returns the current view of a session for its owner.
func (w *Workflow) View(ctx context.Context, key SessionKey, operatorID uint64) (*View, error) {
	session, err := w.owned(ctx, key, operatorID)
	if err != nil {
		return nil, err
	}

	return &session.View, nil
}

// Kick asks game servers to remove the user. The ledger is not touched.
func (w *Workflow) Kick(ctx context.Context, key SessionKey, operatorID uint64, reason string) (*Result, error) {
	return w.run(ctx, key, operatorID, ActionKick, func(ctx context.Context, session *Session) *Result {
		reason, err := w.reasons.Check(reason)
		if err != nil {
			return rejected(ActionKick, session.View, err)
		}

		change := w.actions.Kick(ctx, target(session), reason)

		return &Result{Action: ActionKick, Outcome: OutcomeApplied, View: session.View, PublishErr: change.PublishErr}
	})
}

// Ban writes a ban record and kicks the user from running servers.
func (w *Workflow) Ban(ctx context.Context, key SessionKey, operatorID uint64, reason string) (*Result, error) {
	return w.run(ctx, key, operatorID, ActionBan, func(ctx context.Context, session *Session) *Result {
		reason, err := w.reasons.Check(reason)
		if err != nil {
			return rejected(ActionBan, session.View, err)
		}

		view := session.View

		change := w.actions.Ban(ctx, target(session), reason)
		if change.StoreErr != nil {
			return w.storeFailed(ActionBan, view, change)
		}

		view.Ban = &ledger.BanRecord{Reason: reason}

		return &Result{Action: ActionBan, Outcome: OutcomeApplied, View: view, PublishErr: change.PublishErr}
	})
}

// Unban deletes the ban record.
func (w *Workflow) Unban(ctx context.Context, key SessionKey, operatorID uint64) (*Result, error) {
	return w.run(ctx, key, operatorID, ActionUnban, func(ctx context.Context, session *Session) *Result {
		view := session.View

		change := w.actions.Unban(ctx, target(session))
		if change.StoreErr != nil {
			return w.storeFailed(ActionUnban, view, change)
		}

		view.Ban = nil

		return &Result{Action: ActionUnban, Outcome: OutcomeApplied, View: view}
	})
}

// AddWarning appends a warning and notifies game servers.
func (w *Workflow) AddWarning(ctx context.Context, key SessionKey, operatorID uint64, reason string) (*Result, error) {
	return w.run(ctx, key, operatorID, ActionAddWarning, func(ctx context.Context, session *Session) *Result {
		reason, err := w.reasons.Check(reason)
		if err != nil {
			return rejected(ActionAddWarning, session.View, err)
		}

		return w.updateWarnings(ctx, session, ActionAddWarning, ledger.AppendWarning{Reason: reason}, reason)
	})
}

// RemoveWarning removes the warning at the displayed index and notifies game servers.
func (w *Workflow) RemoveWarning(ctx context.Context, key SessionKey, operatorID uint64, index int) (*Result, error) {
	return w.run(ctx, key, operatorID, ActionRemoveWarning, func(ctx context.Context, session *Session) *Result {
		mutation, err := ledger.NewRemoveWarning(session.View.Warnings, index)
		if err != nil {
			return rejected(ActionRemoveWarning, session.View, err)
		}

		return w.updateWarnings(ctx, session, ActionRemoveWarning, mutation, mutation.Reason)
	})
}

// Cancel ends the session. Changes already written stay.
func (w *Workflow) Cancel(ctx context.Context, key SessionKey, operatorID uint64) (*Result, error) {
	unlock := w.locks.Lock(key)
	defer unlock()

	session, err := w.owned(ctx, key, operatorID)
	if err != nil {
		return nil, err
	}

	if err := w.sessions.Delete(ctx, key); err != nil {
		return nil, err
	}

	metrics.Sessions.WithLabelValues("cancelled").Inc()
	metrics.ModerationActions.WithLabelValues(string(ActionCancel), string(OutcomeApplied)).Inc()

	return &Result{Action: ActionCancel, Outcome: OutcomeApplied, View: session.View}, nil
}

func (w *Workflow) updateWarnings(
	ctx context.Context, session *Session, action Action, mutation ledger.WarningMutation, reason string,
) *Result {
	view := session.View

	change := w.actions.UpdateWarnings(ctx, target(session), view.Warnings, view.WarningsVersion, mutation, action, reason)
	if change.StoreErr != nil {
		return w.storeFailed(action, view, change)
	}

	view.Warnings = change.Warnings
	view.WarningsVersion = change.WarningsVersion

	return &Result{Action: action, Outcome: OutcomeApplied, View: view, PublishErr: change.PublishErr}
}

// run serialises a transition on its session and stores the resulting view.
func (w *Workflow) run(
	ctx context.Context, key SessionKey, operatorID uint64, action Action,
	transition func(ctx context.Context, session *Session) *Result,
) (*Result, error) {
	unlock := w.locks.Lock(key)
	defer unlock()

	session, err := w.owned(ctx, key, operatorID)
	if err != nil {
		return nil, err
	}

	result := transition(ctx, session)
	metrics.ModerationActions.WithLabelValues(string(action), string(result.Outcome)).Inc()

	session.View = result.View
	session.LastUsed = time.Now()

	if err := w.sessions.Save(ctx, session); err != nil {
		w.logger.Warn("Failed to save session",
			zap.String("key", key.String()),
			zap.Error(err))
	}

	return result, nil
}

func (w *Workflow) owned(ctx context.Context, key SessionKey, operatorID uint64) (*Session, error) {
	if key.OperatorID != operatorID {
		return nil, ErrNotSessionOwner
	}

	session, err := w.sessions.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	if session.OperatorID != operatorID {
		return nil, ErrNotSessionOwner
	}

	// Sessions end after their lifetime even when kept busy
	if w.lifetime > 0 && time.Since(session.OpenedAt) > w.lifetime {
		if err := w.sessions.Delete(ctx, key); err != nil {
			w.logger.Warn("Failed to delete expired session",
				zap.String("key", key.String()),
				zap.Error(err))
		}

		metrics.Sessions.WithLabelValues("expired").Inc()

		return nil, ErrSessionClosed
	}

	return session, nil
}

func (w *Workflow) storeFailed(action Action, view View, change *Change) *Result {
	w.logger.Warn("Ledger write failed",
		zap.String("action", string(action)),
		zap.Uint64("userID", view.UserID),
		zap.Error(change.StoreErr))

	return &Result{
		Action:     action,
		Outcome:    OutcomeStoreFailed,
		View:       view,
		Err:        change.StoreErr,
		PublishErr: change.PublishErr,
	}
}

func rejected(action Action, view View, err error) *Result {
	return &Result{Action: action, Outcome: OutcomeRejected, View: view, Err: err}
}

func target(session *Session) Target {
	return Target{
		OperatorID: session.OperatorID,
		UserID:     session.View.UserID,
		Username:   session.View.Username,
	}
}
