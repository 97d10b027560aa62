package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/projectamerika/mayflower/internal/metrics"
	"github.com/projectamerika/mayflower/internal/opencloud"
	"github.com/projectamerika/mayflower/internal/setup/config"
	"github.com/projectamerika/mayflower/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Store is the remote key-value store holding the ledgers.
type Store interface {
	Get(ctx context.Context, namespace, key string, out any) (opencloud.Version, error)
	Put(ctx context.Context, namespace, key string, value any, opts opencloud.PutOptions) (opencloud.Version, error)
	Delete(ctx context.Context, namespace, key string) error
}

// Ledger reads and writes the ban and warning records of Roblox users.
// The two records are independent; nothing links their writes.
type Ledger struct {
	store  Store
	config *config.Ledger
	logger *zap.Logger
}

// New creates a ledger over store.
func New(store Store, cfg *config.Ledger, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:  store,
		config: cfg,
		logger: logger.Named("ledger"),
	}
}

// Optimistic reports whether warning writes are guarded by entry versions.
func (l *Ledger) Optimistic() bool {
	return l.config.Consistency == config.ConsistencyOptimistic
}

// Load reads both records of a user, one read per namespace, concurrently.
// A missing record is not an error. Any other failure is returned joined with
// the others, together with whatever could be read.
func (l *Ledger) Load(ctx context.Context, userID uint64) (*Snapshot, error) {
	var (
		snapshot = &Snapshot{UserID: userID, Warnings: WarningList{}}
		banErr   error
		warnErr  error
		g        errgroup.Group
	)

	g.Go(func() error {
		ban, err := l.getBan(ctx, userID)
		if err != nil {
			banErr = err
			return nil
		}

		snapshot.Ban = ban

		return nil
	})

	g.Go(func() error {
		warnings, version, err := l.getWarnings(ctx, userID)
		if err != nil {
			warnErr = err
			return nil
		}

		snapshot.Warnings = warnings
		snapshot.WarningsVersion = version

		return nil
	})

	_ = g.Wait()

	if err := errors.Join(banErr, warnErr); err != nil {
		l.logger.Warn("Failed to load ledger",
			zap.Uint64("userID", userID),
			zap.Error(err))

		return snapshot, err
	}

	return snapshot, nil
}

// SetBan writes a ban record, replacing any existing reason.
func (l *Ledger) SetBan(ctx context.Context, userID uint64, reason string) error {
	_, err := l.store.Put(ctx, l.config.BanNamespace, Key(userID), BanRecord{Reason: reason}, opencloud.PutOptions{})
	if err != nil {
		return fmt.Errorf("failed to set ban for %d: %w", userID, err)
	}

	l.logger.Debug("Set ban", zap.Uint64("userID", userID))

	return nil
}

// ClearBan deletes the ban record. Clearing a ban that does not exist succeeds.
func (l *Ledger) ClearBan(ctx context.Context, userID uint64) error {
	err := l.store.Delete(ctx, l.config.BanNamespace, Key(userID))
	if err != nil && !errors.Is(err, opencloud.ErrEntryNotFound) {
		return fmt.Errorf("failed to clear ban for %d: %w", userID, err)
	}

	l.logger.Debug("Cleared ban", zap.Uint64("userID", userID))

	return nil
}

// UpdateWarnings applies mutation to current and writes the whole list back.
//
// In last_write_wins mode the write is unconditional, so a concurrent writer's
// change can be lost. In optimistic mode the write must match version; on a
// conflict the list is read again, the mutation is replayed on it and the
// write is retried with backoff.
//
// The returned list and version are what is now stored. On error nothing is
// known to have been written and callers should keep their previous view.
func (l *Ledger) UpdateWarnings(
	ctx context.Context, userID uint64, current WarningList, version opencloud.Version, mutation WarningMutation,
) (WarningList, opencloud.Version, error) {
	next, err := mutation.Apply(current)
	if err != nil {
		return nil, "", err
	}

	if !l.Optimistic() {
		newVersion, err := l.putWarnings(ctx, userID, next, opencloud.PutOptions{})
		if err != nil {
			return nil, "", err
		}

		return next, newVersion, nil
	}

	attempt := 0
	expected := version

	type result struct {
		list    WarningList
		version opencloud.Version
	}

	res, err := utils.WithRetryValue(ctx, func() (result, error) {
		attempt++

		if attempt > 1 {
			fresh, freshVersion, err := l.getWarnings(ctx, userID)
			if err != nil {
				return result{}, backoff.Permanent(err)
			}

			next, err = mutation.Apply(fresh)
			if errors.Is(err, ErrWarningNotFound) {
				// Someone else already removed it
				return result{list: fresh, version: freshVersion}, nil
			} else if err != nil {
				return result{}, backoff.Permanent(err)
			}

			expected = freshVersion
		}

		opts := opencloud.PutOptions{MatchVersion: expected}
		if expected == "" {
			opts = opencloud.PutOptions{ExclusiveCreate: true}
		}

		newVersion, err := l.putWarnings(ctx, userID, next, opts)
		if errors.Is(err, opencloud.ErrVersionConflict) {
			metrics.LedgerConflicts.Inc()
			l.logger.Debug("Warning write conflicted, replaying",
				zap.Uint64("userID", userID),
				zap.String("mutation", mutation.Name()),
				zap.Int("attempt", attempt))

			return result{}, err
		} else if err != nil {
			return result{}, backoff.Permanent(err)
		}

		return result{list: next, version: newVersion}, nil
	}, utils.GetConflictRetryOptions(l.config.MaxConflictRetries))
	if err != nil {
		return nil, "", err
	}

	return res.list, res.version, nil
}

func (l *Ledger) getBan(ctx context.Context, userID uint64) (*BanRecord, error) {
	var record BanRecord

	_, err := l.store.Get(ctx, l.config.BanNamespace, Key(userID), &record)
	if errors.Is(err, opencloud.ErrEntryNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get ban for %d: %w", userID, err)
	}

	return &record, nil
}

func (l *Ledger) getWarnings(ctx context.Context, userID uint64) (WarningList, opencloud.Version, error) {
	var warnings WarningList

	version, err := l.store.Get(ctx, l.config.WarningNamespace, Key(userID), &warnings)
	if errors.Is(err, opencloud.ErrEntryNotFound) {
		return WarningList{}, "", nil
	} else if err != nil {
		return nil, "", fmt.Errorf("failed to get warnings for %d: %w", userID, err)
	}

	if warnings == nil {
		warnings = WarningList{}
	}

	return warnings, version, nil
}

func (l *Ledger) putWarnings(
	ctx context.Context, userID uint64, warnings WarningList, opts opencloud.PutOptions,
) (opencloud.Version, error) {
	if warnings == nil {
		warnings = WarningList{}
	}

	version, err := l.store.Put(ctx, l.config.WarningNamespace, Key(userID), warnings, opts)
	if err != nil {
		return "", fmt.Errorf("failed to save warnings for %d: %w", userID, err)
	}

	return version, nil
}
