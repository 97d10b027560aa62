package guilds

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/projectamerika/mayflower/internal/database/types"
	"github.com/projectamerika/mayflower/internal/metrics"
	"github.com/projectamerika/mayflower/pkg/utils"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// MaxAuditReasonLength is the longest audit log reason Discord accepts.
const MaxAuditReasonLength = 512

// Banner bans and unbans a user in a single guild.
type Banner interface {
	Ban(ctx context.Context, guildID, userID snowflake.ID, reason string) error
	Unban(ctx context.Context, guildID, userID snowflake.ID, reason string) error
}

// Result is the outcome of a fan-out over guilds or members.
type Result struct {
	Succeeded []snowflake.ID
	Failed    []snowflake.ID
}

// Log converts the result into a database record.
func (r *Result) Log(operatorID, targetID snowflake.ID, action types.GuildBanAction, reason string) *types.GuildBanLog {
	failed := make([]uint64, len(r.Failed))
	for i, id := range r.Failed {
		failed[i] = uint64(id)
	}

	return &types.GuildBanLog{
		OperatorID:     uint64(operatorID),
		TargetID:       uint64(targetID),
		Action:         action,
		Reason:         reason,
		SucceededCount: len(r.Succeeded),
		FailedCount:    len(r.Failed),
		FailedGuildIDs: failed,
		Timestamp:      time.Now(),
	}
}

// Executor fans a ban or unban out over many guilds with a bounded number of
// workers, pausing after every guild to stay clear of rate limits.
type Executor struct {
	banner  Banner
	workers int
	spacing time.Duration
	logger  *zap.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(banner Banner, workers int, spacing time.Duration, logger *zap.Logger) *Executor {
	return &Executor{
		banner:  banner,
		workers: max(workers, 1),
		spacing: spacing,
		logger:  logger.Named("guild_executor"),
	}
}

// Run applies action to userID in every guild. Failures in one guild never
// stop the others; guilds not reached before ctx ends count as failed.
func (e *Executor) Run(
	ctx context.Context, action types.GuildBanAction, guildIDs []snowflake.ID, userID snowflake.ID, reason string,
) *Result {
	reason = utils.TruncateString(reason, MaxAuditReasonLength)

	result := fanOut(ctx, guildIDs, e.workers, e.spacing, func(ctx context.Context, guildID snowflake.ID) error {
		err := e.apply(ctx, action, guildID, userID, reason)
		if err != nil {
			metrics.GuildBans.WithLabelValues(string(action), metrics.ResultError).Inc()
			e.logger.Warn("Guild ban call failed",
				zap.String("action", string(action)),
				zap.Uint64("guildID", uint64(guildID)),
				zap.Uint64("userID", uint64(userID)),
				zap.Error(err))

			return err
		}

		metrics.GuildBans.WithLabelValues(string(action), metrics.ResultOK).Inc()

		return nil
	})

	e.logger.Info("Cross-server operation finished",
		zap.String("action", string(action)),
		zap.Uint64("userID", uint64(userID)),
		zap.Int("succeeded", len(result.Succeeded)),
		zap.Int("failed", len(result.Failed)))

	return result
}

func (e *Executor) apply(
	ctx context.Context, action types.GuildBanAction, guildID, userID snowflake.ID, reason string,
) error {
	if action == types.GuildBanActionUnban {
		return e.banner.Unban(ctx, guildID, userID, reason)
	}

	return e.banner.Ban(ctx, guildID, userID, reason)
}

// fanOut calls fn once per ID with at most workers calls in flight, pausing
// for spacing after each call. IDs not reached before ctx ends count as
// failed. Both lists of the result are sorted.
func fanOut(
	ctx context.Context, ids []snowflake.ID, workers int, spacing time.Duration,
	fn func(ctx context.Context, id snowflake.ID) error,
) *Result {
	var (
		p      = pool.New().WithMaxGoroutines(max(workers, 1))
		mu     sync.Mutex
		result = &Result{}
	)

	for _, id := range ids {
		p.Go(func() {
			err := ctx.Err()
			if err == nil {
				err = fn(ctx, id)
				utils.ContextSleep(ctx, spacing)
			}

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				result.Failed = append(result.Failed, id)
			} else {
				result.Succeeded = append(result.Succeeded, id)
			}
		})
	}

	p.Wait()

	slices.Sort(result.Succeeded)
	slices.Sort(result.Failed)

	return result
}
