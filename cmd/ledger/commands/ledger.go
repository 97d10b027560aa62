package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/projectamerika/mayflower/internal/ledger"
	"github.com/projectamerika/mayflower/internal/moderation"
	"github.com/urfave/cli/v3"
)

// LedgerCommands returns the commands that read and change a user's ledger.
func LedgerCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:      "show",
			Usage:     "Show the ban record and warnings of a Roblox user",
			ArgsUsage: "USER_ID",
			Action:    handleShow(deps),
		},
		{
			Name:      "ban",
			Usage:     "Ban a Roblox user and kick them from running servers",
			ArgsUsage: "USER_ID REASON",
			Flags:     []cli.Flag{operatorFlag()},
			Action:    handleBan(deps),
		},
		{
			Name:      "unban",
			Usage:     "Remove the ban record of a Roblox user",
			ArgsUsage: "USER_ID",
			Flags:     []cli.Flag{operatorFlag()},
			Action:    handleUnban(deps),
		},
		{
			Name:      "warn",
			Usage:     "Add a warning to a Roblox user",
			ArgsUsage: "USER_ID REASON",
			Flags:     []cli.Flag{operatorFlag()},
			Action:    handleWarn(deps),
		},
		{
			Name:      "unwarn",
			Usage:     "Remove a warning by its number as shown by 'show'",
			ArgsUsage: "USER_ID INDEX",
			Flags:     []cli.Flag{operatorFlag()},
			Action:    handleUnwarn(deps),
		},
		{
			Name:      "kick",
			Usage:     "Kick a Roblox user from running servers",
			ArgsUsage: "USER_ID REASON",
			Flags:     []cli.Flag{operatorFlag()},
			Action:    handleKick(deps),
		},
		{
			Name:      "history",
			Usage:     "List recorded moderation actions for a Roblox user",
			ArgsUsage: "USER_ID",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "limit",
					Usage:   "Maximum number of entries to print",
					Value:   20,
					Aliases: []string{"l"},
				},
			},
			Action: handleHistory(deps),
		},
		{
			Name:      "guild-bans",
			Usage:     "List cross-server bans and unbans of a Discord user",
			ArgsUsage: "DISCORD_USER_ID",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "limit",
					Usage:   "Maximum number of entries to print",
					Value:   20,
					Aliases: []string{"l"},
				},
			},
			Action: handleGuildBans(deps),
		},
	}
}

func operatorFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "operator",
		Usage:   "Discord user ID recorded as the operator",
		Aliases: []string{"o"},
	}
}

// handleShow handles the 'show' command.
func handleShow(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		userID, err := parseUserID(c)
		if err != nil {
			return err
		}

		snapshot, err := deps.Ledger.Load(ctx, userID)
		if err != nil {
			return err
		}

		printSnapshot(deps, snapshot)

		return nil
	}
}

// handleBan handles the 'ban' command.
func handleBan(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		userID, reason, err := parseUserAndReason(c, deps)
		if err != nil {
			return err
		}

		change := deps.Actions.Ban(ctx, target(c, userID), reason)
		if err := report(deps, change); err != nil {
			return err
		}

		fmt.Fprintf(deps.Out, "Banned %d: %s\n", userID, reason)

		return nil
	}
}

// handleUnban handles the 'unban' command.
func handleUnban(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		userID, err := parseUserID(c)
		if err != nil {
			return err
		}

		if err := report(deps, deps.Actions.Unban(ctx, target(c, userID))); err != nil {
			return err
		}

		fmt.Fprintf(deps.Out, "Unbanned %d\n", userID)

		return nil
	}
}

// handleWarn handles the 'warn' command.
func handleWarn(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		userID, reason, err := parseUserAndReason(c, deps)
		if err != nil {
			return err
		}

		if err := updateWarnings(ctx, deps, c, userID, moderation.ActionAddWarning,
			func(ledger.WarningList) (ledger.WarningMutation, string, error) {
				return ledger.AppendWarning{Reason: reason}, reason, nil
			}); err != nil {
			return err
		}

		fmt.Fprintf(deps.Out, "Warned %d: %s\n", userID, reason)

		return nil
	}
}

// handleUnwarn handles the 'unwarn' command. INDEX is 1-based like the
// numbered list printed by 'show'.
func handleUnwarn(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		userID, err := parseUserID(c)
		if err != nil {
			return err
		}

		if c.Args().Len() < 2 {
			return ErrIndexRequired
		}

		number, err := strconv.Atoi(c.Args().Get(1))
		if err != nil {
			return fmt.Errorf("invalid INDEX %q: %w", c.Args().Get(1), err)
		}

		var removed string

		if err := updateWarnings(ctx, deps, c, userID, moderation.ActionRemoveWarning,
			func(list ledger.WarningList) (ledger.WarningMutation, string, error) {
				mutation, err := ledger.NewRemoveWarning(list, number-1)
				removed = mutation.Reason

				return mutation, mutation.Reason, err
			}); err != nil {
			return err
		}

		fmt.Fprintf(deps.Out, "Removed warning %d from %d: %s\n", number, userID, removed)

		return nil
	}
}

// handleKick handles the 'kick' command. A kick that did not reach game
// servers did nothing, so it fails the command.
func handleKick(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		userID, reason, err := parseUserAndReason(c, deps)
		if err != nil {
			return err
		}

		change := deps.Actions.Kick(ctx, target(c, userID), reason)
		if change.PublishErr != nil {
			return fmt.Errorf("failed to notify game servers: %w", change.PublishErr)
		}

		fmt.Fprintf(deps.Out, "Kicked %d: %s\n", userID, reason)

		return nil
	}
}

// handleHistory handles the 'history' command.
func handleHistory(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if deps.History == nil {
			return ErrHistoryOffline
		}

		userID, err := parseUserID(c)
		if err != nil {
			return err
		}

		logs, _, err := deps.History.GetUserLogs(ctx, userID, nil, max(int(c.Int("limit")), 1))
		if err != nil {
			return err
		}

		if len(logs) == 0 {
			fmt.Fprintf(deps.Out, "No recorded actions for %d\n", userID)
			return nil
		}

		for _, log := range logs {
			line := fmt.Sprintf("%s  %-14s by %d", log.CreatedAt.Format(time.RFC3339), log.Action, log.OperatorID)
			if log.Reason != "" {
				line += ": " + log.Reason
			}

			fmt.Fprintln(deps.Out, line)
		}

		return nil
	}
}

// handleGuildBans handles the 'guild-bans' command.
func handleGuildBans(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if deps.GuildBans == nil {
			return ErrHistoryOffline
		}

		targetID, err := parseUserID(c)
		if err != nil {
			return err
		}

		logs, _, err := deps.GuildBans.GetTargetLogs(ctx, targetID, nil, max(int(c.Int("limit")), 1))
		if err != nil {
			return err
		}

		if len(logs) == 0 {
			fmt.Fprintf(deps.Out, "No cross-server bans for %d\n", targetID)
			return nil
		}

		for _, log := range logs {
			fmt.Fprintf(deps.Out, "%s  %-5s by %d: %d ok, %d failed (%s)\n",
				log.Timestamp.Format(time.RFC3339), log.Action, log.OperatorID,
				log.SucceededCount, log.FailedCount, log.Reason)
		}

		return nil
	}
}

// updateWarnings loads the current list so the mutation is built against
// what is stored, then applies it.
func updateWarnings(
	ctx context.Context, deps *CLIDependencies, c *cli.Command, userID uint64, action moderation.Action,
	build func(list ledger.WarningList) (ledger.WarningMutation, string, error),
) error {
	snapshot, err := deps.Ledger.Load(ctx, userID)
	if err != nil {
		return err
	}

	mutation, reason, err := build(snapshot.Warnings)
	if err != nil {
		return err
	}

	change := deps.Actions.UpdateWarnings(
		ctx, target(c, userID), snapshot.Warnings, snapshot.WarningsVersion, mutation, action, reason,
	)

	return report(deps, change)
}

// report prints a notification failure and returns the ledger failure.
// Game servers are notified even when the write failed.
func report(deps *CLIDependencies, change *moderation.Change) error {
	if change.PublishErr != nil {
		fmt.Fprintf(deps.Out, "Warning: game servers were not notified: %v\n", change.PublishErr)
	}

	return change.StoreErr
}

func target(c *cli.Command, userID uint64) moderation.Target {
	return moderation.Target{
		OperatorID: uint64(max(c.Int("operator"), 0)),
		UserID:     userID,
	}
}

func printSnapshot(deps *CLIDependencies, snapshot *ledger.Snapshot) {
	fmt.Fprintf(deps.Out, "User %d\n", snapshot.UserID)

	if snapshot.Ban != nil {
		fmt.Fprintf(deps.Out, "Banned: Yes - %s\n", snapshot.Ban.Reason)
	} else {
		fmt.Fprintln(deps.Out, "Banned: No")
	}

	fmt.Fprintf(deps.Out, "%d warning(s)\n", len(snapshot.Warnings))

	for i, warning := range snapshot.Warnings {
		fmt.Fprintf(deps.Out, "%d. %s\n", i+1, warning)
	}
}

func parseUserID(c *cli.Command) (uint64, error) {
	if c.Args().Len() < 1 {
		return 0, ErrUserIDRequired
	}

	userID, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil || userID == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUserID, c.Args().First())
	}

	return userID, nil
}

func parseUserAndReason(c *cli.Command, deps *CLIDependencies) (uint64, string, error) {
	userID, err := parseUserID(c)
	if err != nil {
		return 0, "", err
	}

	if c.Args().Len() < 2 {
		return 0, "", ErrReasonRequired
	}

	reason, err := deps.Reasons.Check(strings.Join(c.Args().Slice()[1:], " "))
	if err != nil {
		return 0, "", err
	}

	return userID, reason, nil
}
