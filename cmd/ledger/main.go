package main

import (
	"context"
	"log"
	"os"

	"github.com/projectamerika/mayflower/cmd/ledger/commands"
	"github.com/projectamerika/mayflower/internal/moderation"
	"github.com/projectamerika/mayflower/internal/setup"
	"github.com/projectamerika/mayflower/internal/setup/telemetry"
	"github.com/urfave/cli/v3"
)

const (
	// LedgerLogDir specifies where ledger CLI log files are stored.
	LedgerLogDir = "logs/ledger_logs"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	app, err := setup.InitializeApp(ctx, telemetry.ServiceLedgerCLI, LedgerLogDir)
	if err != nil {
		return err
	}
	defer app.Cleanup(ctx)

	moderationLog := app.DB.Model().ModerationLog()

	logger := app.Logger.Named("ledger_cli")

	deps := &commands.CLIDependencies{
		Ledger: app.Ledger,
		Actions: moderation.NewActions(
			app.Ledger, app.Messaging, moderationLog, &app.Config.Common.Ledger, logger,
		),
		History:   moderationLog,
		GuildBans: app.DB.Model().GuildBan(),
		Reasons:   moderation.NewReasonValidator(app.Config.Bot.Moderation.MaxReasonLength),
		Out:       os.Stdout,
		Logger:    logger,
	}

	cmd := &cli.Command{
		Name:     "ledger",
		Usage:    "Read and change the moderation ledger without Discord",
		Commands: commands.LedgerCommands(deps),
	}

	return cmd.Run(ctx, os.Args)
}
