package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/projectamerika/mayflower/internal/bot"
	"github.com/projectamerika/mayflower/internal/bot/constants"
	"github.com/projectamerika/mayflower/internal/bot/guilds"
	"github.com/projectamerika/mayflower/internal/moderation"
	"github.com/projectamerika/mayflower/internal/redis"
	"github.com/projectamerika/mayflower/internal/roblox/fetcher"
	"github.com/projectamerika/mayflower/internal/setup"
	"github.com/projectamerika/mayflower/internal/setup/telemetry"
)

const (
	// BotLogDir specifies where bot log files are stored.
	BotLogDir = "logs/bot_logs"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Bot exited with error: %v", err)
	}
}

func run() error {
	ctx := context.Background()

	// Initialize application with required dependencies
	app, err := setup.InitializeApp(ctx, telemetry.ServiceBot, BotLogDir)
	if err != nil {
		return err
	}
	defer app.Cleanup(ctx)

	cfg := app.Config
	timeout := telemetry.ServiceBot.GetRequestTimeout(cfg)

	sessionClient, err := app.RedisManager.Client(redis.Sessions)
	if err != nil {
		return err
	}

	users := fetcher.NewUserFetcher(app.RoAPI, cfg.Common.Roblox.UsersURL, timeout, app.Logger)
	sessions := moderation.NewRedisSessionStore(
		sessionClient, time.Duration(cfg.Bot.Moderation.SessionTimeout)*time.Second, app.Logger,
	)

	workflow := moderation.NewWorkflow(
		users,
		fetcher.NewThumbnailFetcher(app.RoAPI, app.Logger),
		app.Ledger,
		app.Messaging,
		sessions,
		app.DB.Model().ModerationLog(),
		&cfg.Common.Ledger,
		&cfg.Bot.Moderation,
		app.Logger,
	)

	// Prompts outlive their timeout so the expiry goroutine can still claim them
	pending := guilds.NewPendingStore(sessionClient, 2*constants.ConfirmPromptTimeout)

	// Create bot instance
	discordBot, err := bot.New(cfg.Bot.Discord.Token, &bot.Dependencies{
		Workflow:   workflow,
		Users:      users,
		Pending:    pending,
		AlertLock:  guilds.NewOperationLock(sessionClient, guilds.AlertLockKey, app.LogManager.GetInstanceID()),
		DB:         app.DB,
		Moderation: &cfg.Bot.Moderation,
	}, app.Logger)
	if err != nil {
		return err
	}

	// Start the bot and connect to Discord
	if err := discordBot.Start(ctx); err != nil {
		return err
	}

	log.Println("Bot has been started. Waiting for interrupt signal to gracefully shutdown...")

	// Wait for interrupt signal to gracefully shutdown the bot
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	discordBot.Close(shutdownCtx)

	return nil
}
