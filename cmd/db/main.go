package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/projectamerika/mayflower/internal/database"
	"github.com/projectamerika/mayflower/internal/database/migrations"
	"github.com/projectamerika/mayflower/internal/setup/config"
	"github.com/projectamerika/mayflower/internal/setup/telemetry"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// DBLogDir specifies where schema tool log files are stored.
const DBLogDir = "logs/db_logs"

// ErrNameRequired is returned by 'create' without a migration name.
var ErrNameRequired = errors.New("NAME argument required")

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalf("Schema tool exited with error: %v", err)
	}
}

func run(ctx context.Context) error {
	tool, err := newSchemaTool(ctx)
	if err != nil {
		return err
	}
	defer tool.db.Close()

	cmd := &cli.Command{
		Name:  "db",
		Usage: "Manage the audit log database schema",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Create the tables that track applied migrations",
				Action: tool.init,
			},
			{
				Name:   "migrate",
				Usage:  "Apply every pending migration as one group",
				Action: tool.migrate,
			},
			{
				Name:   "rollback",
				Usage:  "Undo the most recently applied group",
				Action: tool.rollback,
			},
			{
				Name:   "status",
				Usage:  "List applied and pending migrations",
				Action: tool.status,
			},
			{
				Name:      "create",
				Usage:     "Write a new Go migration file",
				ArgsUsage: "NAME",
				Action:    tool.create,
			},
		},
	}

	return cmd.Run(ctx, os.Args)
}

// schemaTool runs bun migrations against the audit log database. Unlike the
// bot it never migrates on connect.
type schemaTool struct {
	db       database.Client
	migrator *migrate.Migrator
	logger   *zap.Logger
}

func newSchemaTool(ctx context.Context) (*schemaTool, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, dbLogger, err := telemetry.NewManager(telemetry.ServiceMigration, DBLogDir, &cfg.Common.Debug).GetLoggers()
	if err != nil {
		return nil, err
	}

	db, err := database.NewConnection(ctx, &cfg.Common.PostgreSQL, dbLogger, false)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to audit database: %w", err)
	}

	return &schemaTool{
		db:       db,
		migrator: migrate.NewMigrator(db.DB(), migrations.Migrations),
		logger:   logger.Named("schema"),
	}, nil
}

func (s *schemaTool) init(ctx context.Context, _ *cli.Command) error {
	if err := s.migrator.Init(ctx); err != nil {
		return err
	}

	s.logger.Info("Migration tables ready")

	return nil
}

func (s *schemaTool) migrate(ctx context.Context, _ *cli.Command) error {
	return s.exclusive(ctx, func() error {
		group, err := s.migrator.Migrate(ctx)
		if err != nil {
			return err
		}

		if group.IsZero() {
			fmt.Println("Schema is up to date")
			return nil
		}

		s.logger.Info("Applied migrations", zap.Stringer("group", group))
		fmt.Printf("Applied %s\n", group)

		return nil
	})
}

func (s *schemaTool) rollback(ctx context.Context, _ *cli.Command) error {
	return s.exclusive(ctx, func() error {
		group, err := s.migrator.Rollback(ctx)
		if err != nil {
			return err
		}

		if group.IsZero() {
			fmt.Println("Nothing to roll back")
			return nil
		}

		s.logger.Info("Rolled back migrations", zap.Stringer("group", group))
		fmt.Printf("Rolled back %s\n", group)

		return nil
	})
}

func (s *schemaTool) status(ctx context.Context, _ *cli.Command) error {
	applied, err := s.migrator.MigrationsWithStatus(ctx)
	if err != nil {
		return err
	}

	for _, migration := range applied {
		state := "pending"
		if migration.IsApplied() {
			state = fmt.Sprintf("applied in group %d", migration.GroupID)
		}

		fmt.Printf("%-40s %s\n", migration.Name, state)
	}

	fmt.Printf("%d migration(s), %d pending\n", len(applied), len(applied.Unapplied()))

	return nil
}

func (s *schemaTool) create(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return ErrNameRequired
	}

	file, err := s.migrator.CreateGoMigration(ctx, c.Args().First())
	if err != nil {
		return err
	}

	fmt.Printf("Created %s\n", file.Path)

	return nil
}

// exclusive holds bun's migration lock while fn runs.
func (s *schemaTool) exclusive(ctx context.Context, fn func() error) error {
	if err := s.migrator.Lock(ctx); err != nil {
		return fmt.Errorf("failed to take migration lock: %w", err)
	}

	defer func() {
		if err := s.migrator.Unlock(ctx); err != nil {
			s.logger.Warn("Failed to release migration lock", zap.Error(err))
		}
	}()

	return fn()
}
