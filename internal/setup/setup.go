package setup

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jaxron/roapi.go/pkg/api"
	"github.com/projectamerika/mayflower/internal/database"
	"github.com/projectamerika/mayflower/internal/database/migrations"
	"github.com/projectamerika/mayflower/internal/ledger"
	"github.com/projectamerika/mayflower/internal/metrics"
	"github.com/projectamerika/mayflower/internal/opencloud"
	"github.com/projectamerika/mayflower/internal/redis"
	"github.com/projectamerika/mayflower/internal/setup/client"
	"github.com/projectamerika/mayflower/internal/setup/config"
	"github.com/projectamerika/mayflower/internal/setup/telemetry"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config        *config.Config       // Application configuration
	Logger        *zap.Logger          // Main application logger
	DBLogger      *zap.Logger          // Database-specific logger
	DB            database.Client      // Database connection pool
	RoAPI         *api.API             // RoAPI HTTP client
	RedisManager  *redis.Manager       // Redis connection manager
	Datastore     *opencloud.Datastore // Open Cloud standard datastores
	Messaging     *opencloud.Messaging // Open Cloud messaging service
	Ledger        *ledger.Ledger       // Ban and warning ledgers
	LogManager    *telemetry.Manager   // Log management system
	metricsServer *metrics.Server      // Metrics and health endpoint
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, serviceType telemetry.ServiceType, logDir string) (*App, error) {
	// Load app configuration
	cfg, configDir, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(serviceType, logDir, &cfg.Common.Debug)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	logger.Info("Logging to session directory", zap.String("dir", logManager.GetCurrentSessionDir()))

	// Redis manager provides connection pools for sessions and caching
	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	// Initialize database with migration check
	db, err := checkAndRunMigrations(ctx, &cfg.Common.PostgreSQL, dbLogger)
	if err != nil {
		return nil, err
	}

	// RoAPI client is configured with middleware chain
	roAPI, err := client.GetRoAPIClient(
		&cfg.Common, configDir, redisManager, logger, serviceType.GetRequestTimeout(cfg),
	)
	if err != nil {
		return nil, err
	}

	// Open Cloud clients back the ledgers and game server notifications
	openCloud := opencloud.NewClient(
		cfg.Common.OpenCloud.APIKey,
		cfg.Common.OpenCloud.UniverseID,
		time.Duration(cfg.Common.OpenCloud.RequestTimeout)*time.Millisecond,
		logger,
	)
	datastore := opencloud.NewDatastore(openCloud, cfg.Common.OpenCloud.DatastoreURL)
	messaging := opencloud.NewMessaging(openCloud, cfg.Common.OpenCloud.MessagingURL)

	// Start metrics server if enabled
	var metricsSrv *metrics.Server

	if cfg.Common.Debug.MetricsPort != 0 {
		checks := map[string]metrics.HealthCheck{
			"database": db.Ping,
			"redis":    redisManager.Ping,
		}

		metricsSrv, err = metrics.Start(cfg.Common.Debug.MetricsPort, checks, logger)
		if err != nil {
			logger.Error("Failed to start metrics server", zap.Error(err))
		}
	}

	// Bundle all initialized components
	return &App{
		Config:        cfg,
		Logger:        logger,
		DBLogger:      dbLogger.Named("database"),
		DB:            db,
		RoAPI:         roAPI,
		RedisManager:  redisManager,
		Datastore:     datastore,
		Messaging:     messaging,
		Ledger:        ledger.New(datastore, &cfg.Common.Ledger, logger),
		LogManager:    logManager,
		metricsServer: metricsSrv,
	}, nil
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup(ctx context.Context) {
	// Shutdown metrics server if running
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			s.Logger.Error("Failed to shutdown metrics server", zap.Error(err))
		}
	}

	// Sync buffered logs before shutdown
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	// Close database connections
	if err := s.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	// Close Redis connections last as other components might need it during cleanup
	s.RedisManager.Close()
}

// checkAndRunMigrations runs database migrations if needed.
func checkAndRunMigrations(ctx context.Context, cfg *config.PostgreSQL, dbLogger *zap.Logger) (database.Client, error) {
	tempDB, err := database.NewConnection(ctx, cfg, dbLogger, false)
	if err != nil {
		return nil, err
	}

	migrator := migrate.NewMigrator(tempDB.DB(), migrations.Migrations)

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		tempDB.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	if len(ms.Unapplied()) == 0 {
		return tempDB, nil
	}

	log.Println("Database migrations are pending. Would you like to run them now? (y/N)")

	var response string

	_, _ = fmt.Scanln(&response)

	if response != "y" && response != "Y" {
		tempDB.Close()
		log.Fatalf("Closing program due to incomplete migrations")
	}

	tempDB.Close()

	return database.NewConnection(ctx, cfg, dbLogger, true)
}
