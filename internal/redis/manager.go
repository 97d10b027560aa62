package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/projectamerika/mayflower/internal/setup/config"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// Database is a logical Redis database. Each concern gets its own so a flush
// of the API cache never drops sessions or locks.
type Database int

const (
	// Cache holds Roblox web API responses.
	Cache Database = 0
	// Sessions holds manage sessions, cross-server ban prompts and the alert lock.
	Sessions Database = 1
)

func (d Database) String() string {
	switch d {
	case Cache:
		return "cache"
	case Sessions:
		return "sessions"
	default:
		return fmt.Sprintf("db%d", int(d))
	}
}

// Manager opens one rueidis client per database on first use and shares it
// afterwards.
type Manager struct {
	cfg    *config.Redis
	logger *zap.Logger

	mu   sync.Mutex
	open map[Database]rueidis.Client
}

// NewManager creates a Manager. No connection is made until Client is called.
func NewManager(cfg *config.Redis, logger *zap.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: logger.Named("redis"),
		open:   make(map[Database]rueidis.Client),
	}
}

// Client returns the client for db, connecting if needed.
func (m *Manager) Client(db Database) (rueidis.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client, ok := m.open[db]; ok {
		return client, nil
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)},
		Username:     m.cfg.Username,
		Password:     m.cfg.Password,
		SelectDB:     int(db),
		ClientName:   "mayflower-" + db.String(),
		DisableCache: m.cfg.DisableCache,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis %s: %w", db, err)
	}

	m.open[db] = client
	m.logger.Info("Connected to Redis", zap.Stringer("db", db))

	return client, nil
}

// Ping checks every open client and reports all failures.
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error

	for db, client := range m.open {
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			errs = append(errs, fmt.Errorf("redis %s: %w", db, err))
		}
	}

	return errors.Join(errs...)
}

// Close disconnects every open client.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for db, client := range m.open {
		client.Close()
		m.logger.Debug("Disconnected from Redis", zap.Stringer("db", db))
	}

	clear(m.open)
}
