package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrConfigInvalid         = errors.New("config file failed validation")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v1.0.0"

// Current version of the config file.
const (
	CurrentCommonVersion = 1
	CurrentBotVersion    = 1
)

// Consistency modes for ledger writes.
const (
	ConsistencyLastWriteWins = "last_write_wins"
	ConsistencyOptimistic    = "optimistic"
)

// Environment variables that override secrets from the config files.
const (
	EnvDiscordToken    = "TOKEN"
	EnvOpenCloudAPIKey = "OPENCLOUD_API_KEY"
)

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig `validate:"required"`
	Bot    BotConfig    `validate:"required"`
}

// CommonConfig contains configuration shared between the bot and the CLI tools.
type CommonConfig struct {
	// Version of the common config.
	Version        int            `koanf:"version"`
	Debug          Debug          `koanf:"debug"`
	CircuitBreaker CircuitBreaker `koanf:"circuit_breaker"`
	Retry          Retry          `koanf:"retry"`
	PostgreSQL     PostgreSQL     `koanf:"postgresql"`
	Redis          Redis          `koanf:"redis"`
	OpenCloud      OpenCloud      `koanf:"opencloud"`
	Ledger         Ledger         `koanf:"ledger"`
	Roblox         Roblox         `koanf:"roblox"`
}

// BotConfig contains Discord bot specific configuration.
type BotConfig struct {
	// Version of the bot config.
	Version int `koanf:"version"`
	// Request timeout in milliseconds for Roblox web API calls.
	RequestTimeout int `koanf:"request_timeout" validate:"gte=0"`
	// Discord configuration.
	Discord Discord `koanf:"discord"`
	// Moderation session configuration.
	Moderation Moderation `koanf:"moderation"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep" validate:"gte=1"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines" validate:"gte=1"`
	// Port for the metrics and health endpoint (0 disables it).
	MetricsPort int `koanf:"metrics_port" validate:"gte=0,lte=65535"`
}

// CircuitBreaker contains circuit breaker configuration.
type CircuitBreaker struct {
	// Maximum number of requests allowed to pass through when the circuit is half-open.
	MaxRequests uint32 `koanf:"max_requests"`
	// The cyclic period of the closed state for the circuit breaker to clear the internal counts.
	Interval int `koanf:"interval"`
	// The period of the open state after which the state of the circuit breaker becomes half-open.
	Timeout int `koanf:"timeout"`
}

// Retry contains retry configuration.
type Retry struct {
	// Maximum retry attempts.
	MaxRetries uint64 `koanf:"max_retries"`
	// Initial retry delay in milliseconds.
	Delay int `koanf:"delay"`
	// Maximum retry delay in milliseconds.
	MaxDelay int `koanf:"max_delay"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host" validate:"required"`
	// Database port.
	Port int `koanf:"port" validate:"gt=0"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name" validate:"required"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host" validate:"required"`
	// Redis port.
	Port int `koanf:"port" validate:"gt=0"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
	// Disable client-side caching for servers without CLIENT TRACKING.
	DisableCache bool `koanf:"disable_cache"`
}

// OpenCloud contains Roblox Open Cloud configuration.
type OpenCloud struct {
	// API key with datastore and messaging scopes.
	APIKey string `koanf:"api_key" validate:"required"`
	// Universe that owns the datastores and topics.
	UniverseID uint64 `koanf:"universe_id" validate:"required"`
	// Base URL of the standard datastores API.
	DatastoreURL string `koanf:"datastore_url" validate:"required,url"`
	// Base URL of the messaging service API.
	MessagingURL string `koanf:"messaging_url" validate:"required,url"`
	// Request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout" validate:"gte=0"`
}

// Ledger contains moderation ledger configuration.
type Ledger struct {
	// Datastore holding ban records.
	BanNamespace string `koanf:"ban_namespace" validate:"required"`
	// Datastore holding warning lists.
	WarningNamespace string `koanf:"warning_namespace" validate:"required"`
	// Write consistency (last_write_wins or optimistic).
	Consistency string `koanf:"consistency" validate:"oneof=last_write_wins optimistic"`
	// Attempts to re-apply a warning change after a version conflict.
	MaxConflictRetries uint64 `koanf:"max_conflict_retries"`
	// Topic that carries kick events to game servers.
	KickTopic string `koanf:"kick_topic" validate:"required"`
	// Topic that carries warning notifications to game servers.
	WarningTopic string `koanf:"warning_topic" validate:"required"`
}

// Roblox contains Roblox web API configuration.
type Roblox struct {
	// Base URL of the users API used for username lookups.
	UsersURL string `koanf:"users_url" validate:"required,url"`
}

// Discord contains Discord bot configuration.
type Discord struct {
	// Discord bot token for authentication.
	Token string `koanf:"token" validate:"required"`
}

// Moderation contains interactive moderation session configuration.
type Moderation struct {
	// Seconds a manage session may sit idle before it expires.
	SessionTimeout int `koanf:"session_timeout" validate:"gt=0"`
	// Seconds a manage session may stay open in total, however busy it is.
	SessionLifetime int `koanf:"session_lifetime" validate:"gt=0"`
	// Seconds the operator has to submit a reason modal.
	ModalTimeout int `koanf:"modal_timeout" validate:"gt=0"`
	// Maximum length of a moderation reason.
	MaxReasonLength int `koanf:"max_reason_length" validate:"gt=0,lte=4000"`
	// Delay in milliseconds between guilds during cross-server bans.
	UltraBanSpacing int `koanf:"ultra_ban_spacing" validate:"gte=0"`
	// Maximum guilds processed concurrently during cross-server bans.
	UltraBanWorkers int `koanf:"ultra_ban_workers" validate:"gt=0"`
	// Seconds the operator has to submit the alert modal.
	AlertModalTimeout int `koanf:"alert_modal_timeout" validate:"gt=0"`
	// Delay in milliseconds between direct messages during alerts.
	AlertSpacing int `koanf:"alert_spacing" validate:"gte=0"`
	// Maximum direct messages sent concurrently during alerts.
	AlertWorkers int `koanf:"alert_workers" validate:"gt=0"`
	// Tell the operator when a ledger write fails instead of degrading silently.
	SurfaceFailures bool `koanf:"surface_failures"`
}

// configFile binds a config file name to the section it populates.
type configFile struct {
	name     string
	defaults map[string]any
	target   any
}

// LoadConfig loads the configuration from the standard search paths.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	// .env is optional and only fills secrets
	_ = godotenv.Load()

	return LoadFromPaths([]string{
		".mayflower",
		homeDir + "/.mayflower/config",
		"/etc/mayflower/config",
		"/app/config",
		"config",
		".",
	})
}

// LoadFromPaths loads common.toml and bot.toml from the first path that
// contains each of them, applies environment overrides and validates the result.
func LoadFromPaths(configPaths []string) (*Config, string, error) {
	var (
		config         Config
		usedConfigPath string
	)

	files := []configFile{
		{name: "common", defaults: commonDefaults(), target: &config.Common},
		{name: "bot", defaults: botDefaults(), target: &config.Bot},
	}

	for _, cf := range files {
		k := koanf.New(".")
		for key, value := range cf.defaults {
			if err := k.Set(key, value); err != nil {
				return nil, "", fmt.Errorf("failed to set default %s: %w", key, err)
			}
		}

		configLoaded := false

		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, cf.name)
			if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
				configLoaded = true

				if usedConfigPath == "" {
					usedConfigPath = path
				}

				break
			}
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, cf.name)
		}

		if err := k.Unmarshal("", cf.target); err != nil {
			return nil, "", fmt.Errorf("error unmarshaling %s.toml: %w", cf.name, err)
		}
	}

	// Check versions for each config file
	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("bot", config.Bot.Version, CurrentBotVersion); err != nil {
		return nil, "", err
	}

	applyEnvOverrides(&config)

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&config); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}

	return &config, usedConfigPath, nil
}

// applyEnvOverrides replaces secrets with values from the environment when set.
func applyEnvOverrides(config *Config) {
	if token := os.Getenv(EnvDiscordToken); token != "" {
		config.Bot.Discord.Token = token
	}

	if apiKey := os.Getenv(EnvOpenCloudAPIKey); apiKey != "" {
		config.Common.OpenCloud.APIKey = apiKey
	}
}

func commonDefaults() map[string]any {
	return map[string]any{
		"debug.log_level":              "info",
		"debug.max_logs_to_keep":       10,
		"debug.max_log_lines":          100000,
		"circuit_breaker.max_requests": 5,
		"circuit_breaker.interval":     60000,
		"circuit_breaker.timeout":      30000,
		"retry.max_retries":            3,
		"retry.delay":                  500,
		"retry.max_delay":              5000,
		"postgresql.port":              5432,
		"postgresql.max_open_conns":    10,
		"postgresql.max_idle_conns":    5,
		"postgresql.max_lifetime":      30,
		"postgresql.max_idle_time":     10,
		"redis.port":                   6379,
		"opencloud.datastore_url":      "https://apis.roblox.com/datastores/v1",
		"opencloud.messaging_url":      "https://apis.roblox.com/messaging-service/v1",
		"opencloud.request_timeout":    10000,
		"ledger.ban_namespace":         "Bans",
		"ledger.warning_namespace":     "Warnings",
		"ledger.consistency":           ConsistencyLastWriteWins,
		"ledger.max_conflict_retries":  3,
		"ledger.kick_topic":            "Discord",
		"ledger.warning_topic":         "DiscordWarning",
		"roblox.users_url":             "https://users.roblox.com",
	}
}

func botDefaults() map[string]any {
	return map[string]any{
		"request_timeout":                5000,
		"moderation.session_timeout":     600,
		"moderation.session_lifetime":    600,
		"moderation.modal_timeout":       120,
		"moderation.max_reason_length":   512,
		"moderation.ultra_ban_spacing":   2000,
		"moderation.ultra_ban_workers":   4,
		"moderation.alert_modal_timeout": 300,
		"moderation.alert_spacing":       2000,
		"moderation.alert_workers":       1,
	}
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/projectamerika/mayflower/tree/%s/config/%s.toml",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
			RepositoryVersion,
			name,
		)
	}

	return nil
}
