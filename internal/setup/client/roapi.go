package client

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jaxron/axonet/middleware/circuitbreaker"
	axonetRedis "github.com/jaxron/axonet/middleware/redis"
	"github.com/jaxron/axonet/middleware/retry"
	"github.com/jaxron/axonet/middleware/singleflight"
	"github.com/jaxron/axonet/pkg/client"
	"github.com/jaxron/axonet/pkg/client/middleware"
	"github.com/jaxron/roapi.go/pkg/api"
	"github.com/projectamerika/mayflower/internal/redis"
	"github.com/projectamerika/mayflower/internal/setup/config"
	"github.com/projectamerika/mayflower/internal/setup/telemetry/logger"
	"go.uber.org/zap"
)

// ResponseCacheTTL is how long Roblox web API responses are cached in Redis.
const ResponseCacheTTL = 10 * time.Minute

// GetRoAPIClient constructs a Roblox web API client with a middleware chain for
// reliability and caching.
func GetRoAPIClient(
	cfg *config.CommonConfig, configDir string, redisManager *redis.Manager,
	zapLogger *zap.Logger, requestTimeout time.Duration,
) (*api.API, error) {
	cookies, err := readCookies(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}

	redisClient, err := redisManager.Client(redis.Cache)
	if err != nil {
		return nil, err
	}

	// Build middleware chain - order matters!
	middlewares := []middleware.Middleware{
		circuitbreaker.New(
			cfg.CircuitBreaker.MaxRequests,
			time.Duration(cfg.CircuitBreaker.Interval)*time.Millisecond,
			time.Duration(cfg.CircuitBreaker.Timeout)*time.Millisecond,
		),
		retry.New(
			cfg.Retry.MaxRetries,
			time.Duration(cfg.Retry.Delay)*time.Millisecond,
			time.Duration(cfg.Retry.MaxDelay)*time.Millisecond,
		),
		singleflight.New(),
		axonetRedis.New(redisClient, ResponseCacheTTL),
	}

	zapLogger.Debug("Created Roblox API client",
		zap.Int("cookies", len(cookies)),
		zap.Duration("timeout", requestTimeout))

	return api.New(cookies,
		client.WithMarshalFunc(sonic.Marshal),
		client.WithUnmarshalFunc(sonic.Unmarshal),
		client.WithLogger(logger.New(zapLogger)),
		client.WithTimeout(requestTimeout),
		client.WithMiddleware(middlewares...),
	), nil
}

// readCookies loads optional authentication cookies from a file, one cookie per line.
// The public endpoints used by the bot work without any.
func readCookies(configDir string) ([]string, error) {
	cookiesFile := configDir + "/credentials/cookies"

	file, err := os.Open(cookiesFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to open cookie file: %w", err)
	}
	defer file.Close()

	var cookies []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cookie := strings.TrimSpace(scanner.Text())
		if cookie != "" {
			cookies = append(cookies, cookie)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading cookie file: %w", err)
	}

	return cookies, nil
}
