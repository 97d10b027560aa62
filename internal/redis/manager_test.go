package redis_test

import (
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/projectamerika/mayflower/internal/redis"
	"github.com/projectamerika/mayflower/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestManager(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	manager := redis.NewManager(&config.Redis{Host: mr.Host(), Port: port, DisableCache: true}, zaptest.NewLogger(t))
	defer manager.Close()

	first, err := manager.Client(redis.Sessions)
	require.NoError(t, err)

	second, err := manager.Client(redis.Sessions)
	require.NoError(t, err)
	assert.Same(t, first, second)

	cache, err := manager.Client(redis.Cache)
	require.NoError(t, err)
	assert.NotSame(t, first, cache)

	require.NoError(t, manager.Ping(t.Context()))
}

func TestDatabaseString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "cache", redis.Cache.String())
	assert.Equal(t, "sessions", redis.Sessions.String())
	assert.Equal(t, "db7", redis.Database(7).String())
}
