package moderation_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/projectamerika/mayflower/internal/ledger"
	"github.com/projectamerika/mayflower/internal/moderation"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newSessionStore(t *testing.T, timeout time.Duration) (*moderation.RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return moderation.NewRedisSessionStore(client, timeout, zaptest.NewLogger(t)), mr
}

func TestSessionKey(t *testing.T) {
	t.Parallel()

	key := moderation.SessionKey{OperatorID: 10, MessageID: 20}
	assert.Equal(t, "manage:10:20", key.String())
}

func TestRedisSessionStore(t *testing.T) {
	t.Parallel()

	t.Run("save and load", func(t *testing.T) {
		t.Parallel()

		store, mr := newSessionStore(t, 10*time.Minute)
		ctx := t.Context()

		session := &moderation.Session{
			OperatorID: 10,
			MessageID:  20,
			View: moderation.View{
				UserID:          42,
				Username:        "Foo",
				Ban:             &ledger.BanRecord{Reason: "Exploiting"},
				Warnings:        ledger.WarningList{"a", "b"},
				WarningsVersion: "7",
			},
			OpenedAt: time.Now().UTC().Truncate(time.Second),
			LastUsed: time.Now().UTC().Truncate(time.Second),
		}
		require.NoError(t, store.Save(ctx, session))
		assert.True(t, mr.Exists("manage:10:20"))
		assert.Equal(t, 10*time.Minute, mr.TTL("manage:10:20"))

		loaded, err := store.Load(ctx, session.Key())
		require.NoError(t, err)
		assert.Equal(t, session.View, loaded.View)
		assert.Equal(t, session.OperatorID, loaded.OperatorID)
		assert.True(t, session.OpenedAt.Equal(loaded.OpenedAt))
	})

	t.Run("missing session is closed", func(t *testing.T) {
		t.Parallel()

		store, _ := newSessionStore(t, time.Minute)

		_, err := store.Load(t.Context(), moderation.SessionKey{OperatorID: 1, MessageID: 2})
		require.ErrorIs(t, err, moderation.ErrSessionClosed)
	})

	t.Run("expires after idle timeout", func(t *testing.T) {
		t.Parallel()

		store, mr := newSessionStore(t, time.Minute)
		ctx := t.Context()

		session := &moderation.Session{OperatorID: 1, MessageID: 2}
		require.NoError(t, store.Save(ctx, session))

		mr.FastForward(30 * time.Second)
		require.NoError(t, store.Save(ctx, session))

		mr.FastForward(45 * time.Second)
		_, err := store.Load(ctx, session.Key())
		require.NoError(t, err, "saving again restarts the idle timer")

		mr.FastForward(time.Minute)
		_, err = store.Load(ctx, session.Key())
		require.ErrorIs(t, err, moderation.ErrSessionClosed)
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()

		store, _ := newSessionStore(t, time.Minute)
		ctx := t.Context()

		session := &moderation.Session{OperatorID: 1, MessageID: 2}
		require.NoError(t, store.Save(ctx, session))
		require.NoError(t, store.Delete(ctx, session.Key()))

		_, err := store.Load(ctx, session.Key())
		require.ErrorIs(t, err, moderation.ErrSessionClosed)
	})

	t.Run("corrupt data", func(t *testing.T) {
		t.Parallel()

		store, mr := newSessionStore(t, time.Minute)
		require.NoError(t, mr.Set("manage:1:2", "{not json"))

		_, err := store.Load(t.Context(), moderation.SessionKey{OperatorID: 1, MessageID: 2})
		require.ErrorIs(t, err, moderation.ErrFailedToParseSession)
	})
}
