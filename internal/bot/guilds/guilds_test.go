package guilds_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/projectamerika/mayflower/internal/bot/guilds"
	"github.com/projectamerika/mayflower/internal/database/types"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errMissingPermissions = errors.New("missing permissions")

type call struct {
	action  string
	guildID snowflake.ID
	userID  snowflake.ID
	reason  string
}

type fakeBanner struct {
	mu     sync.Mutex
	calls  []call
	failOn map[snowflake.ID]bool
}

func (b *fakeBanner) record(action string, guildID, userID snowflake.ID, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, call{action: action, guildID: guildID, userID: userID, reason: reason})
	if b.failOn[guildID] {
		return errMissingPermissions
	}

	return nil
}

func (b *fakeBanner) Ban(_ context.Context, guildID, userID snowflake.ID, reason string) error {
	return b.record("ban", guildID, userID, reason)
}

func (b *fakeBanner) Unban(_ context.Context, guildID, userID snowflake.ID, reason string) error {
	return b.record("unban", guildID, userID, reason)
}

type fakeMessenger struct {
	mu     sync.Mutex
	sent   []snowflake.ID
	closed map[snowflake.ID]bool
}

func (m *fakeMessenger) SendDirect(_ context.Context, userID snowflake.ID, message discord.MessageCreate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed[userID] {
		return errMissingPermissions
	}

	if len(message.Embeds) != 1 {
		return errors.New("expected one embed")
	}

	m.sent = append(m.sent, userID)

	return nil
}

func newRedis(t *testing.T) (*miniredis.Miniredis, rueidis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return mr, client
}

func TestTracker(t *testing.T) {
	t.Parallel()

	tracker := guilds.NewTracker()
	tracker.Add(30)
	tracker.Add(10)
	tracker.Add(20)
	tracker.Add(10)

	assert.Equal(t, 3, tracker.Count())
	assert.Equal(t, []snowflake.ID{10, 20, 30}, tracker.IDs())

	tracker.Remove(20)
	tracker.Remove(99)

	assert.Equal(t, []snowflake.ID{10, 30}, tracker.IDs())
}

func TestExecutorRun(t *testing.T) {
	t.Parallel()

	t.Run("bans in every guild", func(t *testing.T) {
		t.Parallel()

		banner := &fakeBanner{failOn: map[snowflake.ID]bool{2: true}}
		executor := guilds.NewExecutor(banner, 2, 0, zaptest.NewLogger(t))

		result := executor.Run(t.Context(), types.GuildBanActionBan, []snowflake.ID{3, 1, 2}, 42, "spam | mod")

		assert.Equal(t, []snowflake.ID{1, 3}, result.Succeeded)
		assert.Equal(t, []snowflake.ID{2}, result.Failed)
		require.Len(t, banner.calls, 3)

		for _, c := range banner.calls {
			assert.Equal(t, "ban", c.action)
			assert.Equal(t, snowflake.ID(42), c.userID)
			assert.Equal(t, "spam | mod", c.reason)
		}
	})

	t.Run("unban uses unban calls", func(t *testing.T) {
		t.Parallel()

		banner := &fakeBanner{}
		executor := guilds.NewExecutor(banner, 1, 0, zaptest.NewLogger(t))

		result := executor.Run(t.Context(), types.GuildBanActionUnban, []snowflake.ID{1}, 42, "appeal")

		assert.Equal(t, []snowflake.ID{1}, result.Succeeded)
		require.Len(t, banner.calls, 1)
		assert.Equal(t, "unban", banner.calls[0].action)
	})

	t.Run("long reasons are truncated", func(t *testing.T) {
		t.Parallel()

		banner := &fakeBanner{}
		executor := guilds.NewExecutor(banner, 1, 0, zaptest.NewLogger(t))

		long := make([]byte, 600)
		for i := range long {
			long[i] = 'a'
		}

		executor.Run(t.Context(), types.GuildBanActionBan, []snowflake.ID{1}, 42, string(long))

		require.Len(t, banner.calls, 1)
		assert.Len(t, banner.calls[0].reason, guilds.MaxAuditReasonLength)
	})

	t.Run("cancelled context fails remaining guilds", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		banner := &fakeBanner{}
		executor := guilds.NewExecutor(banner, 1, time.Second, zaptest.NewLogger(t))

		result := executor.Run(ctx, types.GuildBanActionBan, []snowflake.ID{1, 2}, 42, "spam")

		assert.Empty(t, result.Succeeded)
		assert.Equal(t, []snowflake.ID{1, 2}, result.Failed)
		assert.Empty(t, banner.calls)
	})
}

func TestResultLog(t *testing.T) {
	t.Parallel()

	result := &guilds.Result{Succeeded: []snowflake.ID{1, 3}, Failed: []snowflake.ID{2}}
	log := result.Log(7, 42, types.GuildBanActionBan, "spam")

	assert.Equal(t, uint64(7), log.OperatorID)
	assert.Equal(t, uint64(42), log.TargetID)
	assert.Equal(t, types.GuildBanActionBan, log.Action)
	assert.Equal(t, 2, log.SucceededCount)
	assert.Equal(t, 1, log.FailedCount)
	assert.Equal(t, []uint64{2}, log.FailedGuildIDs)
	assert.False(t, log.Timestamp.IsZero())
}

func TestPendingStore(t *testing.T) {
	t.Parallel()

	mr, client := newRedis(t)

	store := guilds.NewPendingStore(client, time.Minute)
	ctx := t.Context()

	pending := &guilds.Pending{
		Action:       types.GuildBanActionBan,
		OperatorID:   7,
		OperatorName: "mod",
		TargetID:     42,
		TargetName:   "spammer",
		Reason:       "spam",
	}
	require.NoError(t, store.Put(ctx, 100, pending))
	assert.Equal(t, time.Minute, mr.TTL("guildban:7:100"))

	_, err := store.Claim(ctx, 8, 100)
	require.ErrorIs(t, err, guilds.ErrNoPending)

	claimed, err := store.Claim(ctx, 7, 100)
	require.NoError(t, err)
	assert.Equal(t, pending, claimed)
	assert.Equal(t, "spam | mod", claimed.AuditReason())

	_, err = store.Claim(ctx, 7, 100)
	require.ErrorIs(t, err, guilds.ErrNoPending)

	require.NoError(t, store.Put(ctx, 101, pending))
	mr.FastForward(2 * time.Minute)

	_, err = store.Claim(ctx, 7, 101)
	require.ErrorIs(t, err, guilds.ErrNoPending)
}

func TestBroadcasterSend(t *testing.T) {
	t.Parallel()

	t.Run("messages every member", func(t *testing.T) {
		t.Parallel()

		messenger := &fakeMessenger{closed: map[snowflake.ID]bool{20: true}}
		broadcaster := guilds.NewBroadcaster(messenger, 2, 0, zaptest.NewLogger(t))
		alert := &guilds.Alert{Title: "Training", Body: "Tonight at 8"}

		result := broadcaster.Send(t.Context(), []snowflake.ID{30, 10, 20}, alert.Message(0x5865F2))

		assert.Equal(t, []snowflake.ID{10, 30}, result.Succeeded)
		assert.Equal(t, []snowflake.ID{20}, result.Failed)
		assert.ElementsMatch(t, []snowflake.ID{10, 30}, messenger.sent)
	})

	t.Run("pauses between messages", func(t *testing.T) {
		t.Parallel()

		messenger := &fakeMessenger{}
		broadcaster := guilds.NewBroadcaster(messenger, 1, 20*time.Millisecond, zaptest.NewLogger(t))

		start := time.Now()
		result := broadcaster.Send(t.Context(), []snowflake.ID{1, 2, 3}, (&guilds.Alert{Title: "a", Body: "b"}).Message(0))

		assert.Len(t, result.Succeeded, 3)
		assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	})

	t.Run("estimate", func(t *testing.T) {
		t.Parallel()

		one := guilds.NewBroadcaster(&fakeMessenger{}, 1, 2*time.Second, zaptest.NewLogger(t))
		assert.Equal(t, 20*time.Second, one.Estimate(10))

		two := guilds.NewBroadcaster(&fakeMessenger{}, 2, 2*time.Second, zaptest.NewLogger(t))
		assert.Equal(t, 10*time.Second, two.Estimate(10))
	})
}

func TestAlertValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, (&guilds.Alert{Title: strings.Repeat("t", 256), Body: strings.Repeat("b", 4000)}).Validate())
	require.Error(t, (&guilds.Alert{Title: strings.Repeat("t", 257), Body: "b"}).Validate())
	require.Error(t, (&guilds.Alert{Title: "t", Body: strings.Repeat("b", 4001)}).Validate())
	require.Error(t, (&guilds.Alert{Title: "", Body: "b"}).Validate())

	message := (&guilds.Alert{Title: "Training", Body: "Tonight"}).Message(0x5865F2)
	require.Len(t, message.Embeds, 1)
	assert.Equal(t, "Training", message.Embeds[0].Title)
	assert.Equal(t, "Tonight", message.Embeds[0].Description)
}

func TestOperationLock(t *testing.T) {
	t.Parallel()

	mr, client := newRedis(t)
	ctx := t.Context()

	first := guilds.NewOperationLock(client, guilds.AlertLockKey, "instance-a")
	second := guilds.NewOperationLock(client, guilds.AlertLockKey, "instance-b")

	held, err := first.Held(ctx)
	require.NoError(t, err)
	assert.False(t, held)

	acquired, err := first.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.Equal(t, time.Minute, mr.TTL(guilds.AlertLockKey))

	acquired, err = second.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired)

	// Only the owner can release it
	require.NoError(t, second.Release(ctx))
	held, err = second.Held(ctx)
	require.NoError(t, err)
	assert.True(t, held)

	require.NoError(t, first.Release(ctx))
	held, err = first.Held(ctx)
	require.NoError(t, err)
	assert.False(t, held)

	// An abandoned lock expires on its own
	acquired, err = second.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
	mr.FastForward(2 * time.Minute)

	acquired, err = first.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}
