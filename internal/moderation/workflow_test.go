package moderation_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/projectamerika/mayflower/internal/ledger"
	"github.com/projectamerika/mayflower/internal/ledger/ledgertest"
	"github.com/projectamerika/mayflower/internal/moderation"
	"github.com/projectamerika/mayflower/internal/opencloud"
	"github.com/projectamerika/mayflower/internal/roblox/fetcher"
	"github.com/projectamerika/mayflower/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	operatorID = 1000
	messageID  = 2000
)

var (
	errUnavailable    = errors.New("service unavailable")
	errPublishRefused = errors.New("publish refused")
)

type fakeDirectory struct {
	users   map[string]*fetcher.User
	userErr error
}

func (d *fakeDirectory) ResolveUsername(_ context.Context, username string) (uint64, error) {
	user, ok := d.users[strings.ToLower(username)]
	if !ok {
		return 0, fetcher.ErrUserNotFound
	}

	return user.ID, nil
}

func (d *fakeDirectory) GetUser(_ context.Context, userID uint64) (*fetcher.User, error) {
	if d.userErr != nil {
		return nil, d.userErr
	}

	for _, user := range d.users {
		if user.ID == userID {
			return user, nil
		}
	}

	return nil, fetcher.ErrUserNotFound
}

type fakeHeadshots struct {
	err error
}

func (h *fakeHeadshots) GetHeadshot(_ context.Context, _ uint64) (string, error) {
	if h.err != nil {
		return "", h.err
	}

	return "https://tr.rbxcdn.com/headshot.png", nil
}

type published struct {
	topic   string
	payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	p.events = append(p.events, published{topic: topic, payload: payload})

	return nil
}

func (p *recordingPublisher) Events() []published {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]published(nil), p.events...)
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []moderation.AuditEntry
}

func (a *recordingAudit) Record(_ context.Context, entry *moderation.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries = append(a.entries, *entry)

	return nil
}

func (a *recordingAudit) Actions() []moderation.Action {
	a.mu.Lock()
	defer a.mu.Unlock()

	actions := make([]moderation.Action, len(a.entries))
	for i, entry := range a.entries {
		actions[i] = entry.Action
	}

	return actions
}

type fixture struct {
	workflow  *moderation.Workflow
	store     *ledgertest.MemoryStore
	publisher *recordingPublisher
	audit     *recordingAudit
	headshots *fakeHeadshots
	directory *fakeDirectory
	sessions  *moderation.RedisSessionStore
}

func newFixture(t *testing.T, consistency string) *fixture {
	t.Helper()

	ledgerConfig := &config.Ledger{
		BanNamespace:       "Bans",
		WarningNamespace:   "Warnings",
		Consistency:        consistency,
		MaxConflictRetries: 3,
		KickTopic:          "Discord",
		WarningTopic:       "DiscordWarning",
	}
	moderationConfig := &config.Moderation{
		SessionTimeout:  600,
		SessionLifetime: 600,
		ModalTimeout:    120,
		MaxReasonLength: 512,
	}

	logger := zaptest.NewLogger(t)
	sessions, _ := newSessionStore(t, 10*time.Minute)

	f := &fixture{
		store:     ledgertest.NewMemoryStore(),
		publisher: &recordingPublisher{},
		audit:     &recordingAudit{},
		headshots: &fakeHeadshots{},
		directory: &fakeDirectory{users: map[string]*fetcher.User{
			"foo": {ID: 42, Name: "Foo", DisplayName: "Foo"},
		}},
		sessions: sessions,
	}

	f.workflow = moderation.NewWorkflow(
		f.directory,
		f.headshots,
		ledger.New(f.store, ledgerConfig, logger),
		f.publisher,
		f.sessions,
		f.audit,
		ledgerConfig,
		moderationConfig,
		logger,
	)

	return f
}

// start opens a session for Foo owned by operator on message.
func (f *fixture) start(t *testing.T, operator, message uint64) moderation.SessionKey {
	t.Helper()

	view, err := f.workflow.Open(t.Context(), "Foo")
	require.NoError(t, err)

	session, err := f.workflow.Start(t.Context(), operator, message, view)
	require.NoError(t, err)

	return session.Key()
}

func (f *fixture) warnings(t *testing.T) ledger.WarningList {
	t.Helper()

	var list ledger.WarningList
	require.True(t, f.store.Raw("Warnings", "user_42", &list))

	return list
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("reads each ledger once", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, config.ConsistencyLastWriteWins)

		view, err := f.workflow.Open(t.Context(), "Foo")
		require.NoError(t, err)

		assert.Equal(t, 1, f.store.Calls("get", "Bans"))
		assert.Equal(t, 1, f.store.Calls("get", "Warnings"))
		assert.Equal(t, uint64(42), view.UserID)
		assert.Equal(t, "Foo", view.Username)
		assert.Equal(t, "https://tr.rbxcdn.com/headshot.png", view.ThumbnailURL)
		assert.Equal(t, "No", moderation.Render(*view).Banned)
	})

	t.Run("unknown username", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, config.ConsistencyLastWriteWins)

		_, err := f.workflow.Open(t.Context(), "Nobody")
		require.ErrorIs(t, err, moderation.ErrUserNotFound)
		assert.Zero(t, f.store.Calls("get", "Bans"))
	})

	t.Run("lookup outage is not a missing user", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, config.ConsistencyLastWriteWins)
		f.directory.userErr = fmt.Errorf("%w: circuit open", fetcher.ErrLookupFailed)

		_, err := f.workflow.Open(t.Context(), "Foo")
		require.ErrorIs(t, err, fetcher.ErrLookupFailed)
		assert.NotErrorIs(t, err, moderation.ErrUserNotFound)
	})

	t.Run("missing headshot", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, config.ConsistencyLastWriteWins)
		f.headshots.err = fetcher.ErrThumbnailUnavailable

		view, err := f.workflow.Open(t.Context(), "Foo")
		require.NoError(t, err)
		assert.Empty(t, view.ThumbnailURL)
	})

	t.Run("unreadable ledger shows as empty", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, config.ConsistencyLastWriteWins)
		f.store.Seed("Warnings", "user_42", ledger.WarningList{"a"})
		f.store.FailNext("get", "Bans", errUnavailable)

		view, err := f.workflow.Open(t.Context(), "Foo")
		require.NoError(t, err)
		assert.Nil(t, view.Ban)
		assert.Equal(t, ledger.WarningList{"a"}, view.Warnings)
	})
}

func TestBanScenario(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.ConsistencyLastWriteWins)
	key := f.start(t, operatorID, messageID)

	result, err := f.workflow.Ban(t.Context(), key, operatorID, "Exploiting")
	require.NoError(t, err)
	assert.Equal(t, moderation.OutcomeApplied, result.Outcome)
	require.NoError(t, result.PublishErr)

	var record ledger.BanRecord
	require.True(t, f.store.Raw("Bans", "user_42", &record))
	assert.Equal(t, "Exploiting", record.Reason)

	assert.Equal(t, "Yes - Exploiting", moderation.Render(result.View).Banned)

	events := f.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "Discord", events[0].topic)
	assert.Equal(t, moderation.KickEvent{Action: "kick", Reason: "Banned.", UserID: 42}, events[0].payload)

	stored, err := f.workflow.View(t.Context(), key, operatorID)
	require.NoError(t, err)
	assert.Equal(t, result.View, *stored)
	assert.Equal(t, []moderation.Action{moderation.ActionBan}, f.audit.Actions())
}

func TestBanUnbanRoundTrip(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.ConsistencyLastWriteWins)
	key := f.start(t, operatorID, messageID)
	ctx := t.Context()

	_, err := f.workflow.Ban(ctx, key, operatorID, "Exploiting")
	require.NoError(t, err)

	result, err := f.workflow.Unban(ctx, key, operatorID)
	require.NoError(t, err)
	assert.Equal(t, moderation.OutcomeApplied, result.Outcome)
	assert.Nil(t, result.View.Ban)

	fresh, err := f.workflow.Open(ctx, "Foo")
	require.NoError(t, err)
	assert.Nil(t, fresh.Ban)
}

func TestKick(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.ConsistencyLastWriteWins)
	key := f.start(t, operatorID, messageID)

	result, err := f.workflow.Kick(t.Context(), key, operatorID, "  Spamming  ")
	require.NoError(t, err)
	assert.Equal(t, moderation.OutcomeApplied, result.Outcome)

	events := f.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, moderation.KickEvent{Action: "kick", Reason: "Spamming", UserID: 42}, events[0].payload)

	assert.Zero(t, f.store.Calls("put", "Bans"))
	assert.Zero(t, f.store.Calls("put", "Warnings"))
	assert.Equal(t, []moderation.Action{moderation.ActionKick}, f.audit.Actions())
}

func TestUndeliveredKickIsNotAudited(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.ConsistencyLastWriteWins)
	key := f.start(t, operatorID, messageID)
	f.publisher.err = fmt.Errorf("%w: 1100 bytes", opencloud.ErrMessageTooLarge)

	result, err := f.workflow.Kick(t.Context(), key, operatorID, "Spamming")
	require.NoError(t, err)
	require.ErrorIs(t, result.PublishErr, opencloud.ErrMessageTooLarge)
	assert.Empty(t, f.audit.Actions())
}

func TestWarningRoundTrip(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.ConsistencyLastWriteWins)
	key := f.start(t, operatorID, messageID)
	ctx := t.Context()

	_, err := f.workflow.AddWarning(ctx, key, operatorID, "a")
	require.NoError(t, err)
	_, err = f.workflow.AddWarning(ctx, key, operatorID, "b")
	require.NoError(t, err)

	result, err := f.workflow.RemoveWarning(ctx, key, operatorID, 0)
	require.NoError(t, err)
	assert.Equal(t, moderation.OutcomeApplied, result.Outcome)
	assert.Equal(t, ledger.WarningList{"b"}, result.View.Warnings)
	assert.Equal(t, ledger.WarningList{"b"}, f.warnings(t))

	events := f.publisher.Events()
	require.Len(t, events, 3)

	for _, event := range events {
		assert.Equal(t, "DiscordWarning", event.topic)
		assert.Equal(t, moderation.WarningEvent{UserID: 42}, event.payload)
	}
}

func TestFailedWriteKeepsView(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.ConsistencyLastWriteWins)
	key := f.start(t, operatorID, messageID)
	ctx := t.Context()

	_, err := f.workflow.AddWarning(ctx, key, operatorID, "a")
	require.NoError(t, err)

	before, err := f.workflow.View(ctx, key, operatorID)
	require.NoError(t, err)

	f.store.FailNext("put", "Warnings", errUnavailable)

	result, err := f.workflow.AddWarning(ctx, key, operatorID, "b")
	require.NoError(t, err)
	assert.Equal(t, moderation.OutcomeStoreFailed, result.Outcome)
	require.ErrorIs(t, result.Err, errUnavailable)
	assert.Equal(t, *before, result.View)
	assert.Equal(t, moderation.Render(*before), moderation.Render(result.View))

	after, err := f.workflow.View(ctx, key, operatorID)
	require.NoError(t, err)
	assert.Equal(t, *before, *after)

	f.store.FailNext("put", "Bans", errUnavailable)

	result, err = f.workflow.Ban(ctx, key, operatorID, "Exploiting")
	require.NoError(t, err)
	assert.Equal(t, moderation.OutcomeStoreFailed, result.Outcome)
	assert.Nil(t, result.View.Ban)
	assert.False(t, f.store.Raw("Bans", "user_42", &ledger.BanRecord{}))

	// Game servers are told about every attempt, written or not
	events := f.publisher.Events()
	require.Len(t, events, 3)
	assert.Equal(t, published{topic: "DiscordWarning", payload: moderation.WarningEvent{UserID: 42}}, events[0])
	assert.Equal(t, published{topic: "DiscordWarning", payload: moderation.WarningEvent{UserID: 42}}, events[1])
	assert.Equal(t, published{
		topic:   "Discord",
		payload: moderation.KickEvent{Action: "kick", Reason: "Banned.", UserID: 42},
	}, events[2])

	// Only the change that took effect is audited
	assert.Equal(t, []moderation.Action{moderation.ActionAddWarning}, f.audit.Actions())
}

func TestSessionLifetime(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.ConsistencyLastWriteWins)
	key := f.start(t, operatorID, messageID)
	ctx := t.Context()

	// A session kept busy past its lifetime still ends
	session, err := f.sessions.Load(ctx, key)
	require.NoError(t, err)
	session.OpenedAt = time.Now().Add(-11 * time.Minute)
	require.NoError(t, f.sessions.Save(ctx, session))

	_, err = f.workflow.Ban(ctx, key, operatorID, "Exploiting")
	require.ErrorIs(t, err, moderation.ErrSessionClosed)
	assert.Zero(t, f.store.Calls("put", "Bans"))

	_, err = f.sessions.Load(ctx, key)
	require.ErrorIs(t, err, moderation.ErrSessionClosed)
}

func TestReasonLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		reason  string
		outcome moderation.Outcome
	}{
		{name: "at maximum", reason: strings.Repeat("a", 512), outcome: moderation.OutcomeApplied},
		{name: "multibyte at maximum", reason: strings.Repeat("é", 512), outcome: moderation.OutcomeApplied},
		{name: "above maximum", reason: strings.Repeat("a", 513), outcome: moderation.OutcomeRejected},
		{name: "empty", reason: "", outcome: moderation.OutcomeRejected},
		{name: "blank", reason: "   ", outcome: moderation.OutcomeRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, config.ConsistencyLastWriteWins)
			key := f.start(t, operatorID, messageID)

			result, err := f.workflow.AddWarning(t.Context(), key, operatorID, tt.reason)
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, result.Outcome)

			if tt.outcome == moderation.OutcomeRejected {
				require.ErrorIs(t, result.Err, moderation.ErrInvalidReason)
				assert.Zero(t, f.store.Calls("put", "Warnings"))
				assert.Empty(t, f.publisher.Events())
			} else {
				assert.Equal(t, ledger.WarningList{tt.reason}, f.warnings(t))
			}
		})
	}
}

func TestRemoveWarningOutOfRange(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.ConsistencyLastWriteWins)
	key := f.start(t, operatorID, messageID)

	result, err := f.workflow.RemoveWarning(t.Context(), key, operatorID, 0)
	require.NoError(t, err)
	assert.Equal(t, moderation.OutcomeRejected, result.Outcome)
	require.ErrorIs(t, result.Err, ledger.ErrInvalidIndex)
	assert.Zero(t, f.store.Calls("put", "Warnings"))
}

func TestPublishFailureDoesNotFailBan(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.ConsistencyLastWriteWins)
	key := f.start(t, operatorID, messageID)
	f.publisher.err = errPublishRefused

	result, err := f.workflow.Ban(t.Context(), key, operatorID, "Exploiting")
	require.NoError(t, err)
	assert.Equal(t, moderation.OutcomeApplied, result.Outcome)
	require.ErrorIs(t, result.PublishErr, errPublishRefused)
	require.NotNil(t, result.View.Ban)

	var record ledger.BanRecord
	assert.True(t, f.store.Raw("Bans", "user_42", &record))
}

func TestConcurrentSessions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		consistency string
		expected    ledger.WarningList
	}{
		{consistency: config.ConsistencyLastWriteWins, expected: ledger.WarningList{"y"}},
		{consistency: config.ConsistencyOptimistic, expected: ledger.WarningList{"x", "y"}},
	}

	for _, tt := range tests {
		t.Run(tt.consistency, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, tt.consistency)
			ctx := t.Context()

			keyA := f.start(t, operatorID, messageID)
			keyB := f.start(t, operatorID+1, messageID+1)

			_, err := f.workflow.AddWarning(ctx, keyA, operatorID, "x")
			require.NoError(t, err)

			result, err := f.workflow.AddWarning(ctx, keyB, operatorID+1, "y")
			require.NoError(t, err)
			assert.Equal(t, moderation.OutcomeApplied, result.Outcome)
			assert.Equal(t, tt.expected, result.View.Warnings)

			assert.Equal(t, tt.expected, f.warnings(t))
		})
	}
}

func TestSessionOwnership(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.ConsistencyLastWriteWins)
	key := f.start(t, operatorID, messageID)

	_, err := f.workflow.Ban(t.Context(), key, operatorID+1, "Exploiting")
	require.ErrorIs(t, err, moderation.ErrNotSessionOwner)

	forged := moderation.SessionKey{OperatorID: operatorID + 1, MessageID: messageID}
	_, err = f.workflow.Ban(t.Context(), forged, operatorID+1, "Exploiting")
	require.ErrorIs(t, err, moderation.ErrSessionClosed)

	assert.Zero(t, f.store.Calls("put", "Bans"))
}

func TestCancel(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.ConsistencyLastWriteWins)
	key := f.start(t, operatorID, messageID)
	ctx := t.Context()

	_, err := f.workflow.Ban(ctx, key, operatorID, "Exploiting")
	require.NoError(t, err)

	result, err := f.workflow.Cancel(ctx, key, operatorID)
	require.NoError(t, err)
	assert.Equal(t, moderation.OutcomeApplied, result.Outcome)

	_, err = f.workflow.Kick(ctx, key, operatorID, "Spamming")
	require.ErrorIs(t, err, moderation.ErrSessionClosed)

	_, err = f.workflow.Cancel(ctx, key, operatorID)
	require.ErrorIs(t, err, moderation.ErrSessionClosed)

	// Cancelling keeps what was written
	var record ledger.BanRecord
	assert.True(t, f.store.Raw("Bans", "user_42", &record))
}

func TestTransitionsAreSerialised(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.ConsistencyLastWriteWins)
	key := f.start(t, operatorID, messageID)

	var wg sync.WaitGroup
	for _, reason := range []string{"a", "b", "c", "d"} {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := f.workflow.AddWarning(t.Context(), key, operatorID, reason)
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Len(t, f.warnings(t), 4)

	view, err := f.workflow.View(t.Context(), key, operatorID)
	require.NoError(t, err)
	assert.ElementsMatch(t, ledger.WarningList{"a", "b", "c", "d"}, view.Warnings)
}
