package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// SessionPrefix is prepended to all manage session keys in Redis.
const SessionPrefix = "manage:"

var ErrFailedToParseSession = errors.New("failed to parse session data")

// SessionKey identifies a manage session by its operator and the message
// that carries its menu.
type SessionKey struct {
	OperatorID uint64
	MessageID  uint64
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%s%d:%d", SessionPrefix, k.OperatorID, k.MessageID)
}

// Session is one operator-driven manage workflow.
type Session struct {
	OperatorID uint64    `json:"operatorId"`
	MessageID  uint64    `json:"messageId"`
	View       View      `json:"view"`
	OpenedAt   time.Time `json:"openedAt"`
	LastUsed   time.Time `json:"lastUsed"`
}

// Key returns the key the session is stored under.
func (s *Session) Key() SessionKey {
	return SessionKey{OperatorID: s.OperatorID, MessageID: s.MessageID}
}

// SessionStore keeps sessions until they are deleted or sit idle too long.
type SessionStore interface {
	// Save stores the session and restarts its idle timer.
	Save(ctx context.Context, session *Session) error
	// Load returns ErrSessionClosed when the session no longer exists.
	Load(ctx context.Context, key SessionKey) (*Session, error)
	Delete(ctx context.Context, key SessionKey) error
}

// RedisSessionStore stores sessions as JSON strings that expire after the idle timeout.
type RedisSessionStore struct {
	redis   rueidis.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewRedisSessionStore creates a session store on the given Redis client.
func NewRedisSessionStore(client rueidis.Client, timeout time.Duration, logger *zap.Logger) *RedisSessionStore {
	return &RedisSessionStore{
		redis:   client,
		timeout: timeout,
		logger:  logger.Named("session_store"),
	}
}

// Save implements SessionStore.
func (s *RedisSessionStore) Save(ctx context.Context, session *Session) error {
	data, err := sonic.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	key := session.Key().String()

	err = s.redis.Do(ctx, s.redis.B().Set().Key(key).Value(rueidis.BinaryString(data)).Ex(s.timeout).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", key, err)
	}

	return nil
}

// Load implements SessionStore.
func (s *RedisSessionStore) Load(ctx context.Context, key SessionKey) (*Session, error) {
	data, err := s.redis.Do(ctx, s.redis.B().Get().Key(key.String()).Build()).AsBytes()
	if rueidis.IsRedisNil(err) {
		return nil, ErrSessionClosed
	} else if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", key, err)
	}

	var session Session
	if err := sonic.Unmarshal(data, &session); err != nil {
		s.logger.Error("Failed to unmarshal session data",
			zap.String("key", key.String()),
			zap.Error(err))

		return nil, fmt.Errorf("%w: %w", ErrFailedToParseSession, err)
	}

	return &session, nil
}

// Delete implements SessionStore.
func (s *RedisSessionStore) Delete(ctx context.Context, key SessionKey) error {
	if err := s.redis.Do(ctx, s.redis.B().Del().Key(key.String()).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", key, err)
	}

	return nil
}
