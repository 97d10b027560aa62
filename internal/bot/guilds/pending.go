package guilds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/disgoorg/snowflake/v2"
	"github.com/projectamerika/mayflower/internal/database/types"
	"github.com/redis/rueidis"
)

// PendingPrefix is prepended to confirmation prompt keys in Redis.
const PendingPrefix = "guildban:"

// ErrNoPending is returned when a prompt was already answered or timed out.
var ErrNoPending = errors.New("no pending cross-server operation")

// Pending is a cross-server operation waiting for the operator's confirmation.
type Pending struct {
	Action       types.GuildBanAction `json:"action"`
	OperatorID   snowflake.ID         `json:"operatorId"`
	OperatorName string               `json:"operatorName"`
	TargetID     snowflake.ID         `json:"targetId"`
	TargetName   string               `json:"targetName"`
	Reason       string               `json:"reason"`
}

// AuditReason is the reason written to each guild's audit log.
func (p *Pending) AuditReason() string {
	return p.Reason + " | " + p.OperatorName
}

// PendingStore keeps confirmation prompts until they are answered or time out.
type PendingStore struct {
	redis   rueidis.Client
	timeout time.Duration
}

// NewPendingStore creates a PendingStore.
func NewPendingStore(client rueidis.Client, timeout time.Duration) *PendingStore {
	return &PendingStore{
		redis:   client,
		timeout: timeout,
	}
}

func pendingKey(operatorID, messageID snowflake.ID) string {
	return fmt.Sprintf("%s%d:%d", PendingPrefix, operatorID, messageID)
}

// Put stores a prompt shown in messageID.
func (s *PendingStore) Put(ctx context.Context, messageID snowflake.ID, pending *Pending) error {
	data, err := sonic.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to marshal pending operation: %w", err)
	}

	key := pendingKey(pending.OperatorID, messageID)

	err = s.redis.Do(ctx, s.redis.B().Set().Key(key).Value(rueidis.BinaryString(data)).Ex(s.timeout).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to store pending operation %s: %w", key, err)
	}

	return nil
}

// Claim removes and returns the prompt, so it can only be answered once.
func (s *PendingStore) Claim(ctx context.Context, operatorID, messageID snowflake.ID) (*Pending, error) {
	key := pendingKey(operatorID, messageID)

	data, err := s.redis.Do(ctx, s.redis.B().Getdel().Key(key).Build()).AsBytes()
	if rueidis.IsRedisNil(err) {
		return nil, ErrNoPending
	} else if err != nil {
		return nil, fmt.Errorf("failed to claim pending operation %s: %w", key, err)
	}

	var pending Pending
	if err := sonic.Unmarshal(data, &pending); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending operation: %w", err)
	}

	return &pending, nil
}
