package guilds

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

// AlertLockKey guards role alerts so only one runs at a time across all bot
// instances.
const AlertLockKey = "alert:running"

// releaseScript deletes the lock only while it still belongs to the caller.
var releaseScript = rueidis.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// OperationLock is a Redis lock that expires on its own if the holder dies.
type OperationLock struct {
	redis rueidis.Client
	key   string
	owner string
}

// NewOperationLock creates a lock stored at key. owner identifies this
// process so a lock taken over after expiry is never released by mistake.
func NewOperationLock(client rueidis.Client, key, owner string) *OperationLock {
	return &OperationLock{
		redis: client,
		key:   key,
		owner: owner,
	}
}

// Acquire takes the lock for ttl. It reports false when someone else holds it.
func (l *OperationLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	err := l.redis.Do(ctx, l.redis.B().Set().Key(l.key).Value(l.owner).Nx().Ex(ttl).Build()).Error()
	if rueidis.IsRedisNil(err) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to acquire %s: %w", l.key, err)
	}

	return true, nil
}

// Held reports whether anyone holds the lock.
func (l *OperationLock) Held(ctx context.Context) (bool, error) {
	count, err := l.redis.Do(ctx, l.redis.B().Exists().Key(l.key).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", l.key, err)
	}

	return count > 0, nil
}

// Release gives the lock up if this owner still holds it.
func (l *OperationLock) Release(ctx context.Context) error {
	if err := releaseScript.Exec(ctx, l.redis, []string{l.key}, []string{l.owner}).Error(); err != nil {
		return fmt.Errorf("failed to release %s: %w", l.key, err)
	}

	return nil
}
