package guilds

import (
	"slices"
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// Tracker keeps the set of guilds the bot is currently a member of.
// It is fed by the gateway guild ready, join and leave events.
type Tracker struct {
	guilds map[snowflake.ID]struct{}
	mu     sync.RWMutex
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		guilds: make(map[snowflake.ID]struct{}),
	}
}

// Add records a guild.
func (t *Tracker) Add(guildID snowflake.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.guilds[guildID] = struct{}{}
}

// Remove forgets a guild.
func (t *Tracker) Remove(guildID snowflake.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.guilds, guildID)
}

// Count returns the number of tracked guilds.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.guilds)
}

// IDs returns the tracked guild IDs in ascending order.
func (t *Tracker) IDs() []snowflake.ID {
	t.mu.RLock()
	ids := make([]snowflake.ID, 0, len(t.guilds))

	for id := range t.guilds {
		ids = append(ids, id)
	}
	t.mu.RUnlock()

	slices.Sort(ids)

	return ids
}
