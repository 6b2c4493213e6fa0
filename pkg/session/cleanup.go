package session

import (
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultIdleTimeout is how long a session may sit untouched before the
// cleaner evicts it from memory.
const DefaultIdleTimeout = 30 * time.Minute

// Cleaner evicts idle sessions from the in-memory store. Evicted sessions
// are not lost: the archiver already holds their last snapshot.
type Cleaner struct {
	store       *Store
	idleTimeout time.Duration
}

// NewCleaner creates a cleaner over store.
func NewCleaner(store *Store, idleTimeout time.Duration) *Cleaner {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Cleaner{store: store, idleTimeout: idleTimeout}
}

// Sweep evicts every session idle for longer than the timeout and returns
// how many were removed. The scheduler calls this periodically.
func (c *Cleaner) Sweep() int {
	now := time.Now()
	evicted := 0

	for _, id := range c.store.Sessions() {
		last, ok := c.store.LastTouched(id)
		if !ok {
			continue
		}
		if now.Sub(last) >= c.idleTimeout {
			c.store.Clear(id)
			evicted++
		}
	}

	if evicted > 0 {
		log.Info().Int("evicted", evicted).Msg("Idle sessions evicted")
	}
	return evicted
}
