package clock

import (
	"sync"
	"time"
)

// Clock abstracts time for the engines so tests can drive it.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

type realTimer struct{ t *time.Timer }

func New() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}

func (t realTimer) Stop() bool { return t.t.Stop() }

// Cooldowns records the last time an action fired per key. A key is
// allowed when at least the requested duration elapsed since its last
// allowed call; an allowed call stamps the key.
type Cooldowns struct {
	mu    sync.Mutex
	clock Clock
	last  map[string]time.Time
}

func NewCooldowns(c Clock) *Cooldowns {
	return &Cooldowns{clock: c, last: make(map[string]time.Time)}
}

func (c *Cooldowns) Allow(key string, d time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if d > 0 {
		if last, ok := c.last[key]; ok && now.Sub(last) < d {
			return false
		}
	}
	c.last[key] = now
	return true
}

func (c *Cooldowns) Reset(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.last, key)
}
