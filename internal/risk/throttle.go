package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"order-gateway/pkg/db"
)

// DefaultMaxMessagesPerSecond applies when the session settings do not
// set a rate.
const DefaultMaxMessagesPerSecond = 100

// MessageThrottlingCheck caps per-session message rates over a one
// second window. It is the only stateful plugin: a background loop
// clears the counters every interval and must be closed at shutdown.
type MessageThrottlingCheck struct {
	mu     sync.Mutex
	counts map[string]int

	interval  time.Duration
	done      chan struct{}
	closeOnce sync.Once
}

// NewMessageThrottlingCheck starts the reset loop. A non-positive
// interval selects the one second production window; tests pass a
// short interval.
func NewMessageThrottlingCheck(resetInterval time.Duration) *MessageThrottlingCheck {
	if resetInterval <= 0 {
		resetInterval = time.Second
	}
	c := &MessageThrottlingCheck{
		counts:   make(map[string]int),
		interval: resetInterval,
		done:     make(chan struct{}),
	}
	go c.resetLoop()
	return c
}

func (c *MessageThrottlingCheck) Name() string { return "MessageThrottling" }

func (c *MessageThrottlingCheck) Check(ctx context.Context, o db.Order, acct db.Account, sessionID string, settings db.RiskSettings) (bool, string) {
	max := settings.MaxMessagesPerSecond
	if max <= 0 {
		max = DefaultMaxMessagesPerSecond
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts[sessionID] >= max {
		return false, fmt.Sprintf("Message rate limit exceeded: %d messages per second.", max)
	}
	c.counts[sessionID]++
	return true, ""
}

func (c *MessageThrottlingCheck) resetLoop() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.counts = make(map[string]int)
			c.mu.Unlock()
		}
	}
}

// Close stops the reset loop. Safe to call more than once.
func (c *MessageThrottlingCheck) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}
