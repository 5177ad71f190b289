package fetch

import (
	"context"
	"sync"
	"time"
)

// Gate enforces a minimum interval between requests to a single provider.
// One Gate exists per provider per process and is shared by all workers;
// the mutex keeps the last-request timestamp accurate under concurrent
// callers.
type Gate struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewGate creates a Gate allowing at most maxPerMinute requests per minute.
// A non-positive limit disables throttling.
func NewGate(maxPerMinute int) *Gate {
	g := &Gate{}
	if maxPerMinute > 0 {
		g.interval = time.Minute / time.Duration(maxPerMinute)
	}
	return g
}

// Wait blocks until the caller may issue a request, or the context is
// cancelled. The slot is reserved before sleeping, so concurrent callers
// queue up one interval apart and the timestamp advances on every attempt,
// not only on success.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil || g.interval <= 0 {
		return nil
	}

	g.mu.Lock()
	now := time.Now()
	at := now
	if !g.last.IsZero() {
		if next := g.last.Add(g.interval); next.After(now) {
			at = next
		}
	}
	g.last = at
	g.mu.Unlock()

	if wait := time.Until(at); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
