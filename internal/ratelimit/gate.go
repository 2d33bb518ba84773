// Package ratelimit provides a per-source request gate based on the time
// elapsed since the last resolution attempt.
package ratelimit

import (
	"sync"
	"time"
)

// Gate tracks the last attempt timestamp per source. A source is gated
// while now - last < delay. The ledger is stamped only by the caller, after
// an attempt completes.
type Gate struct {
	mu    sync.Mutex
	delay time.Duration
	last  map[string]time.Time
	now   func() time.Time
}

func New(delay time.Duration) *Gate {
	return &Gate{
		delay: delay,
		last:  make(map[string]time.Time),
		now:   time.Now,
	}
}

// Allow reports whether a new attempt for the source may proceed. When
// gated, the second return value is the remaining wait.
func (g *Gate) Allow(source string) (bool, time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.last[source]
	if !ok {
		return true, 0
	}
	elapsed := g.now().Sub(last)
	if elapsed >= g.delay {
		return true, 0
	}
	return false, g.delay - elapsed
}

// Stamp records the completion of an attempt for the source.
func (g *Gate) Stamp(source string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last[source] = g.now()
}

// Clear resets the ledger for the given sources, or entirely when none are
// named.
func (g *Gate) Clear(sources ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(sources) == 0 {
		g.last = make(map[string]time.Time)
		return
	}
	for _, s := range sources {
		delete(g.last, s)
	}
}

// Status returns a copy of the ledger.
func (g *Gate) Status() map[string]time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[string]time.Time, len(g.last))
	for s, t := range g.last {
		out[s] = t
	}
	return out
}

// SetDelay changes the gate delay; takes effect on the next Allow call.
func (g *Gate) SetDelay(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.delay = d
}

// Delay returns the configured gate delay.
func (g *Gate) Delay() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.delay
}
