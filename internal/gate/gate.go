// Package gate decides whether an expensive regroup may run now. It admits
// at most one run per window and coalesces bursts of requests into that run.
package gate

import (
	"sync"
	"time"
)

// DefaultWindow is the minimum spacing between two admitted runs.
const DefaultWindow = 2 * time.Second

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock; its readings carry Go's monotonic
// component, so elapsed time is immune to wall-clock jumps.
var SystemClock Clock = ClockFunc(time.Now)

// Gate is a fixed-window admission gate. The zero value is not usable; call New.
type Gate struct {
	window time.Duration
	clock  Clock

	mu      sync.Mutex
	last    time.Time
	hasRun  bool
	admits  uint64
	denials uint64
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock injects the clock used by Admit.
func WithClock(c Clock) Option {
	return func(g *Gate) {
		if c != nil {
			g.clock = c
		}
	}
}

// New creates a gate with the given window.
func New(window time.Duration, opts ...Option) *Gate {
	g := &Gate{window: window, clock: SystemClock}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// TryAdmit admits the caller when at least window has elapsed since the last
// admitted call, recording now as the new last-run time. The first call
// ever is always admitted. A denied call leaves the state unchanged. The
// lock covers only this compare-and-update.
func (g *Gate) TryAdmit(now time.Time, window time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.hasRun && now.Sub(g.last) < window {
		g.denials++
		return false
	}
	g.last = now
	g.hasRun = true
	g.admits++
	return true
}

// Admit is TryAdmit with the injected clock and the configured window.
func (g *Gate) Admit() bool {
	return g.TryAdmit(g.clock.Now(), g.window)
}

// Window returns the configured window.
func (g *Gate) Window() time.Duration {
	return g.window
}

// LastRun returns the time of the last admitted call and whether one happened.
func (g *Gate) LastRun() (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last, g.hasRun
}

// Stats returns the number of admitted and denied calls so far.
func (g *Gate) Stats() (admits, denials uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.admits, g.denials
}
