// Package guard enforces at most one in-flight run per node id, plus a short
// throttle window against repeated triggers.
package guard

import (
	"sync"
	"time"
)

// DefaultWindow is the throttle window applied when none is configured.
const DefaultWindow = 500 * time.Millisecond

// Reason explains a refused acquisition.
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonBusy      Reason = "busy"
	ReasonThrottled Reason = "throttled"
)

// Decision is the outcome of Acquire.
type Decision struct {
	OK     bool
	Reason Reason
}

type entry struct {
	inProgress  bool
	lastTrigger time.Time
}

// Guard tracks in-progress nodes. The zero value is not usable; construct
// one per process (or per test) with New.
type Guard struct {
	mu      sync.Mutex
	entries map[string]*entry
	window  time.Duration
	now     func() time.Time
}

// Option configures a Guard.
type Option func(*Guard)

// WithWindow sets the throttle window. Non-positive values disable it.
func WithWindow(d time.Duration) Option {
	return func(g *Guard) { g.window = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// New creates a guard with the default window.
func New(opts ...Option) *Guard {
	g := &Guard{
		entries: make(map[string]*entry),
		window:  DefaultWindow,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// TryAcquire reports whether nodeID may start a run now.
func (g *Guard) TryAcquire(nodeID string) bool {
	return g.Acquire(nodeID).OK
}

// Acquire marks nodeID in progress. It refuses without changing state when
// a trigger for the node was accepted within the window (throttled) or the
// node's earlier run has not been released (busy).
func (g *Guard) Acquire(nodeID string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if e, ok := g.entries[nodeID]; ok {
		if g.window > 0 && now.Sub(e.lastTrigger) < g.window {
			return Decision{Reason: ReasonThrottled}
		}
		if e.inProgress {
			return Decision{Reason: ReasonBusy}
		}
	}
	g.entries[nodeID] = &entry{inProgress: true, lastTrigger: now}
	return Decision{OK: true}
}

// Release drops the entry for nodeID, clearing both the in-progress flag
// and the trigger time. Releasing an unknown id is a no-op.
func (g *Guard) Release(nodeID string) {
	g.mu.Lock()
	delete(g.entries, nodeID)
	g.mu.Unlock()
}

// InProgress reports whether nodeID holds the guard.
func (g *Guard) InProgress(nodeID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[nodeID]
	return ok && e.inProgress
}

// Len returns the number of nodes holding the guard.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
