package jobs

import (
	"context"
	"sync"
)

// Tracker enforces the one-active-session invariant: at most one polling
// session owns the "current job" slot at any time. Starting a new session
// bumps the generation and cancels the previous session's context, so
// stale ticks from a superseded job can never act.
type Tracker struct {
	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

// NewTracker creates an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Begin supersedes any active session and hands out the context and
// generation token for the new one.
func (t *Tracker) Begin(parent context.Context) (context.Context, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	t.generation++
	ctx, cancel := context.WithCancel(parent)
	t.cancel = cancel
	return ctx, t.generation
}

// Owns reports whether gen is still the current generation.
func (t *Tracker) Owns(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return gen == t.generation
}

// Stop cancels the active session without starting a new one.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}
