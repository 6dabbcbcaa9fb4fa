package idempotency

import (
	"context"
	"sync"
	"time"
)

// Outcome of a claim attempt.
type Outcome int

const (
	// Fresh grants the caller the right to process the event. The caller
	// must Complete on success or Release on failure so a legitimate
	// retry can run.
	Fresh Outcome = iota

	// Duplicate means a prior attempt completed, or is in flight, for
	// this event ID. The caller must short-circuit without side effects.
	Duplicate
)

// Guard is the atomic check-and-set that makes webhook redelivery safe.
// A race between concurrent deliveries of the same event ID resolves to
// exactly one Fresh outcome.
type Guard interface {
	Claim(ctx context.Context, eventID string) (Outcome, error)
	Complete(ctx context.Context, eventID string) error
	Release(ctx context.Context, eventID string) error
}

const (
	statePending = "pending"
	stateDone    = "done"
)

// MemoryGuard is an in-process Guard for single-instance deployments and
// tests. Pending claims expire so a crashed request cannot wedge an
// event forever.
type MemoryGuard struct {
	mu         sync.Mutex
	states     map[string]string
	claimedAt  map[string]time.Time
	pendingTTL time.Duration
	now        func() time.Time
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		states:     make(map[string]string),
		claimedAt:  make(map[string]time.Time),
		pendingTTL: 15 * time.Minute,
		now:        time.Now,
	}
}

func (g *MemoryGuard) Claim(_ context.Context, eventID string) (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.states[eventID] {
	case stateDone:
		return Duplicate, nil
	case statePending:
		if g.now().Sub(g.claimedAt[eventID]) < g.pendingTTL {
			return Duplicate, nil
		}
		// Stale claim from a crashed attempt — take it over.
	}

	g.states[eventID] = statePending
	g.claimedAt[eventID] = g.now()
	return Fresh, nil
}

func (g *MemoryGuard) Complete(_ context.Context, eventID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.states[eventID] = stateDone
	delete(g.claimedAt, eventID)
	return nil
}

func (g *MemoryGuard) Release(_ context.Context, eventID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.states[eventID] == statePending {
		delete(g.states, eventID)
		delete(g.claimedAt, eventID)
	}
	return nil
}
