package services

import "sync"

// ScreenGuard tracks the latest load of each conversation screen, keyed by
// viewer and conversation. A load that began before a newer one of the same
// screen is stale: its results must be discarded and it must not mark
// anything as read. Loads of different conversations, even by the same
// viewer on another device, are independent; leaving a screen is signalled
// by cancelling the request context.
type ScreenGuard struct {
	mu      sync.Mutex
	next    uint64
	current map[screenKey]uint64
}

type screenKey struct {
	viewer       string
	conversation string
}

// Ticket identifies one load started with Begin.
type Ticket struct {
	key screenKey
	gen uint64
}

// NewScreenGuard returns an empty guard.
func NewScreenGuard() *ScreenGuard {
	return &ScreenGuard{current: make(map[screenKey]uint64)}
}

// Begin starts a load of conversation for viewer, superseding any load of
// the same screen still in flight.
func (g *ScreenGuard) Begin(viewer, conversation string) Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	k := screenKey{viewer: viewer, conversation: conversation}
	g.current[k] = g.next
	return Ticket{key: k, gen: g.next}
}

// Current reports whether t is still the latest load of its screen.
func (g *ScreenGuard) Current(t Ticket) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current[t.key] == t.gen
}

// End releases t. Generations are global, so dropping the entry never lets an
// older ticket become current again.
func (g *ScreenGuard) End(t Ticket) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current[t.key] == t.gen {
		delete(g.current, t.key)
	}
}
