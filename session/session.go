// Package session holds the per-session snapshot baseline: the one full
// snapshot a client last received, used as the diff base for its next
// request. At most one baseline exists per session; there is no history.
//
// Sessions are independent and need no mutual synchronization, but requests
// within one session must not interleave their reads and writes of the
// baseline — Locks provides the per-session serialization the engine uses.
package session

import (
	"context"
	"sync"
)

// Store keeps one baseline snapshot per active session. Set is called
// unconditionally after every successful snapshot computation with the full
// current snapshot (never the diff); a failed computation must not call Set.
// Remove is called when the session's owner tears it down.
type Store interface {
	Get(ctx context.Context, sessionID string) (snapshot string, ok bool, err error)
	Set(ctx context.Context, sessionID, snapshot string) error
	Remove(ctx context.Context, sessionID string) error
}

// Counter is an optional Store extension reporting how many sessions
// currently hold a baseline.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Locks serializes snapshot computations per session. Acquire blocks while
// another computation for the same session is in flight; distinct sessions
// never contend.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewLocks creates an empty lock table.
func NewLocks() *Locks {
	return &Locks{locks: make(map[string]*lockEntry)}
}

// Acquire locks the session and returns its release function. Entries are
// dropped once the last holder releases, so ended sessions leave no residue.
func (l *Locks) Acquire(sessionID string) (release func()) {
	l.mu.Lock()
	e := l.locks[sessionID]
	if e == nil {
		e = &lockEntry{}
		l.locks[sessionID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, sessionID)
		}
		l.mu.Unlock()
	}
}
