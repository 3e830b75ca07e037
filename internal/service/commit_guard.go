package service

import "sync"

// CommitGuard tracks drafts and student balances with work in progress.
// A commit holds both its draft key and its student key; a draft edit holds
// only the draft key.
type CommitGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewCommitGuard constructs an empty guard.
func NewCommitGuard() *CommitGuard {
	return &CommitGuard{active: make(map[string]struct{})}
}

// StudentKey identifies the balance of one student for one academic year.
func StudentKey(studentID, academicYearID string) string {
	return "student/" + studentID + "/" + academicYearID
}

// TryAcquire marks every key busy, or none of them when any is already held.
func (g *CommitGuard) TryAcquire(keys ...string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, key := range keys {
		if _, busy := g.active[key]; busy {
			return false
		}
	}
	for _, key := range keys {
		g.active[key] = struct{}{}
	}
	return true
}

// Release frees the keys.
func (g *CommitGuard) Release(keys ...string) {
	g.mu.Lock()
	for _, key := range keys {
		delete(g.active, key)
	}
	g.mu.Unlock()
}

// Active reports whether the key is held.
func (g *CommitGuard) Active(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.active[key]
	return busy
}

// InFlight returns the number of keys currently held.
func (g *CommitGuard) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}
