package session

import (
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/GoldenBitsSoftware/authlib-linux/errs"
)

// MaxConcurrentSessions bounds how many sessions a single Pool will
// hand out instance ids for at once. It is a compile-time constant,
// not a runtime option: callers that need more headroom build more
// than one Pool.
const MaxConcurrentSessions = 64

// Pool hands out small integer instance ids to at most
// MaxConcurrentSessions concurrent sessions. Acquire blocks on nothing
// and fails fast with an errs.NoResource error once the pool is full;
// it is the caller's job to retry or shed load.
type Pool struct {
	sem *semaphore.Weighted

	mu   sync.Mutex
	used [MaxConcurrentSessions]bool
}

// NewPool returns a Pool ready to hand out instance ids.
func NewPool() *Pool {
	return &Pool{sem: semaphore.NewWeighted(MaxConcurrentSessions)}
}

// Acquire reserves a slot and returns its instance id, or an
// errs.NoResource error if all MaxConcurrentSessions slots are in use.
func (p *Pool) Acquire() (int, error) {
	if !p.sem.TryAcquire(1) {
		return 0, errs.PeerAuth.New(errs.NoResource, "session pool exhausted (max %d concurrent)", MaxConcurrentSessions)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.used {
		if !p.used[i] {
			p.used[i] = true
			return i, nil
		}
	}
	// The semaphore guarantees a free slot exists; reaching here means
	// used[] and sem have fallen out of sync with each other.
	p.sem.Release(1)
	return 0, errs.PeerAuth.New(errs.NoResource, "session pool slot accounting inconsistent")
}

// Release returns instanceID to the pool. Callers must only release an
// id they previously acquired, and only once the session's worker has
// terminated.
func (p *Pool) Release(instanceID int) {
	p.mu.Lock()
	p.used[instanceID] = false
	p.mu.Unlock()
	p.sem.Release(1)
}
