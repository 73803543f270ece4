package engine

import "sync"

// lockRegistry serializes all mutating operations per profile id. Locks are
// created on first access and kept for the process lifetime; profiles never
// contend with each other. Release happens on every exit path via defer in
// withProfileLock.
type lockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{locks: make(map[string]*sync.Mutex)}
}

func (r *lockRegistry) get(profileID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.locks[profileID]; ok {
		return l
	}
	l := &sync.Mutex{}
	r.locks[profileID] = l
	return l
}

// withProfileLock runs op while holding the exclusive lock for profileID.
func (r *lockRegistry) withProfileLock(profileID string, op func() error) error {
	l := r.get(profileID)
	l.Lock()
	defer l.Unlock()
	return op()
}
