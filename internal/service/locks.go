package service

import (
	"sync"

	"github.com/google/uuid"
)

// IdentityLocks hands out one mutex per identity. Entries are dropped once
// nobody holds or waits on them.
type IdentityLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*identityLock
}

type identityLock struct {
	mu   sync.Mutex
	refs int
}

func NewIdentityLocks() *IdentityLocks {
	return &IdentityLocks{locks: make(map[uuid.UUID]*identityLock)}
}

// Lock blocks until id is free and returns the matching unlock func
func (l *IdentityLocks) Lock(id uuid.UUID) func() {
	l.mu.Lock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &identityLock{}
		l.locks[id] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *IdentityLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
