package resolver

import (
	"sync"

	"github.com/google/uuid"
)

// userLocks hands out one mutex per user so each user's read-modify-write
// runs serially. The map only grows with the number of distinct users seen
// by this process.
type userLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// lock acquires the mutex for a user and returns its unlock function.
func (l *userLocks) lock(userID uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
