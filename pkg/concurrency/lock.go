// Package concurrency serializes access to individual filters by name.
package concurrency

import (
	"errors"
	"sync"
)

// Indicates whether a lock is a reader or a writer lock.
type LockType int

const (
	R_LOCK LockType = 0
	W_LOCK LockType = 1
)

var ErrNotLocked = errors.New("tried to unlock nonexistent resource")

// A per-name lock, dropped from the table once nobody holds or waits on it.
type nameLock struct {
	rw   sync.RWMutex
	refs int
}

// Lock manager hands out reader/writer locks keyed by filter name.
type LockManager struct {
	lmMtx sync.Mutex
	locks map[string]*nameLock
}

// Construct a new lock manager.
func NewLockManager() *LockManager {
	return &LockManager{
		locks: make(map[string]*nameLock),
	}
}

// Lock a name, blocking until it is available.
func (lm *LockManager) Lock(name string, lType LockType) {
	// Safely acquire the lock itself, initializing it if needed.
	lm.lmMtx.Lock()
	lock, found := lm.locks[name]
	if !found {
		lock = &nameLock{}
		lm.locks[name] = lock
	}
	lock.refs++
	lm.lmMtx.Unlock()
	// Lock accordingly.
	switch lType {
	case R_LOCK:
		lock.rw.RLock()
	case W_LOCK:
		lock.rw.Lock()
	}
}

// Unlock a name previously locked with the same type.
func (lm *LockManager) Unlock(name string, lType LockType) error {
	lm.lmMtx.Lock()
	defer lm.lmMtx.Unlock()
	lock, found := lm.locks[name]
	if !found {
		return ErrNotLocked
	}
	switch lType {
	case R_LOCK:
		lock.rw.RUnlock()
	case W_LOCK:
		lock.rw.Unlock()
	}
	lock.refs--
	if lock.refs == 0 {
		delete(lm.locks, name)
	}
	return nil
}

// Number of names currently locked or waited on.
func (lm *LockManager) Held() int {
	lm.lmMtx.Lock()
	defer lm.lmMtx.Unlock()
	return len(lm.locks)
}
