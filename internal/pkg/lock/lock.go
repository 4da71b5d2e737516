// Package lock provides keyed mutexes used to serialize lifecycle operations
// (opening lobbies, joining, starting, aborting) per group chat.
package lock

import (
	"context"
	"sync"
	"time"
)

// keyMutex wraps a mutex with a holder count for diagnostics.
type keyMutex struct {
	mu      sync.Mutex
	holders int
}

// KeyedLock hands out one mutex per int64 key (a chat ID).
type KeyedLock struct {
	locks sync.Map // map[int64]*keyMutex
	pool  sync.Pool
}

// NewKeyedLock creates an empty KeyedLock.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{
		pool: sync.Pool{
			New: func() any {
				return &keyMutex{}
			},
		},
	}
}

// get returns the mutex for key, creating it on first use.
func (kl *KeyedLock) get(key int64) *keyMutex {
	if v, ok := kl.locks.Load(key); ok {
		return v.(*keyMutex)
	}

	fresh := kl.pool.Get().(*keyMutex)
	fresh.holders = 0

	// Another goroutine may have stored one first
	actual, loaded := kl.locks.LoadOrStore(key, fresh)
	if loaded {
		kl.pool.Put(fresh)
	}
	return actual.(*keyMutex)
}

// Lock acquires the lock for key.
func (kl *KeyedLock) Lock(key int64) {
	m := kl.get(key)
	m.mu.Lock()
	m.holders++
}

// Unlock releases the lock for key.
func (kl *KeyedLock) Unlock(key int64) {
	if v, ok := kl.locks.Load(key); ok {
		m := v.(*keyMutex)
		m.holders--
		m.mu.Unlock()
	}
}

// TryLock acquires the lock for key without blocking.
func (kl *KeyedLock) TryLock(key int64) bool {
	m := kl.get(key)
	if m.mu.TryLock() {
		m.holders++
		return true
	}
	return false
}

// LockWithTimeout waits up to timeout (or until ctx ends) for the lock.
func (kl *KeyedLock) LockWithTimeout(ctx context.Context, key int64, timeout time.Duration) bool {
	m := kl.get(key)
	acquired := make(chan struct{})

	go func() {
		m.mu.Lock()
		close(acquired)
	}()

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-acquired:
		m.holders++
		return true
	case <-waitCtx.Done():
		// The waiter still gets the lock eventually; hand it straight back.
		go func() {
			<-acquired
			m.mu.Unlock()
		}()
		return false
	}
}

// WithLock runs fn while holding the lock for key.
func (kl *KeyedLock) WithLock(key int64, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}

// WithLockContext runs fn while holding the lock for key, giving up with
// ErrLockTimeout if the lock is not free within timeout.
func (kl *KeyedLock) WithLockContext(ctx context.Context, key int64, timeout time.Duration, fn func() error) error {
	if !kl.LockWithTimeout(ctx, key, timeout) {
		return ErrLockTimeout
	}
	defer kl.Unlock(key)

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}

// IsLocked reports whether key is currently held. The answer may be stale
// by the time the caller reads it.
func (kl *KeyedLock) IsLocked(key int64) bool {
	v, ok := kl.locks.Load(key)
	if !ok {
		return false
	}
	m := v.(*keyMutex)
	if m.mu.TryLock() {
		m.mu.Unlock()
		return false
	}
	return true
}
