package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLockHeld is returned by TryLock when another holder owns the key.
var ErrLockHeld = errors.New("lock is held")

// Locker hands out short-lived exclusive locks keyed by name.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

func batchLockKey(dailyMealID uint) string {
	return fmt.Sprintf("tiffin:lock:order_batch:%d", dailyMealID)
}

func retryLockKey(logID uint) string {
	return fmt.Sprintf("tiffin:lock:order_retry:%d", logID)
}

// LocalLocker is an in-process Locker for single-instance deployments.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]localLease
	now   func() time.Time
	lease uint64
}

type localLease struct {
	id      uint64
	expires time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]localLease), now: time.Now}
}

func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return nil, ErrLockHeld
	}
	l.lease++
	id := l.lease
	l.held[key] = localLease{id: id, expires: now.Add(ttl)}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		// an expired lease may already belong to someone else
		if cur, ok := l.held[key]; ok && cur.id == id {
			delete(l.held, key)
		}
	}, nil
}
