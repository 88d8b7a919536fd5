package locker

import (
	"context"
	"search-analytics-service/internal/core/port"
	"sync"

	"github.com/google/uuid"
)

type unitLock struct {
	token chan struct{}
	refs  int
}

// UnitLocker hands out one lock per unit id. Entries are reference counted and
// removed when the last holder or waiter is gone.
type UnitLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*unitLock
}

var _ port.UnitLockerPort = (*UnitLocker)(nil)

func NewUnitLocker() *UnitLocker {
	return &UnitLocker{locks: make(map[uuid.UUID]*unitLock)}
}

func (l *UnitLocker) Lock(ctx context.Context, unitID uuid.UUID) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[unitID]
	if !ok {
		entry = &unitLock{token: make(chan struct{}, 1)}
		l.locks[unitID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.token <- struct{}{}:
	case <-ctx.Done():
		l.release(unitID, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.token
			l.release(unitID, entry)
		})
	}, nil
}

func (l *UnitLocker) release(unitID uuid.UUID, entry *unitLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, unitID)
	}
}

// size is the number of tracked units.
func (l *UnitLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
