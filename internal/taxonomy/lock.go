package taxonomy

import (
	"context"
	"fmt"
	"sync"
)

// Locker is an advisory lock keyed by household. Taxonomy mutations of one
// household run one at a time; different households do not contend.
type Locker struct {
	locks map[string]chan struct{}
	mu    sync.Mutex
}

// NewLocker creates an empty locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]chan struct{})}
}

func (l *Locker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	return ch
}

// Lock blocks until the key is free or ctx is done. The returned function
// releases the lock.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for taxonomy lock of %s: %w", key, ctx.Err())
	}
}
