package syncutil

import (
	"context"
	"sync"
)

// ContextMutex is a mutex implemented via a buffered channel so that lock
// acquisition can be abandoned when the caller's context is cancelled. A
// caller that times out while waiting never holds the lock, so it cannot
// leak it.
type ContextMutex struct {
	ch   chan struct{}
	once sync.Once
}

// NewContextMutex creates an unlocked context-aware mutex.
func NewContextMutex() *ContextMutex {
	m := &ContextMutex{}
	m.init()
	return m
}

func (m *ContextMutex) init() {
	m.once.Do(func() {
		m.ch = make(chan struct{}, 1)
		m.ch <- struct{}{} // Start unlocked.
	})
}

// Lock acquires the mutex, respecting context cancellation.
// On success, returns an unlock function and nil error. The caller MUST call
// the unlock function when done.
// On context cancellation, returns nil and the context error.
func (m *ContextMutex) Lock(ctx context.Context) (func(), error) {
	m.init()

	select {
	case <-m.ch:
		return func() { m.ch <- struct{}{} }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
