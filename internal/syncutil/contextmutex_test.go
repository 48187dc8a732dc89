package syncutil

import (
	"context"
	"testing"
	"time"
)

func TestContextMutex_LockUnlock(t *testing.T) {
	m := NewContextMutex()

	unlock, err := m.Lock(context.Background())
	if err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	unlock()

	// Should be reacquirable after unlock.
	unlock, err = m.Lock(context.Background())
	if err != nil {
		t.Fatalf("relock failed: %v", err)
	}
	unlock()
}

func TestContextMutex_CancelledWaiter(t *testing.T) {
	m := NewContextMutex()

	unlock, err := m.Lock(context.Background())
	if err != nil {
		t.Fatalf("lock failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := m.Lock(ctx); err == nil {
		t.Fatal("expected context error while lock held")
	}

	// The cancelled waiter must not have consumed the lock slot.
	unlock()
	unlock2, err := m.Lock(context.Background())
	if err != nil {
		t.Fatalf("lock after cancelled waiter failed: %v", err)
	}
	unlock2()
}

func TestContextMutex_MutualExclusion(t *testing.T) {
	m := NewContextMutex()

	counter := 0
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				unlock, err := m.Lock(context.Background())
				if err != nil {
					t.Error(err)
					return
				}
				counter++
				unlock()
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if counter != 1000 {
		t.Fatalf("expected 1000 increments, got %d", counter)
	}
}
