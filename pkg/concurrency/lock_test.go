package concurrency

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLockUnlock(t *testing.T) {
	lm := NewLockManager()
	lm.Lock("a", W_LOCK)
	require.Equal(t, 1, lm.Held())
	require.NoError(t, lm.Unlock("a", W_LOCK))
	require.Zero(t, lm.Held())
	require.ErrorIs(t, lm.Unlock("a", W_LOCK), ErrNotLocked)
}

func TestReadersShare(t *testing.T) {
	lm := NewLockManager()
	lm.Lock("a", R_LOCK)
	done := make(chan struct{})
	go func() {
		lm.Lock("a", R_LOCK)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second reader blocked")
	}
	require.NoError(t, lm.Unlock("a", R_LOCK))
	require.NoError(t, lm.Unlock("a", R_LOCK))
	require.Zero(t, lm.Held())
}

func TestWriterExcludes(t *testing.T) {
	lm := NewLockManager()
	lm.Lock("a", W_LOCK)
	acquired := make(chan struct{})
	go func() {
		lm.Lock("a", R_LOCK)
		close(acquired)
	}()
	select {
	case <-acquired:
		t.Fatal("reader acquired while writer held the lock")
	case <-time.After(20 * time.Millisecond):
	}
	// Other names are unaffected.
	lm.Lock("b", W_LOCK)
	require.NoError(t, lm.Unlock("b", W_LOCK))

	require.NoError(t, lm.Unlock("a", W_LOCK))
	<-acquired
	require.NoError(t, lm.Unlock("a", R_LOCK))
}

func TestCounterUnderWriteLock(t *testing.T) {
	lm := NewLockManager()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				lm.Lock("n", W_LOCK)
				counter++
				if err := lm.Unlock("n", W_LOCK); err != nil {
					t.Error(err)
				}
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1600, counter)
	require.Zero(t, lm.Held())
}
