package reflock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireSingleExcludesConcurrent(t *testing.T) {
	m := New()
	h, err := m.Acquire(context.Background(), "refs/heads/main")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		h2, err := m.Acquire(context.Background(), "refs/heads/main")
		require.NoError(t, err)
		close(acquired)
		h2.Release()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should have blocked while first is held")
	case <-time.After(50 * time.Millisecond):
	}

	h.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire should have succeeded after release")
	}
}

func TestAcquireMultiDedupesAndSorts(t *testing.T) {
	m := New()
	h, err := m.AcquireMulti(context.Background(), []string{"refs/heads/b", "refs/heads/a", "refs/heads/a"})
	require.NoError(t, err)
	defer h.Release()

	assert.True(t, h.Contains("refs/heads/a"))
	assert.True(t, h.Contains("refs/heads/b"))
	assert.False(t, h.Contains("refs/heads/c"))
}

func TestAcquireMultiReleasesOnCancellationMidway(t *testing.T) {
	m := New()
	blocker, err := m.Acquire(context.Background(), "refs/heads/b")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err = m.AcquireMulti(ctx, []string{"refs/heads/a", "refs/heads/b"})
	require.Error(t, err)

	blocker.Release()

	h, err := m.Acquire(context.Background(), "refs/heads/a")
	require.NoError(t, err)
	h.Release()

	// "refs/heads/b" itself must still be acquirable after the cancelled
	// waiter's pending acquisition resolves: a detached goroutine racing a
	// stdlib mutex against ctx.Done would still grab the mutex once
	// blocker.Release() ran and hold it forever with no Handle pointing at
	// it, deadlocking every later Acquire on this key.
	h2, err := m.Acquire(context.Background(), "refs/heads/b")
	require.NoError(t, err)
	h2.Release()
}

func TestAcquireWaiterAbandonedByCancellationDoesNotPoisonLock(t *testing.T) {
	m := New()
	blocker, err := m.Acquire(context.Background(), "refs/heads/c")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	waiterDone := make(chan error, 1)
	go func() {
		_, err := m.Acquire(ctx, "refs/heads/c")
		waiterDone <- err
	}()

	// Give the waiter a chance to queue up behind blocker before cancelling.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-waiterDone:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("cancelled waiter never returned")
	}

	blocker.Release()

	done := make(chan struct{})
	go func() {
		h, err := m.Acquire(context.Background(), "refs/heads/c")
		require.NoError(t, err)
		h.Release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refs/heads/c is permanently locked by an orphaned waiter")
	}
}
