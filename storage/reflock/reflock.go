// Package reflock is the process-local lock manager from spec §4.7: a
// canonicalized-refpath → mutex map, with deadlock-free multi-key
// acquisition (sort before acquiring) and cooperative cancellation.
package reflock

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Manager owns one binary semaphore per refpath, created lazily and shared
// by every caller that names the same path (spec's "at most one mutex per
// key, double-checked pattern"). A semaphore.Weighted(1) stands in for a
// plain mutex here specifically because its Acquire is context-aware and,
// unlike a goroutine racing a stdlib sync.Mutex against ctx.Done, never
// leaves a waiter that silently succeeds and holds the lock after its
// caller has already given up: a waiter that's granted the semaphore in
// the same instant its context is cancelled notices and is removed from
// the wait queue before it can be handed the slot.
type Manager struct {
	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{locks: make(map[string]*semaphore.Weighted)}
}

func (m *Manager) semFor(key string) *semaphore.Weighted {
	m.mu.Lock()
	defer m.mu.Unlock()
	sem, ok := m.locks[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		m.locks[key] = sem
	}
	return sem
}

// Handle holds one or more acquired locks, released together by Release.
type Handle struct {
	keys []string
	sems []*semaphore.Weighted
}

// Contains reports whether refpath is among the keys this handle locked.
// The reference store does not consult it: CompareAndSwap takes its own
// single-ref lock, and a handle has no write method of its own.
func (h *Handle) Contains(refpath string) bool {
	for _, k := range h.keys {
		if k == refpath {
			return true
		}
	}
	return false
}

// Release unlocks every semaphore this handle holds, in reverse
// acquisition order. Idempotent: calling Release more than once is a
// caller error but will not panic past the first call, since sems is
// cleared after release.
func (h *Handle) Release() {
	for i := len(h.sems) - 1; i >= 0; i-- {
		h.sems[i].Release(1)
	}
	h.sems = nil
}

// Acquire locks a single refpath.
func (m *Manager) Acquire(ctx context.Context, refpath string) (*Handle, error) {
	return m.AcquireMulti(ctx, []string{refpath})
}

// AcquireMulti locks every refpath in paths, deduplicated and acquired in
// canonical sorted order to prevent deadlock between overlapping concurrent
// callers (spec §4.7/§5). If ctx is cancelled partway through, every lock
// already acquired is released before returning the context's error, and
// the pending acquisition itself is aborted rather than left to succeed
// unobserved.
func (m *Manager) AcquireMulti(ctx context.Context, paths []string) (*Handle, error) {
	sorted := dedupeSorted(paths)

	h := &Handle{keys: sorted}
	for _, key := range sorted {
		sem := m.semFor(key)
		if err := sem.Acquire(ctx, 1); err != nil {
			h.Release()
			return nil, err
		}
		h.sems = append(h.sems, sem)
	}
	return h, nil
}

func dedupeSorted(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
