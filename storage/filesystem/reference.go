package filesystem

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/storage"
	"github.com/gitshelf/gitshelf/storage/filesystem/dotgit"
	"github.com/gitshelf/gitshelf/storage/objcache"
	"github.com/gitshelf/gitshelf/storage/reflock"
)

// ReferenceStorage implements storage.ReferenceStorer against one DotGit
// layout (spec §4.6): a lazily loaded refpath→Hash snapshot backing
// Reference/TryResolve/IterReferences, and a lock-manager-guarded CAS path
// for writes, grounded on dotgit_setref.go's re-read-then-compare sequence.
type ReferenceStorage struct {
	dir   *dotgit.DotGit
	locks *reflock.Manager
	objc  *objcache.Cache // shared with the paired ObjectStorage; cleared on Invalidate(true)

	snap  atomic.Pointer[refSnapshot]
	group singleflight.Group
}

type refSnapshot struct {
	refs map[string]plumbing.Hash
}

// NewReferenceStorage wraps dir. locks and objc are typically shared with a
// sibling ObjectStorage over the same repository.
func NewReferenceStorage(dir *dotgit.DotGit, locks *reflock.Manager, objc *objcache.Cache) *ReferenceStorage {
	return &ReferenceStorage{dir: dir, locks: locks, objc: objc}
}

// Reference implements storage.ReferenceStorer.
func (s *ReferenceStorage) Reference(name plumbing.ReferenceName) (plumbing.Reference, error) {
	ref, found, err := s.TryResolve(name)
	if err != nil {
		return plumbing.Reference{}, err
	}
	if !found {
		return plumbing.Reference{}, fmt.Errorf("%w: reference %q", plumbing.ErrNotFound, name)
	}
	return ref, nil
}

// TryResolve implements storage.ReferenceStorer: snapshot first, falling
// back to a direct loose-file read on a miss so a reference written by
// another process becomes visible without a full Invalidate (spec §4.6).
func (s *ReferenceStorage) TryResolve(name plumbing.ReferenceName) (plumbing.Reference, bool, error) {
	if name == plumbing.HEAD {
		head, err := s.dir.ReadHEAD()
		if err != nil {
			return plumbing.Reference{}, false, err
		}
		if !head.Target.IsSymbolic() {
			return head, true, nil
		}
		target, found, err := s.TryResolve(head.Target.Symref)
		if err != nil {
			return plumbing.Reference{}, false, err
		}
		if !found {
			return plumbing.Reference{}, false, nil
		}
		return plumbing.NewHashReference(plumbing.HEAD, target.Target.Hash), true, nil
	}

	normalized, err := name.Validate()
	if err != nil {
		return plumbing.Reference{}, false, err
	}

	snap, err := s.loadedSnapshot()
	if err != nil {
		return plumbing.Reference{}, false, err
	}
	if h, ok := snap.refs[string(normalized)]; ok {
		return plumbing.NewHashReference(normalized, h), true, nil
	}

	h, err := s.dir.ReadLooseRef(string(normalized))
	if err != nil {
		if errors.Is(err, plumbing.ErrNotFound) {
			return plumbing.Reference{}, false, nil
		}
		return plumbing.Reference{}, false, err
	}
	return plumbing.NewHashReference(normalized, h), true, nil
}

// IterReferences implements storage.ReferenceStorer.
func (s *ReferenceStorage) IterReferences() ([]plumbing.Reference, error) {
	snap, err := s.loadedSnapshot()
	if err != nil {
		return nil, err
	}
	refs := make([]plumbing.Reference, 0, len(snap.refs))
	for name, h := range snap.refs {
		refs = append(refs, plumbing.NewHashReference(plumbing.ReferenceName(name), h))
	}
	return refs, nil
}

// Invalidate implements storage.ReferenceStorer.
func (s *ReferenceStorage) Invalidate(clearAll bool) {
	s.snap.Store(nil)
	if clearAll && s.objc != nil {
		s.objc.Clear()
	}
}

func (s *ReferenceStorage) loadedSnapshot() (*refSnapshot, error) {
	if snap := s.snap.Load(); snap != nil {
		return snap, nil
	}

	v, err, _ := s.group.Do("snapshot", func() (interface{}, error) {
		if snap := s.snap.Load(); snap != nil {
			return snap, nil
		}
		refs, err := s.buildSnapshot()
		if err != nil {
			return nil, err
		}
		snap := &refSnapshot{refs: refs}
		s.snap.Store(snap)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*refSnapshot), nil
}

// buildSnapshot implements spec §4.6's snapshot rule: every loose ref under
// refs/ unioned with packed-refs, loose winning on conflict.
func (s *ReferenceStorage) buildSnapshot() (map[string]plumbing.Hash, error) {
	packed, err := s.dir.ReadPackedRefs()
	if err != nil {
		return nil, err
	}

	refs := make(map[string]plumbing.Hash, len(packed))
	for name, h := range packed {
		refs[name] = h
	}

	paths, err := s.dir.IterLooseRefs()
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		h, err := s.dir.ReadLooseRef(path)
		if err != nil {
			return nil, err
		}
		refs[path] = h
	}
	return refs, nil
}

// CompareAndSwap implements storage.ReferenceStorer's validated write (spec
// §4.6): lock the refpath, re-read its current on-disk value, fail on
// mismatch, else write or delete.
func (s *ReferenceStorage) CompareAndSwap(name plumbing.ReferenceName, expectedOld, newTarget *plumbing.Hash) error {
	normalized, err := name.Validate()
	if err != nil {
		return err
	}

	h, err := s.locks.Acquire(context.Background(), string(normalized))
	if err != nil {
		return err
	}
	defer h.Release()

	return s.compareAndSwapLocked(normalized, expectedOld, newTarget)
}

func (s *ReferenceStorage) compareAndSwapLocked(name plumbing.ReferenceName, expectedOld, newTarget *plumbing.Hash) error {
	current, found, err := s.currentOnDisk(name)
	if err != nil {
		return err
	}

	switch {
	case expectedOld == nil && found:
		return fmt.Errorf("%w: reference %q already exists with %s", storage.ErrReferenceHasChanged, name, current)
	case expectedOld != nil && !found:
		return fmt.Errorf("%w: reference %q does not exist, expected %s", storage.ErrReferenceHasChanged, name, *expectedOld)
	case expectedOld != nil && found && !expectedOld.Equal(current):
		return fmt.Errorf("%w: reference %q is %s, expected %s", storage.ErrReferenceHasChanged, name, current, *expectedOld)
	}

	if newTarget == nil {
		if found {
			if _, err := s.dir.ReadLooseRef(string(name)); errors.Is(err, plumbing.ErrNotFound) {
				return fmt.Errorf("%w: reference %q exists only in packed-refs, which is not rewritten", plumbing.ErrInvalidArgument, name)
			}
		}
		if err := s.dir.RemoveLooseRef(string(name)); err != nil {
			return err
		}
	} else {
		if err := s.dir.WriteLooseRef(string(name), *newTarget); err != nil {
			return err
		}
	}

	s.Invalidate(false)
	return nil
}

func (s *ReferenceStorage) currentOnDisk(name plumbing.ReferenceName) (plumbing.Hash, bool, error) {
	h, err := s.dir.ReadLooseRef(string(name))
	if err == nil {
		return h, true, nil
	}
	if !errors.Is(err, plumbing.ErrNotFound) {
		return plumbing.Hash{}, false, err
	}

	packed, err := s.dir.ReadPackedRefs()
	if err != nil {
		return plumbing.Hash{}, false, err
	}
	if h, ok := packed[string(name)]; ok {
		return h, true, nil
	}
	return plumbing.Hash{}, false, nil
}
