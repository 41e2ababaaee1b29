package filesystem

import (
	"github.com/gitshelf/gitshelf/storage"
	"github.com/gitshelf/gitshelf/storage/filesystem/dotgit"
	"github.com/gitshelf/gitshelf/storage/objcache"
	"github.com/gitshelf/gitshelf/storage/reflock"
)

// Storage composes an ObjectStorage and a ReferenceStorage, sharing one
// DotGit and one identity cache, into a single storage.Storer — grounded on
// go-git's storage/filesystem/storage.go, narrowed to the two stores
// this core defines (no index/shallow/module/config storage).
type Storage struct {
	*ObjectStorage
	*ReferenceStorage
}

var _ storage.Storer = (*Storage)(nil)

// NewStorage wraps dir with an ObjectStorage and a ReferenceStorage sharing
// one identity cache and one lock manager.
func NewStorage(dir *dotgit.DotGit, locks *reflock.Manager) (*Storage, error) {
	cache, err := objcache.New()
	if err != nil {
		return nil, err
	}
	objs, err := NewObjectStorage(dir, cache)
	if err != nil {
		return nil, err
	}
	refs := NewReferenceStorage(dir, locks, cache)
	return &Storage{ObjectStorage: objs, ReferenceStorage: refs}, nil
}

// Close releases resources held by the object store (open pack index
// handles).
func (s *Storage) Close() error {
	return s.ObjectStorage.Close()
}
