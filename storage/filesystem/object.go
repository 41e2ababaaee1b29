// Package filesystem implements storage.Storer against a single ".git"
// directory on disk, composing dotgit for raw filesystem access, objcache
// for the identity cache, and packfile/idxfile for packed-object reads —
// grounded on go-git's storage/filesystem/object.go (ObjectStorage
// shape, lazy per-pack index loading, unpacked-then-packed lookup order).
package filesystem

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-git/go-billy/v5"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/format/idxfile"
	"github.com/gitshelf/gitshelf/plumbing/format/objfile"
	"github.com/gitshelf/gitshelf/plumbing/format/packfile"
	"github.com/gitshelf/gitshelf/storage"
	"github.com/gitshelf/gitshelf/storage/filesystem/dotgit"
	"github.com/gitshelf/gitshelf/storage/objcache"
)

// ObjectStorage implements storage.ObjectStorer against one DotGit layout
// (spec §4.4's lookup order: identity cache, then loose, then packs).
type ObjectStorage struct {
	dir   *dotgit.DotGit
	cache *objcache.Cache

	mu       sync.Mutex
	indexes  map[string]*idxfile.Index
	idxFiles map[string]billy.File // kept open for the Index's lifetime; it reads through this handle
}

// NewObjectStorage wraps dir. cache may be nil, in which case a fresh one
// is created.
func NewObjectStorage(dir *dotgit.DotGit, cache *objcache.Cache) (*ObjectStorage, error) {
	if cache == nil {
		var err error
		cache, err = objcache.New()
		if err != nil {
			return nil, err
		}
	}
	return &ObjectStorage{
		dir:      dir,
		cache:    cache,
		indexes:  make(map[string]*idxfile.Index),
		idxFiles: make(map[string]billy.File),
	}, nil
}

// Close releases every open pack-index file handle.
func (s *ObjectStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, f := range s.idxFiles {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.idxFiles = make(map[string]billy.File)
	s.indexes = make(map[string]*idxfile.Index)
	return firstErr
}

// Object implements storage.ObjectStorer.
func (s *ObjectStorage) Object(h plumbing.Hash) (storage.Object, error) {
	if t, content, ok := s.cache.Get(h); ok {
		return storage.Object{Hash: h, Type: t, Content: content}, nil
	}

	if ok, err := s.dir.HasLooseObject(h); err != nil {
		return storage.Object{}, err
	} else if ok {
		obj, err := s.readLoose(h)
		if err != nil {
			return storage.Object{}, err
		}
		s.cache.Set(h, obj.Type, obj.Content)
		return obj, nil
	}

	obj, found, err := s.findInPacks(h)
	if err != nil {
		return storage.Object{}, err
	}
	if !found {
		return storage.Object{}, fmt.Errorf("%w: object %s", plumbing.ErrNotFound, h)
	}
	s.cache.Set(h, obj.Type, obj.Content)
	return obj, nil
}

// Has implements storage.ObjectStorer.
func (s *ObjectStorage) Has(h plumbing.Hash) (bool, error) {
	if _, _, ok := s.cache.Get(h); ok {
		return true, nil
	}
	if ok, err := s.dir.HasLooseObject(h); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}
	_, found, err := s.findInPacks(h)
	return found, err
}

func (s *ObjectStorage) readLoose(h plumbing.Hash) (storage.Object, error) {
	f, err := s.dir.OpenLooseObject(h)
	if err != nil {
		return storage.Object{}, err
	}
	defer f.Close()

	r, err := objfile.NewReader(f, s.dir.Algorithm())
	if err != nil {
		return storage.Object{}, err
	}
	typ, size, err := r.Header()
	if err != nil {
		return storage.Object{}, err
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return storage.Object{}, err
	}
	if int64(len(content)) != size {
		return storage.Object{}, fmt.Errorf("%w: object %s: declared length %d, got %d", plumbing.ErrInvalidObject, h, size, len(content))
	}
	return storage.Object{Hash: h, Type: typ, Content: content}, nil
}

// ObjectStream implements storage.ObjectStorer: loose objects stream
// directly off the zlib decoder; packed objects are decoded into a buffer
// first, since a delta chain may be involved, then streamed from there.
func (s *ObjectStorage) ObjectStream(h plumbing.Hash) (io.ReadCloser, plumbing.ObjectType, int64, error) {
	if ok, err := s.dir.HasLooseObject(h); err != nil {
		return nil, plumbing.InvalidObject, 0, err
	} else if ok {
		f, err := s.dir.OpenLooseObject(h)
		if err != nil {
			return nil, plumbing.InvalidObject, 0, err
		}
		r, err := objfile.NewReader(f, s.dir.Algorithm())
		if err != nil {
			f.Close()
			return nil, plumbing.InvalidObject, 0, err
		}
		typ, size, err := r.Header()
		if err != nil {
			f.Close()
			return nil, plumbing.InvalidObject, 0, err
		}
		return &looseObjectStream{Reader: r, f: f}, typ, size, nil
	}

	obj, found, err := s.findInPacks(h)
	if err != nil {
		return nil, plumbing.InvalidObject, 0, err
	}
	if !found {
		return nil, plumbing.InvalidObject, 0, fmt.Errorf("%w: object %s", plumbing.ErrNotFound, h)
	}
	return io.NopCloser(bytes.NewReader(obj.Content)), obj.Type, int64(len(obj.Content)), nil
}

type looseObjectStream struct {
	*objfile.Reader
	f billy.File
}

func (s *looseObjectStream) Close() error { return s.f.Close() }

// WriteObject implements storage.ObjectStorer: writes content as a new
// loose object; a preexisting object with the same hash is left as-is
// (spec §4.2 step 3, content-addressed write is idempotent).
func (s *ObjectStorage) WriteObject(t plumbing.ObjectType, content []byte) (plumbing.Hash, error) {
	w, err := s.dir.NewObject()
	if err != nil {
		return plumbing.Hash{}, err
	}
	if err := w.WriteHeader(t, int64(len(content))); err != nil {
		w.Close()
		return plumbing.Hash{}, err
	}
	if _, err := w.Write(content); err != nil {
		w.Close()
		return plumbing.Hash{}, err
	}
	h := w.Hash()
	if err := w.Close(); err != nil {
		return plumbing.Hash{}, err
	}
	s.cache.Set(h, t, content)
	return h, nil
}

// IngestPack decodes every object in a pack stream (resolving its delta
// chains against itself and, for thin packs, against this store) and writes
// each one as a loose object, returning their hashes in pack order (spec
// §4.5, "streaming bulk ingest": delta chains are resolved once here and do
// not reappear at rest). The pack itself is not retained — only the objects
// it contained.
func (s *ObjectStorage) IngestPack(r io.Reader) ([]plumbing.Hash, error) {
	parser := packfile.NewParser(s.dir.Algorithm(), s)
	objs, err := parser.Parse(r)
	if err != nil {
		return nil, err
	}
	hashes := make([]plumbing.Hash, len(objs))
	for i, obj := range objs {
		h, err := s.WriteObject(obj.Type, obj.Content)
		if err != nil {
			return nil, err
		}
		hashes[i] = h
	}
	return hashes, nil
}

// ResolveBase implements packfile.BaseResolver: a REF_DELTA base not
// present in the pack being read is looked up back through this same
// object store (spec §4.5, "resolve the base via the offset cache, then
// store").
func (s *ObjectStorage) ResolveBase(h plumbing.Hash) (plumbing.ObjectType, []byte, error) {
	obj, err := s.Object(h)
	if err != nil {
		return plumbing.InvalidObject, nil, err
	}
	return obj.Type, obj.Content, nil
}

func (s *ObjectStorage) findInPacks(h plumbing.Hash) (storage.Object, bool, error) {
	names, err := s.dir.PackNames()
	if err != nil {
		return storage.Object{}, false, err
	}
	for _, base := range names {
		idx, packFile, err := s.openPackAndIndex(base)
		if err != nil {
			return storage.Object{}, false, err
		}

		offset, err := idx.FindOffset(h)
		if err != nil {
			packFile.Close()
			if errors.Is(err, plumbing.ErrNotFound) {
				continue
			}
			return storage.Object{}, false, err
		}

		parser := packfile.NewParser(s.dir.Algorithm(), s)
		obj, err := parser.ResolveAtOffset(packFile, idx, offset)
		closeErr := packFile.Close()
		if err != nil {
			return storage.Object{}, false, err
		}
		if closeErr != nil {
			return storage.Object{}, false, closeErr
		}
		return storage.Object{Hash: obj.Hash, Type: obj.Type, Content: obj.Content}, true, nil
	}
	return storage.Object{}, false, nil
}

// openPackAndIndex returns the parsed (and memoized) index for base plus a
// freshly opened handle on the ".pack" file itself. The index is parsed at
// most once per base name per ObjectStorage (spec §4.4, "memo-cache their
// parsed form").
func (s *ObjectStorage) openPackAndIndex(base string) (*idxfile.Index, billy.File, error) {
	s.mu.Lock()
	idx, ok := s.indexes[base]
	s.mu.Unlock()

	if !ok {
		idxFile, err := s.dir.OpenPackIndex(base)
		if err != nil {
			return nil, nil, err
		}
		size, err := idxFile.Seek(0, io.SeekEnd)
		if err != nil {
			idxFile.Close()
			return nil, nil, err
		}
		parsed, err := idxfile.Open(idxFile, size, s.dir.Algorithm())
		if err != nil {
			idxFile.Close()
			return nil, nil, err
		}

		s.mu.Lock()
		if existing, ok := s.indexes[base]; ok {
			idx = existing
			idxFile.Close()
		} else {
			s.indexes[base] = parsed
			s.idxFiles[base] = idxFile
			idx = parsed
		}
		s.mu.Unlock()
	}

	packFile, err := s.dir.OpenPack(base)
	if err != nil {
		return nil, nil, err
	}
	return idx, packFile, nil
}
