package repository

import (
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/object"
)

// resolveEntry walks path down from root (a tree hash), returning the
// TreeEntry it names. An empty path means the root itself, which
// resolveEntry reports as a synthetic DirTree entry (spec §4.9 "Empty path
// is treated as root tree").
func (r *Repository) resolveEntry(root plumbing.Hash, path string) (object.TreeEntry, bool, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return object.TreeEntry{Kind: object.DirTree, Hash: root}, true, nil
	}

	cur := root
	parts := strings.Split(path, "/")
	var entry object.TreeEntry
	for i, part := range parts {
		obj, err := r.store.Object(cur)
		if err != nil {
			return object.TreeEntry{}, false, errors.Wrapf(err, "repository: resolve %q", path)
		}
		if obj.Type != plumbing.TreeObject {
			return object.TreeEntry{}, false, nil
		}
		tree, err := object.DecodeTree(obj.Content, r.algo.Size())
		if err != nil {
			return object.TreeEntry{}, false, errors.Wrapf(err, "repository: decode tree for %q", path)
		}

		found := false
		for _, e := range tree.Entries {
			if e.Name == part {
				entry = e
				found = true
				break
			}
		}
		if !found {
			return object.TreeEntry{}, false, nil
		}
		if i < len(parts)-1 && entry.Kind != object.DirTree {
			return object.TreeEntry{}, false, nil
		}
		cur = entry.Hash
	}
	return entry, true, nil
}

// GetPathType reports the kind of entry at path under root's tree, and
// whether it exists at all (spec §4.9 "Path predicates").
func (r *Repository) GetPathType(root plumbing.Hash, path string) (object.EntryKind, bool, error) {
	treeHash, err := r.commitTree(root)
	if err != nil {
		return 0, false, err
	}
	entry, found, err := r.resolveEntry(treeHash, path)
	if err != nil || !found {
		return 0, found, err
	}
	return entry.Kind, true, nil
}

// FileExists reports whether path names a blob (regular or executable) or
// symlink.
func (r *Repository) FileExists(root plumbing.Hash, path string) (bool, error) {
	kind, found, err := r.GetPathType(root, path)
	if err != nil || !found {
		return false, err
	}
	return kind == object.Blob || kind == object.ExecutableBlob || kind == object.Symlink, nil
}

// DirectoryExists reports whether path names a tree.
func (r *Repository) DirectoryExists(root plumbing.Hash, path string) (bool, error) {
	kind, found, err := r.GetPathType(root, path)
	if err != nil || !found {
		return false, err
	}
	return kind == object.DirTree, nil
}

// PathExists reports whether path names anything at all.
func (r *Repository) PathExists(root plumbing.Hash, path string) (bool, error) {
	_, found, err := r.GetPathType(root, path)
	return found, err
}

// ReadFile resolves path under root's tree to a blob and returns its full
// content (spec §4.9 "Read file").
func (r *Repository) ReadFile(root plumbing.Hash, path string) ([]byte, error) {
	treeHash, err := r.commitTree(root)
	if err != nil {
		return nil, err
	}
	entry, found, err := r.resolveEntry(treeHash, path)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Wrapf(plumbing.ErrNotFound, "repository: read file %q", path)
	}
	if entry.Kind == object.DirTree {
		return nil, errors.Wrapf(plumbing.ErrPathConflict, "repository: %q is a directory", path)
	}

	obj, err := r.store.Object(entry.Hash)
	if err != nil {
		return nil, errors.Wrapf(err, "repository: read file %q", path)
	}
	return obj.Content, nil
}

// ReadFileStream behaves like ReadFile but returns a streaming reader and
// the blob's declared length instead of materializing its content.
func (r *Repository) ReadFileStream(root plumbing.Hash, path string) (io.ReadCloser, int64, error) {
	treeHash, err := r.commitTree(root)
	if err != nil {
		return nil, 0, err
	}
	entry, found, err := r.resolveEntry(treeHash, path)
	if err != nil {
		return nil, 0, err
	}
	if !found {
		return nil, 0, errors.Wrapf(plumbing.ErrNotFound, "repository: read file stream %q", path)
	}
	if entry.Kind == object.DirTree {
		return nil, 0, errors.Wrapf(plumbing.ErrPathConflict, "repository: %q is a directory", path)
	}

	rc, _, size, err := r.store.ObjectStream(entry.Hash)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "repository: read file stream %q", path)
	}
	return rc, size, nil
}
