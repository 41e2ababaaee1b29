package repository

import (
	"io"
	"sort"

	"github.com/pkg/errors"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/object"
)

// SearchOption controls how EnumerateTree descends into subtrees.
type SearchOption int

const (
	// TopOnly emits subtree entries as Tree items without descending.
	TopOnly SearchOption = iota
	// Recursive descends depth-first, in Git tree order (see sortKey), into
	// every subtree.
	Recursive
)

type treeLevel struct {
	entries []object.TreeEntry
	idx     int
	base    string
}

// sortKey orders entries the way Git's tree encoding does: a Tree entry
// compares as if its name had a trailing '/' (spec §3, §4.3).
func sortKey(e object.TreeEntry) string {
	if e.Kind == object.DirTree {
		return e.Name + "/"
	}
	return e.Name
}

func (r *Repository) loadTreeLevel(h plumbing.Hash, base string) (*treeLevel, error) {
	obj, err := r.store.Object(h)
	if err != nil {
		return nil, errors.Wrapf(err, "repository: enumerate tree: load %s", h)
	}
	if obj.Type != plumbing.TreeObject {
		return nil, errors.Wrapf(plumbing.ErrInvalidObject, "repository: %s is a %s, not a tree", h, obj.Type)
	}
	tree, err := object.DecodeTree(obj.Content, r.algo.Size())
	if err != nil {
		return nil, errors.Wrapf(err, "repository: enumerate tree: decode %s", h)
	}

	sorted := append([]object.TreeEntry(nil), tree.Entries...)
	sort.Slice(sorted, func(i, j int) bool { return sortKey(sorted[i]) < sortKey(sorted[j]) })
	return &treeLevel{entries: sorted, base: base}, nil
}

// TreeIterator walks a tree on demand, emitting (path, entry) pairs (spec
// §4.9 "Enumerators": enumerate_tree). Grounded on go-git's
// TreeWalker: a stack of per-directory cursors, descending into subtrees
// as it goes rather than reading the whole tree up front.
type TreeIterator struct {
	repo  *Repository
	opt   SearchOption
	stack []*treeLevel
}

// EnumerateTree walks root's tree starting at path (empty means the tree
// root), emitting every entry under it. With TopOnly, subtree entries are
// emitted without descending; with Recursive, the walk descends depth-first
// in Git tree order (see sortKey).
func (r *Repository) EnumerateTree(root plumbing.Hash, path string, opt SearchOption) (*TreeIterator, error) {
	treeHash, err := r.commitTree(root)
	if err != nil {
		return nil, err
	}
	entry, found, err := r.resolveEntry(treeHash, path)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Wrapf(plumbing.ErrNotFound, "repository: enumerate tree %q", path)
	}
	if entry.Kind != object.DirTree {
		return nil, errors.Wrapf(plumbing.ErrPathConflict, "repository: %q is not a directory", path)
	}

	lvl, err := r.loadTreeLevel(entry.Hash, path)
	if err != nil {
		return nil, err
	}
	return &TreeIterator{repo: r, opt: opt, stack: []*treeLevel{lvl}}, nil
}

// Next returns the next (path, entry) pair, or io.EOF once the walk is
// exhausted.
func (it *TreeIterator) Next() (string, object.TreeEntry, error) {
	for {
		if len(it.stack) == 0 {
			return "", object.TreeEntry{}, io.EOF
		}
		top := it.stack[len(it.stack)-1]
		if top.idx >= len(top.entries) {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}

		e := top.entries[top.idx]
		top.idx++

		full := e.Name
		if top.base != "" {
			full = top.base + "/" + e.Name
		}

		if e.Kind == object.DirTree && it.opt == Recursive {
			lvl, err := it.repo.loadTreeLevel(e.Hash, full)
			if err != nil {
				return "", object.TreeEntry{}, err
			}
			it.stack = append(it.stack, lvl)
		}
		return full, e, nil
	}
}
