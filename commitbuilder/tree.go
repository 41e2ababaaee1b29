package commitbuilder

import (
	"bytes"
	"fmt"

	"github.com/emirpasic/gods/maps/linkedhashmap"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/format/objfile"
	"github.com/gitshelf/gitshelf/plumbing/hash"
	"github.com/gitshelf/gitshelf/plumbing/object"
	"github.com/gitshelf/gitshelf/storage"
)

// node is one entry in the mutable in-memory tree built while applying
// Operations. A node with a known hash and dirty==false is untouched since
// it was loaded and is serialized by reusing that hash verbatim.
type node struct {
	kind EntryKind

	hash  plumbing.Hash
	dirty bool

	// content holds pending blob bytes not yet hashed/written (kind ==
	// fileBlob or fileExecBlob).
	content []byte

	// children holds this tree's entries, name -> *node, preserving
	// insertion order (gods/linkedhashmap) until the final Git sort at
	// Encode time. nil until expanded.
	children *linkedhashmap.Map
	expanded bool
}

// EntryKind mirrors object.EntryKind's file/dir distinction as seen by the
// builder (submodules and symlinks pass through read-only; this core does
// not create them).
type EntryKind int8

const (
	fileBlob EntryKind = iota
	fileExecBlob
	dirTree
)

func newTreeNode(h plumbing.Hash) *node {
	return &node{kind: dirTree, hash: h}
}

// ensureExpanded loads n's children from the object store on first use. A
// zero hash means an empty (new) directory.
func ensureExpanded(n *node, store storage.ObjectStorer, algo hash.Algorithm) error {
	if n.expanded {
		return nil
	}
	n.children = linkedhashmap.New()
	n.expanded = true

	if n.hash.IsZero() {
		return nil
	}

	obj, err := store.Object(n.hash)
	if err != nil {
		return err
	}
	tree, err := object.DecodeTree(obj.Content, algo.Size())
	if err != nil {
		return err
	}
	for _, e := range tree.Entries {
		child := &node{hash: e.Hash}
		switch e.Kind {
		case object.DirTree:
			child.kind = dirTree
		case object.ExecutableBlob:
			child.kind = fileExecBlob
		default:
			child.kind = fileBlob
		}
		n.children.Put(e.Name, child)
	}
	return nil
}

func (n *node) get(name string) (*node, bool) {
	v, found := n.children.Get(name)
	if !found {
		return nil, false
	}
	return v.(*node), true
}

func hashObject(algo hash.Algorithm, t plumbing.ObjectType, content []byte) plumbing.Hash {
	w := objfile.NewWriter(discard{}, algo)
	_ = w.WriteHeader(t, int64(len(content)))
	_, _ = w.Write(content)
	h := w.Hash()
	_ = w.Close()
	return h
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// serialize writes every dirty descendant bottom-up and returns n's final
// hash (its own hash if untouched).
func serialize(n *node, store storage.ObjectStorer, algo hash.Algorithm) (plumbing.Hash, error) {
	if n.kind != dirTree {
		if !n.dirty {
			return n.hash, nil
		}
		h, err := store.WriteObject(blobObjectType(n.kind), n.content)
		if err != nil {
			return plumbing.Hash{}, err
		}
		n.hash = h
		n.dirty = false
		return h, nil
	}

	if !n.dirty {
		return n.hash, nil
	}

	var entries []object.TreeEntry
	for _, name := range n.children.Keys() {
		child, _ := n.get(name.(string))
		h, err := serialize(child, store, algo)
		if err != nil {
			return plumbing.Hash{}, err
		}
		entries = append(entries, object.TreeEntry{
			Name: name.(string),
			Mode: modeFor(child.kind),
			Kind: objectKind(child.kind),
			Hash: h,
		})
	}

	tree := &object.Tree{Entries: entries}
	content, err := tree.Encode()
	if err != nil {
		return plumbing.Hash{}, err
	}
	h, err := store.WriteObject(plumbing.TreeObject, content)
	if err != nil {
		return plumbing.Hash{}, err
	}
	n.hash = h
	n.dirty = false
	return h, nil
}

func blobObjectType(k EntryKind) plumbing.ObjectType {
	if k == dirTree {
		return plumbing.TreeObject
	}
	return plumbing.BlobObject
}

func objectKind(k EntryKind) object.EntryKind {
	switch k {
	case dirTree:
		return object.DirTree
	case fileExecBlob:
		return object.ExecutableBlob
	default:
		return object.Blob
	}
}

func modeFor(k EntryKind) int {
	switch k {
	case dirTree:
		return 0o040000
	case fileExecBlob:
		return 0o100755
	default:
		return 0o100644
	}
}

// pathConflictError carries a PathConflict: the offending existing path,
// and where relevant a descendant blocking the operation.
type pathConflictError struct {
	path       string
	descendant string
}

func (e *pathConflictError) Error() string {
	if e.descendant != "" {
		return fmt.Sprintf("path conflict: %q blocked by existing entry at %q (contains %q)", e.path, e.path, e.descendant)
	}
	return fmt.Sprintf("path conflict: %q", e.path)
}

func (e *pathConflictError) Unwrap() error { return plumbing.ErrPathConflict }

func contentEqual(a, b []byte) bool { return bytes.Equal(a, b) }
