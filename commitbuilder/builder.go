package commitbuilder

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/hash"
	"github.com/gitshelf/gitshelf/plumbing/object"
	"github.com/gitshelf/gitshelf/storage"
)

// Builder accumulates Operations against a parent tree and produces a new
// commit object (spec §4.8). The zero value is not usable; build one with
// New.
type Builder struct {
	store storage.ObjectStorer
	algo  hash.Algorithm

	parents     []plumbing.Hash
	root        *node
	initialTree plumbing.Hash

	author    plumbing.Signature
	committer plumbing.Signature
	message   string

	err error
}

// New starts a builder for a commit whose tree begins as parentTree's
// (plumbing.Hash{} for an initial, empty-tree commit) and whose parents
// are parents in order.
func New(store storage.ObjectStorer, algo hash.Algorithm, parentTree plumbing.Hash, parents ...plumbing.Hash) *Builder {
	return &Builder{
		store:       store,
		algo:        algo,
		parents:     append([]plumbing.Hash(nil), parents...),
		root:        newTreeNode(parentTree),
		initialTree: parentTree,
	}
}

// Author sets the commit's author signature.
func (b *Builder) Author(sig plumbing.Signature) *Builder { b.author = sig; return b }

// Committer sets the commit's committer signature.
func (b *Builder) Committer(sig plumbing.Signature) *Builder { b.committer = sig; return b }

// Message sets the commit message.
func (b *Builder) Message(msg string) *Builder { b.message = msg; return b }

// Apply queues one or more Operations, applying each against the current
// in-memory tree immediately so later operations see earlier ones' effects.
// The first error encountered is sticky: subsequent calls become no-ops and
// Build returns it.
func (b *Builder) Apply(ops ...Operation) *Builder {
	for _, op := range ops {
		if b.err != nil {
			return b
		}
		if err := b.apply(op); err != nil {
			b.err = errors.Wrapf(err, "commitbuilder: apply %T", op)
		}
	}
	return b
}

func (b *Builder) apply(op Operation) error {
	switch o := op.(type) {
	case AddFile:
		return b.addFile(o.Path, o.Content)
	case AddFileStream:
		content, err := io.ReadAll(o.Content)
		if err != nil {
			return err
		}
		return b.addFile(o.Path, content)
	case UpdateFile:
		return b.updateFile(o.Path, o.Content, o.ExpectedPreviousHash)
	case UpdateFileStream:
		content, err := io.ReadAll(o.Content)
		if err != nil {
			return err
		}
		return b.updateFile(o.Path, content, o.ExpectedPreviousHash)
	case RemoveFile:
		return b.removeFile(o.Path)
	case MoveFile:
		return b.moveFile(o.OldPath, o.NewPath)
	default:
		return fmt.Errorf("%w: commitbuilder: unknown operation %T", plumbing.ErrInvalidArgument, op)
	}
}

func splitPath(path string) ([]string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, fmt.Errorf("%w: commitbuilder: empty path", plumbing.ErrInvalidArgument)
	}
	return strings.Split(path, "/"), nil
}

// walk resolves path down to its parent directory node, returning that
// node, the leaf name, and the chain of ancestors from root to parent
// (inclusive of both) for dirty-marking and GC.
// Intermediate directories are created on demand when create is true.
func (b *Builder) walk(path string, create bool) (parent *node, leaf string, ancestors []*node, err error) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, "", nil, err
	}

	cur := b.root
	ancestors = []*node{cur}
	for _, part := range parts[:len(parts)-1] {
		if err := ensureExpanded(cur, b.store, b.algo); err != nil {
			return nil, "", nil, err
		}
		child, found := cur.get(part)
		if !found {
			if !create {
				return nil, "", nil, fmt.Errorf("%w: path %q does not exist", plumbing.ErrNotFound, path)
			}
			child = &node{kind: dirTree, children: nil}
			cur.children.Put(part, child)
		} else if child.kind != dirTree {
			return nil, "", nil, &pathConflictError{path: part}
		}
		cur = child
		ancestors = append(ancestors, cur)
	}

	if err := ensureExpanded(cur, b.store, b.algo); err != nil {
		return nil, "", nil, err
	}
	return cur, parts[len(parts)-1], ancestors, nil
}

func markDirty(ancestors []*node, leaf *node) {
	for _, a := range ancestors {
		a.dirty = true
	}
	if leaf != nil {
		leaf.dirty = true
	}
}

func (b *Builder) addFile(path string, content []byte) error {
	parent, leaf, ancestors, err := b.walk(path, true)
	if err != nil {
		return err
	}
	if existing, found := parent.get(leaf); found {
		if existing.kind == dirTree {
			if err := ensureExpanded(existing, b.store, b.algo); err != nil {
				return err
			}
			if existing.children.Size() > 0 {
				return &pathConflictError{path: path, descendant: firstKey(existing.children)}
			}
		}
		return fmt.Errorf("%w: path %q already exists", plumbing.ErrPathConflict, path)
	}

	n := &node{kind: fileBlob, content: content, dirty: true}
	parent.children.Put(leaf, n)
	markDirty(ancestors, nil)
	return nil
}

func firstKey(m interface{ Keys() []interface{} }) string {
	keys := m.Keys()
	if len(keys) == 0 {
		return ""
	}
	return keys[0].(string)
}

func (b *Builder) updateFile(path string, content []byte, expectedPrev *plumbing.Hash) error {
	parent, leaf, ancestors, err := b.walk(path, false)
	if err != nil {
		return err
	}
	existing, found := parent.get(leaf)
	if !found {
		return fmt.Errorf("%w: path %q does not exist", plumbing.ErrNotFound, path)
	}
	if existing.kind == dirTree {
		return &pathConflictError{path: path}
	}

	currentHash := existing.hash
	if existing.dirty || currentHash.IsZero() {
		currentHash = hashObject(b.algo, plumbing.BlobObject, existing.content)
	}
	if expectedPrev != nil && !expectedPrev.Equal(currentHash) {
		return fmt.Errorf("%w: path %q: expected blob %s, found %s", plumbing.ErrConflict, path, *expectedPrev, currentHash)
	}

	if existing.content != nil && contentEqual(existing.content, content) {
		return nil
	}
	if existing.content == nil {
		old, err := b.store.Object(existing.hash)
		if err != nil {
			return err
		}
		if contentEqual(old.Content, content) {
			return nil
		}
	}

	existing.content = content
	existing.hash = plumbing.Hash{}
	markDirty(ancestors, existing)
	return nil
}

func (b *Builder) removeFile(path string) error {
	parent, leaf, ancestors, err := b.walk(path, false)
	if err != nil {
		return err
	}
	if _, found := parent.get(leaf); !found {
		return fmt.Errorf("%w: path %q does not exist", plumbing.ErrNotFound, path)
	}
	parent.children.Remove(leaf)
	markDirty(ancestors, nil)
	gcEmptyAncestors(ancestors)
	return nil
}

// gcEmptyAncestors removes now-empty directories from their own parent,
// walking from the leaf's parent back toward (but never removing) root.
func gcEmptyAncestors(ancestors []*node) {
	for i := len(ancestors) - 1; i > 0; i-- {
		dir := ancestors[i]
		if dir.children.Size() > 0 {
			break
		}
		parent := ancestors[i-1]
		for _, name := range parent.children.Keys() {
			if v, _ := parent.children.Get(name); v.(*node) == dir {
				parent.children.Remove(name)
				break
			}
		}
	}
}

func (b *Builder) moveFile(oldPath, newPath string) error {
	oldParent, oldLeaf, oldAncestors, err := b.walk(oldPath, false)
	if err != nil {
		return err
	}
	existing, found := oldParent.get(oldLeaf)
	if !found {
		return fmt.Errorf("%w: path %q does not exist", plumbing.ErrNotFound, oldPath)
	}
	if existing.kind == dirTree {
		return &pathConflictError{path: oldPath}
	}

	newParent, newLeaf, newAncestors, err := b.walk(newPath, true)
	if err != nil {
		return err
	}
	if _, found := newParent.get(newLeaf); found {
		return fmt.Errorf("%w: path %q already exists", plumbing.ErrPathConflict, newPath)
	}

	oldParent.children.Remove(oldLeaf)
	markDirty(oldAncestors, nil)
	gcEmptyAncestors(oldAncestors)

	newParent.children.Put(newLeaf, existing)
	// existing keeps its own hash/content untouched: only the directories
	// above it changed, not the blob itself.
	markDirty(newAncestors, nil)
	return nil
}

// Build serializes the mutated tree bottom-up, writes the commit object,
// and returns its hash. It does not update any reference; see
// UpdateReference for the CAS ref write.
func (b *Builder) Build() (plumbing.Hash, error) {
	if b.err != nil {
		return plumbing.Hash{}, b.err
	}

	if b.author.Name == "" || b.author.Email == "" {
		return plumbing.Hash{}, fmt.Errorf("%w: commitbuilder: author signature is required", plumbing.ErrInvalidArgument)
	}
	if b.committer.Name == "" || b.committer.Email == "" {
		return plumbing.Hash{}, fmt.Errorf("%w: commitbuilder: committer signature is required", plumbing.ErrInvalidArgument)
	}

	newTreeHash, err := serialize(b.root, b.store, b.algo)
	if err != nil {
		return plumbing.Hash{}, errors.Wrap(err, "commitbuilder: serialize tree")
	}
	// A merge commit (more than one parent) is meaningful on its parent
	// list alone: an identical resulting tree is an ordinary, valid merge
	// outcome, not a no-op. Only a single-parent (or initial) commit with
	// an unchanged tree is rejected.
	if len(b.parents) <= 1 && newTreeHash.Equal(b.initialTree) {
		return plumbing.Hash{}, plumbing.ErrNoEffectiveChanges
	}

	c := &object.Commit{
		Tree:      newTreeHash,
		Parents:   b.parents,
		Author:    b.author,
		Committer: b.committer,
		Message:   b.message,
	}
	content := c.Encode()
	commitHash, err := b.store.WriteObject(plumbing.CommitObject, content)
	if err != nil {
		return plumbing.Hash{}, errors.Wrap(err, "commitbuilder: write commit object")
	}
	return commitHash, nil
}
