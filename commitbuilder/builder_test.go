package commitbuilder

import (
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/hash"
	"github.com/gitshelf/gitshelf/plumbing/object"
	"github.com/gitshelf/gitshelf/storage/filesystem"
	"github.com/gitshelf/gitshelf/storage/filesystem/dotgit"
	"github.com/gitshelf/gitshelf/storage/reflock"
)

func newTestStores(t *testing.T) (*filesystem.ObjectStorage, *filesystem.ReferenceStorage) {
	t.Helper()
	d := dotgit.New(memfs.New(), hash.SHA1)
	require.NoError(t, d.Init(false))
	objs, err := filesystem.NewObjectStorage(d, nil)
	require.NoError(t, err)
	refs := filesystem.NewReferenceStorage(d, reflock.New(), nil)
	return objs, refs
}

func sig(name string) plumbing.Signature {
	return plumbing.Signature{Name: name, Email: name + "@example.com", When: time.Unix(1700000000, 0).UTC()}
}

func TestAddFileOnEmptyTree(t *testing.T) {
	objs, _ := newTestStores(t)

	b := New(objs, hash.SHA1, plumbing.Hash{})
	b.Apply(AddFile{Path: "README.md", Content: []byte("hello")})
	b.Author(sig("alice")).Committer(sig("alice")).Message("initial commit")

	commitHash, err := b.Build()
	require.NoError(t, err)
	assert.False(t, commitHash.IsZero())

	obj, err := objs.Object(commitHash)
	require.NoError(t, err)
	assert.Equal(t, plumbing.CommitObject, obj.Type)

	c, err := object.DecodeCommit(obj.Content, hash.SHA1.Size())
	require.NoError(t, err)
	assert.Empty(t, c.Parents)
	assert.Equal(t, "initial commit", c.Message)

	tree, err := objs.Object(c.Tree)
	require.NoError(t, err)
	tr, err := object.DecodeTree(tree.Content, hash.SHA1.Size())
	require.NoError(t, err)
	require.Len(t, tr.Entries, 1)
	assert.Equal(t, "README.md", tr.Entries[0].Name)
}

func TestAddFileNestedCreatesIntermediateDirectories(t *testing.T) {
	objs, _ := newTestStores(t)

	b := New(objs, hash.SHA1, plumbing.Hash{})
	b.Apply(AddFile{Path: "src/pkg/main.go", Content: []byte("package main")})
	b.Author(sig("alice")).Committer(sig("alice")).Message("add main")

	commitHash, err := b.Build()
	require.NoError(t, err)

	obj, _ := objs.Object(commitHash)
	c, err := object.DecodeCommit(obj.Content, hash.SHA1.Size())
	require.NoError(t, err)

	rootTreeObj, err := objs.Object(c.Tree)
	require.NoError(t, err)
	rootTree, err := object.DecodeTree(rootTreeObj.Content, hash.SHA1.Size())
	require.NoError(t, err)
	require.Len(t, rootTree.Entries, 1)
	assert.Equal(t, "src", rootTree.Entries[0].Name)
	assert.Equal(t, object.DirTree, rootTree.Entries[0].Kind)
}

func TestAddFileConflictsWithExistingPath(t *testing.T) {
	objs, _ := newTestStores(t)

	base := New(objs, hash.SHA1, plumbing.Hash{})
	base.Apply(AddFile{Path: "a.txt", Content: []byte("1")})
	base.Author(sig("a")).Committer(sig("a")).Message("m1")
	c1, err := base.Build()
	require.NoError(t, err)

	parentTree := mustTree(t, objs, c1)

	next := New(objs, hash.SHA1, parentTree, c1)
	next.Apply(AddFile{Path: "a.txt", Content: []byte("2")})
	_, err = next.Build()
	assert.ErrorIs(t, err, plumbing.ErrPathConflict)
}

func TestUpdateFileRejectsStaleExpectedHash(t *testing.T) {
	objs, _ := newTestStores(t)

	base := New(objs, hash.SHA1, plumbing.Hash{})
	base.Apply(AddFile{Path: "a.txt", Content: []byte("1")})
	base.Author(sig("a")).Committer(sig("a")).Message("m1")
	c1, err := base.Build()
	require.NoError(t, err)
	parentTree := mustTree(t, objs, c1)

	stale := hashObject(hash.SHA1, plumbing.BlobObject, []byte("not the real content"))

	next := New(objs, hash.SHA1, parentTree, c1)
	next.Apply(UpdateFile{Path: "a.txt", Content: []byte("2"), ExpectedPreviousHash: &stale})
	_, err = next.Build()
	assert.ErrorIs(t, err, plumbing.ErrConflict)
}

func TestUpdateFileSucceedsWithMatchingExpectedHash(t *testing.T) {
	objs, _ := newTestStores(t)

	base := New(objs, hash.SHA1, plumbing.Hash{})
	base.Apply(AddFile{Path: "a.txt", Content: []byte("1")})
	base.Author(sig("a")).Committer(sig("a")).Message("m1")
	c1, err := base.Build()
	require.NoError(t, err)
	parentTree := mustTree(t, objs, c1)

	correct := hashObject(hash.SHA1, plumbing.BlobObject, []byte("1"))

	next := New(objs, hash.SHA1, parentTree, c1)
	next.Apply(UpdateFile{Path: "a.txt", Content: []byte("2"), ExpectedPreviousHash: &correct})
	next.Author(sig("a")).Committer(sig("a")).Message("m2")
	c2, err := next.Build()
	require.NoError(t, err)
	assert.False(t, c2.IsZero())
}

func TestUpdateFileWithUnchangedContentIsNoEffectiveChange(t *testing.T) {
	objs, _ := newTestStores(t)

	base := New(objs, hash.SHA1, plumbing.Hash{})
	base.Apply(AddFile{Path: "a.txt", Content: []byte("same")})
	base.Author(sig("a")).Committer(sig("a")).Message("m1")
	c1, err := base.Build()
	require.NoError(t, err)
	parentTree := mustTree(t, objs, c1)

	next := New(objs, hash.SHA1, parentTree, c1)
	next.Apply(UpdateFile{Path: "a.txt", Content: []byte("same")})
	next.Author(sig("a")).Committer(sig("a")).Message("m2")
	_, err = next.Build()
	assert.ErrorIs(t, err, plumbing.ErrNoEffectiveChanges)
}

func TestRemoveFileGarbageCollectsEmptyDirectory(t *testing.T) {
	objs, _ := newTestStores(t)

	base := New(objs, hash.SHA1, plumbing.Hash{})
	base.Apply(AddFile{Path: "dir/only.txt", Content: []byte("x")})
	base.Author(sig("a")).Committer(sig("a")).Message("m1")
	c1, err := base.Build()
	require.NoError(t, err)
	parentTree := mustTree(t, objs, c1)

	next := New(objs, hash.SHA1, parentTree, c1)
	next.Apply(RemoveFile{Path: "dir/only.txt"})
	next.Author(sig("a")).Committer(sig("a")).Message("m2")
	c2, err := next.Build()
	require.NoError(t, err)

	tree2 := mustTree(t, objs, c2)
	treeObj, err := objs.Object(tree2)
	require.NoError(t, err)
	tr, err := object.DecodeTree(treeObj.Content, hash.SHA1.Size())
	require.NoError(t, err)
	assert.Empty(t, tr.Entries)
}

func TestMoveFilePreservesBlobIdentity(t *testing.T) {
	objs, _ := newTestStores(t)

	base := New(objs, hash.SHA1, plumbing.Hash{})
	base.Apply(AddFile{Path: "old/name.txt", Content: []byte("payload")})
	base.Author(sig("a")).Committer(sig("a")).Message("m1")
	c1, err := base.Build()
	require.NoError(t, err)
	parentTree := mustTree(t, objs, c1)

	next := New(objs, hash.SHA1, parentTree, c1)
	next.Apply(MoveFile{OldPath: "old/name.txt", NewPath: "new/name.txt"})
	next.Author(sig("a")).Committer(sig("a")).Message("m2")
	c2, err := next.Build()
	require.NoError(t, err)

	tree2 := mustTree(t, objs, c2)
	treeObj, err := objs.Object(tree2)
	require.NoError(t, err)
	tr, err := object.DecodeTree(treeObj.Content, hash.SHA1.Size())
	require.NoError(t, err)
	require.Len(t, tr.Entries, 1)
	assert.Equal(t, "new", tr.Entries[0].Name)

	subObj, err := objs.Object(tr.Entries[0].Hash)
	require.NoError(t, err)
	sub, err := object.DecodeTree(subObj.Content, hash.SHA1.Size())
	require.NoError(t, err)
	require.Len(t, sub.Entries, 1)
	assert.Equal(t, "name.txt", sub.Entries[0].Name)
	assert.True(t, sub.Entries[0].Hash.Equal(hashObject(hash.SHA1, plumbing.BlobObject, []byte("payload"))))
}

func TestBuildRequiresAuthorAndCommitter(t *testing.T) {
	objs, _ := newTestStores(t)
	b := New(objs, hash.SHA1, plumbing.Hash{})
	b.Apply(AddFile{Path: "a.txt", Content: []byte("x")})
	_, err := b.Build()
	assert.ErrorIs(t, err, plumbing.ErrInvalidArgument)
}

func TestUpdateReferenceThenIsCommitReachable(t *testing.T) {
	objs, refs := newTestStores(t)

	b1 := New(objs, hash.SHA1, plumbing.Hash{})
	b1.Apply(AddFile{Path: "a.txt", Content: []byte("1")})
	b1.Author(sig("a")).Committer(sig("a")).Message("m1")
	c1, err := b1.Build()
	require.NoError(t, err)
	require.NoError(t, UpdateReference(refs, "refs/heads/main", plumbing.Hash{}, c1))

	parentTree := mustTree(t, objs, c1)
	b2 := New(objs, hash.SHA1, parentTree, c1)
	b2.Apply(AddFile{Path: "b.txt", Content: []byte("2")})
	b2.Author(sig("a")).Committer(sig("a")).Message("m2")
	c2, err := b2.Build()
	require.NoError(t, err)
	require.NoError(t, UpdateReference(refs, "refs/heads/main", c1, c2))

	ref, err := refs.Reference("refs/heads/main")
	require.NoError(t, err)
	assert.True(t, ref.Target.Hash.Equal(c2))

	reachable, err := IsCommitReachable(objs, hash.SHA1, c2, c1)
	require.NoError(t, err)
	assert.True(t, reachable)

	reachable, err = IsCommitReachable(objs, hash.SHA1, c1, c2)
	require.NoError(t, err)
	assert.False(t, reachable)
}

func mustTree(t *testing.T, objs *filesystem.ObjectStorage, commitHash plumbing.Hash) plumbing.Hash {
	t.Helper()
	obj, err := objs.Object(commitHash)
	require.NoError(t, err)
	c, err := object.DecodeCommit(obj.Content, hash.SHA1.Size())
	require.NoError(t, err)
	return c.Tree
}
