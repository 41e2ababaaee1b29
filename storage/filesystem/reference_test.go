package filesystem

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/hash"
	"github.com/gitshelf/gitshelf/storage"
	"github.com/gitshelf/gitshelf/storage/filesystem/dotgit"
	"github.com/gitshelf/gitshelf/storage/reflock"
)

func newTestReferenceStorage(t *testing.T) (*ReferenceStorage, *dotgit.DotGit) {
	t.Helper()
	d := dotgit.New(memfs.New(), hash.SHA1)
	require.NoError(t, d.Init(false))
	return NewReferenceStorage(d, reflock.New(), nil), d
}

func testHash(t *testing.T, s string) plumbing.Hash {
	t.Helper()
	h, err := plumbing.FromHex(s)
	require.NoError(t, err)
	return h
}

func TestCompareAndSwapCreatesThenUpdatesRef(t *testing.T) {
	rs, _ := newTestReferenceStorage(t)
	h1 := testHash(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	h2 := testHash(t, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	require.NoError(t, rs.CompareAndSwap("refs/heads/main", nil, &h1))

	ref, err := rs.Reference("refs/heads/main")
	require.NoError(t, err)
	assert.Equal(t, h1, ref.Target.Hash)

	require.NoError(t, rs.CompareAndSwap("refs/heads/main", &h1, &h2))
	ref, err = rs.Reference("refs/heads/main")
	require.NoError(t, err)
	assert.Equal(t, h2, ref.Target.Hash)
}

func TestCompareAndSwapRejectsStaleExpectation(t *testing.T) {
	rs, _ := newTestReferenceStorage(t)
	h1 := testHash(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	h2 := testHash(t, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	h3 := testHash(t, "cccccccccccccccccccccccccccccccccccccccc")

	require.NoError(t, rs.CompareAndSwap("refs/heads/main", nil, &h1))
	err := rs.CompareAndSwap("refs/heads/main", &h2, &h3)
	assert.ErrorIs(t, err, storage.ErrReferenceHasChanged)
}

func TestCompareAndSwapCreateFailsIfAlreadyExists(t *testing.T) {
	rs, _ := newTestReferenceStorage(t)
	h1 := testHash(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	require.NoError(t, rs.CompareAndSwap("refs/heads/main", nil, &h1))
	err := rs.CompareAndSwap("refs/heads/main", nil, &h1)
	assert.ErrorIs(t, err, storage.ErrReferenceHasChanged)
}

func TestCompareAndSwapDeletesRef(t *testing.T) {
	rs, _ := newTestReferenceStorage(t)
	h1 := testHash(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	require.NoError(t, rs.CompareAndSwap("refs/heads/main", nil, &h1))
	require.NoError(t, rs.CompareAndSwap("refs/heads/main", &h1, nil))

	_, err := rs.Reference("refs/heads/main")
	assert.ErrorIs(t, err, plumbing.ErrNotFound)
}

func TestHEADResolvesThroughSymbolicTarget(t *testing.T) {
	rs, _ := newTestReferenceStorage(t)
	h1 := testHash(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	require.NoError(t, rs.CompareAndSwap("refs/heads/main", nil, &h1))

	ref, err := rs.Reference(plumbing.HEAD)
	require.NoError(t, err)
	assert.Equal(t, h1, ref.Target.Hash)
}

func TestIterReferencesIncludesCreatedRefs(t *testing.T) {
	rs, _ := newTestReferenceStorage(t)
	h1 := testHash(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	h2 := testHash(t, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	require.NoError(t, rs.CompareAndSwap("refs/heads/main", nil, &h1))
	require.NoError(t, rs.CompareAndSwap("refs/tags/v1", nil, &h2))

	refs, err := rs.IterReferences()
	require.NoError(t, err)
	assert.Len(t, refs, 2)
}

func TestTryResolveSeesRefWrittenAfterSnapshotLoad(t *testing.T) {
	rs, d := newTestReferenceStorage(t)
	h1 := testHash(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	// force a snapshot load before the ref exists
	_, found, err := rs.TryResolve("refs/heads/main")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, d.WriteLooseRef("refs/heads/main", h1))

	ref, found, err := rs.TryResolve("refs/heads/main")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, h1, ref.Target.Hash)
}

func TestInvalidateClearAllClearsObjectCache(t *testing.T) {
	s := newTestObjectStorage(t)
	rs := NewReferenceStorage(s.dir, reflock.New(), s.cache)

	h, err := s.WriteObject(plumbing.BlobObject, []byte("x"))
	require.NoError(t, err)
	s.cache.Wait()

	rs.Invalidate(true)

	_, _, ok := s.cache.Get(h)
	assert.False(t, ok)
}
