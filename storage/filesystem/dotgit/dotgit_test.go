package dotgit

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/hash"
)

func newTestDotGit(t *testing.T) *DotGit {
	t.Helper()
	d := New(memfs.New(), hash.SHA1)
	require.NoError(t, d.Init(false))
	return d
}

func TestInitLaysOutStandardDirectories(t *testing.T) {
	d := newTestDotGit(t)

	for _, dir := range []string{
		d.Join("objects", "info"),
		d.Join("objects", "pack"),
		d.Join("refs", "heads"),
		d.Join("refs", "tags"),
	} {
		_, err := d.Root().Stat(dir)
		assert.NoError(t, err, dir)
	}

	head, err := d.ReadHEAD()
	require.NoError(t, err)
	assert.True(t, head.Target.IsSymbolic())
	assert.Equal(t, plumbing.ReferenceName("refs/heads/main"), head.Target.Symref)
}

func TestInitTwiceFails(t *testing.T) {
	d := newTestDotGit(t)
	err := d.Init(false)
	assert.ErrorIs(t, err, plumbing.ErrInvalidArgument)
}

func TestLooseObjectRoundTrip(t *testing.T) {
	d := newTestDotGit(t)

	w, err := d.NewObject()
	require.NoError(t, err)
	content := []byte("blob content")
	require.NoError(t, w.WriteHeader(plumbing.BlobObject, int64(len(content))))
	_, err = w.Write(content)
	require.NoError(t, err)
	h := w.Hash()
	require.NoError(t, w.Close())

	ok, err := d.HasLooseObject(h)
	require.NoError(t, err)
	assert.True(t, ok)

	f, err := d.OpenLooseObject(h)
	require.NoError(t, err)
	defer f.Close()
}

func TestHasLooseObjectMissing(t *testing.T) {
	d := newTestDotGit(t)
	ok, err := d.HasLooseObject(plumbing.Hash{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPackNamesDeduped(t *testing.T) {
	d := newTestDotGit(t)

	for _, name := range []string{"pack-aaaa.pack", "pack-aaaa.idx", "pack-bbbb.pack"} {
		f, err := d.Root().Create(d.Join("objects", "pack", name))
		require.NoError(t, err)
		f.Close()
	}

	names, err := d.PackNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"pack-aaaa", "pack-bbbb"}, names)
}

func TestReadConfigReflectsBareFlag(t *testing.T) {
	fs := memfs.New()
	d := New(fs, hash.SHA1)
	require.NoError(t, d.Init(true))

	cfg, err := d.ReadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Core.Bare)
}
