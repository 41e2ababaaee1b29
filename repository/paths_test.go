package repository

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitshelf/gitshelf/commitbuilder"
	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/object"
)

func TestReadFileResolvesNestedPath(t *testing.T) {
	r := newTestRepo(t)
	c1 := commit(t, r, plumbing.Hash{}, "refs/heads/main", "c1",
		commitbuilder.AddFile{Path: "src/pkg/main.go", Content: []byte("package main")})

	content, err := r.ReadFile(c1, "src/pkg/main.go")
	require.NoError(t, err)
	assert.Equal(t, "package main", string(content))
}

func TestReadFileMissingPathIsNotFound(t *testing.T) {
	r := newTestRepo(t)
	c1 := commit(t, r, plumbing.Hash{}, "refs/heads/main", "c1",
		commitbuilder.AddFile{Path: "a.txt", Content: []byte("1")})

	_, err := r.ReadFile(c1, "missing.txt")
	assert.ErrorIs(t, err, plumbing.ErrNotFound)
}

func TestReadFileOnDirectoryIsPathConflict(t *testing.T) {
	r := newTestRepo(t)
	c1 := commit(t, r, plumbing.Hash{}, "refs/heads/main", "c1",
		commitbuilder.AddFile{Path: "dir/a.txt", Content: []byte("1")})

	_, err := r.ReadFile(c1, "dir")
	assert.ErrorIs(t, err, plumbing.ErrPathConflict)
}

func TestReadFileStreamMatchesReadFile(t *testing.T) {
	r := newTestRepo(t)
	c1 := commit(t, r, plumbing.Hash{}, "refs/heads/main", "c1",
		commitbuilder.AddFile{Path: "a.txt", Content: []byte("hello world")})

	rc, size, err := r.ReadFileStream(c1, "a.txt")
	require.NoError(t, err)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
	assert.EqualValues(t, len("hello world"), size)
}

func TestPathPredicates(t *testing.T) {
	r := newTestRepo(t)
	c1 := commit(t, r, plumbing.Hash{}, "refs/heads/main", "c1",
		commitbuilder.AddFile{Path: "dir/a.txt", Content: []byte("1")})

	fileExists, err := r.FileExists(c1, "dir/a.txt")
	require.NoError(t, err)
	assert.True(t, fileExists)

	dirExists, err := r.DirectoryExists(c1, "dir")
	require.NoError(t, err)
	assert.True(t, dirExists)

	exists, err := r.PathExists(c1, "nope")
	require.NoError(t, err)
	assert.False(t, exists)

	kind, found, err := r.GetPathType(c1, "")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, object.DirTree, kind)
}

func TestPathPredicatesDefaultToHead(t *testing.T) {
	r := newTestRepo(t)
	commit(t, r, plumbing.Hash{}, "refs/heads/main", "c1",
		commitbuilder.AddFile{Path: "a.txt", Content: []byte("1")})

	exists, err := r.FileExists(plumbing.Hash{}, "a.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}
