package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitshelf/gitshelf/commitbuilder"
	"github.com/gitshelf/gitshelf/plumbing"
)

func TestIsAncestor(t *testing.T) {
	r := newTestRepo(t)
	c1 := commit(t, r, plumbing.Hash{}, "refs/heads/main", "c1",
		commitbuilder.AddFile{Path: "a.txt", Content: []byte("1")})
	c2 := commit(t, r, c1, "refs/heads/main", "c2",
		commitbuilder.AddFile{Path: "b.txt", Content: []byte("2")})

	ok, err := r.IsAncestor(c1, c2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.IsAncestor(c2, c1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.IsAncestor(c1, c1)
	require.NoError(t, err)
	assert.True(t, ok)
}
