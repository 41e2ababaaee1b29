package objfile

import (
	"bytes"
	"io"
	"testing"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/hash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	content := []byte("# hello\n")

	var buf bytes.Buffer
	w := NewWriter(&buf, hash.SHA1)
	require.NoError(t, w.WriteHeader(plumbing.BlobObject, int64(len(content))))
	_, err := w.Write(content)
	require.NoError(t, err)
	wantHash := w.Hash()
	require.NoError(t, w.Close())

	r, err := NewReader(&buf, hash.SHA1)
	require.NoError(t, err)
	typ, size, err := r.Header()
	require.NoError(t, err)
	assert.Equal(t, plumbing.BlobObject, typ)
	assert.EqualValues(t, len(content), size)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, wantHash, r.Hash())
	require.NoError(t, r.Close())
}

func TestWriteIsIdentityStable(t *testing.T) {
	content := []byte("identical content")

	hashOf := func() plumbing.Hash {
		var buf bytes.Buffer
		w := NewWriter(&buf, hash.SHA1)
		require.NoError(t, w.WriteHeader(plumbing.BlobObject, int64(len(content))))
		_, _ = w.Write(content)
		h := w.Hash()
		require.NoError(t, w.Close())
		return h
	}

	assert.Equal(t, hashOf(), hashOf())
}

func TestEmptyBlobHash(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, hash.SHA1)
	require.NoError(t, w.WriteHeader(plumbing.BlobObject, 0))
	h := w.Hash()
	require.NoError(t, w.Close())
	// Well known git empty blob hash.
	assert.Equal(t, "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391", h.String())
}
