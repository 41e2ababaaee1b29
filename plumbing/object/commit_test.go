package object

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitshelf/gitshelf/plumbing"
)

func sig(name string) plumbing.Signature {
	return plumbing.Signature{
		Name:  name,
		Email: name + "@example.com",
		When:  time.Unix(1700000000, 0).UTC(),
	}
}

func TestDecodeCommitBasic(t *testing.T) {
	tree := plumbing.MustFromHex("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	parent := plumbing.MustFromHex("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	raw := "tree " + tree.String() + "\n" +
		"parent " + parent.String() + "\n" +
		"author " + sig("Alice").Encode() + "\n" +
		"committer " + sig("Bob").Encode() + "\n" +
		"\n" +
		"a message\n"

	c, err := DecodeCommit([]byte(raw), 20)
	require.NoError(t, err)
	assert.True(t, c.Tree.Equal(tree))
	require.Len(t, c.Parents, 1)
	assert.True(t, c.Parents[0].Equal(parent))
	assert.Equal(t, "Alice", c.Author.Name)
	assert.Equal(t, "Bob", c.Committer.Name)
	assert.Equal(t, "a message", c.Message)
}

func TestDecodeCommitMissingTreeRejected(t *testing.T) {
	raw := "author " + sig("Alice").Encode() + "\n\nmsg\n"
	_, err := DecodeCommit([]byte(raw), 20)
	require.Error(t, err)
}

func TestCommitEncodeDecodeRoundTrip(t *testing.T) {
	c := &Commit{
		Tree:      plumbing.MustFromHex("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		Parents:   []plumbing.Hash{plumbing.MustFromHex("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")},
		Author:    sig("Alice"),
		Committer: sig("Bob"),
		Message:   "hello\nworld",
	}

	got, err := DecodeCommit(c.Encode(), 20)
	require.NoError(t, err)
	assert.True(t, got.Tree.Equal(c.Tree))
	assert.Equal(t, c.Message, got.Message)
	assert.Equal(t, c.Author.Name, got.Author.Name)
}

func TestCommitSignatureExtraction(t *testing.T) {
	raw := "tree " + plumbing.MustFromHex("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa").String() + "\n" +
		"author " + sig("Alice").Encode() + "\n" +
		"committer " + sig("Alice").Encode() + "\n" +
		"gpgsig -----BEGIN PGP SIGNATURE-----\n" +
		" line two\n" +
		" -----END PGP SIGNATURE-----\n" +
		"\n" +
		"msg\n"

	c, err := DecodeCommit([]byte(raw), 20)
	require.NoError(t, err)

	sigText, ok := c.Signature()
	require.True(t, ok)
	assert.Contains(t, sigText, "BEGIN PGP SIGNATURE")
	assert.Contains(t, sigText, "line two")

	without := c.EncodeWithoutSignature()
	assert.NotContains(t, string(without), "gpgsig")
	assert.Contains(t, string(without), "msg")
}

func TestParseHashFieldRejectsWrongSize(t *testing.T) {
	raw := "tree " + plumbing.MustFromHex("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa").String() + "\n" +
		"author " + sig("A").Encode() + "\n" +
		"committer " + sig("A").Encode() + "\n\nm\n"
	_, err := DecodeCommit([]byte(raw), 32)
	require.Error(t, err)
}
