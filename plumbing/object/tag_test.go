package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitshelf/gitshelf/plumbing"
)

func TestDecodeTagBasic(t *testing.T) {
	target := plumbing.MustFromHex("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	raw := "object " + target.String() + "\n" +
		"type commit\n" +
		"tag v1.0.0\n" +
		"tagger " + sig("Alice").Encode() + "\n" +
		"\n" +
		"release\n"

	tg, err := DecodeTag([]byte(raw), 20)
	require.NoError(t, err)
	assert.True(t, tg.Object.Equal(target))
	assert.Equal(t, plumbing.CommitObject, tg.Type)
	assert.Equal(t, "v1.0.0", tg.Tag)
	assert.Equal(t, "release", tg.Message)
}

func TestDecodeTagMissingRequiredHeaderRejected(t *testing.T) {
	raw := "object " + plumbing.MustFromHex("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa").String() + "\n" +
		"tag v1.0.0\n\nmsg\n"
	_, err := DecodeTag([]byte(raw), 20)
	require.Error(t, err)
}

func TestTagEncodeDecodeRoundTrip(t *testing.T) {
	tg := &Tag{
		Object:  plumbing.MustFromHex("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		Type:    plumbing.CommitObject,
		Tag:     "v2.0.0",
		Tagger:  sig("Bob"),
		Message: "second release",
	}

	got, err := DecodeTag(tg.Encode(), 20)
	require.NoError(t, err)
	assert.True(t, got.Object.Equal(tg.Object))
	assert.Equal(t, tg.Tag, got.Tag)
	assert.Equal(t, tg.Message, got.Message)
}

func TestTagSignatureExtraction(t *testing.T) {
	raw := "object " + plumbing.MustFromHex("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa").String() + "\n" +
		"type commit\n" +
		"tag v1.0.0\n" +
		"tagger " + sig("Alice").Encode() + "\n" +
		"gpgsig -----BEGIN PGP SIGNATURE-----\n" +
		" abc\n" +
		" -----END PGP SIGNATURE-----\n" +
		"\n" +
		"msg\n"

	tg, err := DecodeTag([]byte(raw), 20)
	require.NoError(t, err)

	s, ok := tg.Signature()
	require.True(t, ok)
	assert.Contains(t, s, "BEGIN PGP SIGNATURE")

	without := tg.EncodeWithoutSignature()
	assert.NotContains(t, string(without), "gpgsig")
}
