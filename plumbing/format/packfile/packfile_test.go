package packfile

import (
	"bytes"
	"compress/zlib"
	"crypto/sha1"
	"testing"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/hash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// packBuilder hand-assembles a pack v2 stream for tests, mirroring the
// object-entry framing spec §3/§8 describe: var-length type+size header,
// then zlib(content) or the delta-specific prefix plus zlib(delta).
type packBuilder struct {
	buf     bytes.Buffer
	entries int
}

func newPackBuilder() *packBuilder { return &packBuilder{} }

func (b *packBuilder) writeEntryHeader(typ entryType, size int) {
	first := byte(typ) << 4
	if size&^0x0f != 0 {
		first |= 0x80
	}
	first |= byte(size & 0x0f)
	size >>= 4
	b.buf.WriteByte(first)
	for size != 0 {
		next := byte(size & 0x7f)
		size >>= 7
		if size != 0 {
			next |= 0x80
		}
		b.buf.WriteByte(next)
	}
}

func (b *packBuilder) writeZlib(content []byte) {
	zw := zlib.NewWriter(&b.buf)
	_, _ = zw.Write(content)
	_ = zw.Close()
}

func (b *packBuilder) addBlob(content []byte) {
	b.writeEntryHeader(entryBlob, len(content))
	b.writeZlib(content)
	b.entries++
}

func (b *packBuilder) addRefDelta(baseHash plumbing.Hash, delta []byte) {
	b.writeEntryHeader(entryRefDelta, len(delta))
	b.buf.Write(baseHash.Bytes())
	b.writeZlib(delta)
	b.entries++
}

func (b *packBuilder) finish(t *testing.T) []byte {
	t.Helper()
	var out bytes.Buffer
	out.WriteString("PACK")
	writeBE32(&out, 2)
	writeBE32(&out, uint32(b.entries))
	out.Write(b.buf.Bytes())

	sum := sha1.Sum(out.Bytes())
	out.Write(sum[:])
	return out.Bytes()
}

func writeBE32(buf *bytes.Buffer, v uint32) {
	buf.WriteByte(byte(v >> 24))
	buf.WriteByte(byte(v >> 16))
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v))
}

func hashOf(t plumbing.ObjectType, content []byte) plumbing.Hash {
	h := plumbing.NewHasher(hash.SHA1, t, int64(len(content)))
	h.Write(content)
	return h.Sum()
}

func TestParseSimpleBlobPack(t *testing.T) {
	pb := newPackBuilder()
	pb.addBlob([]byte("Hello World"))
	raw := pb.finish(t)

	objs, err := NewParser(hash.SHA1, nil).Parse(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, plumbing.BlobObject, objs[0].Type)
	assert.Equal(t, "Hello World", string(objs[0].Content))
	assert.Equal(t, hashOf(plumbing.BlobObject, []byte("Hello World")).String(), objs[0].Hash.String())
}

func TestParseRefDeltaPack(t *testing.T) {
	base := []byte("Hello World")
	baseHash := hashOf(plumbing.BlobObject, base)
	delta := []byte{11, 5, 0x91, 0x00, 0x05} // copy 5 bytes from offset 0 -> "Hello"

	pb := newPackBuilder()
	pb.addBlob(base)
	pb.addRefDelta(baseHash, delta)
	raw := pb.finish(t)

	objs, err := NewParser(hash.SHA1, nil).Parse(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, plumbing.BlobObject, objs[0].Type)
	assert.Equal(t, plumbing.BlobObject, objs[1].Type)
	assert.Equal(t, "Hello", string(objs[1].Content))
}

func TestParseRejectsCorruptTrailer(t *testing.T) {
	pb := newPackBuilder()
	pb.addBlob([]byte("x"))
	raw := pb.finish(t)
	raw[len(raw)-1] ^= 0xff

	_, err := NewParser(hash.SHA1, nil).Parse(bytes.NewReader(raw))
	assert.Error(t, err)
}

func TestParseRejectsBadSignature(t *testing.T) {
	_, err := NewParser(hash.SHA1, nil).Parse(bytes.NewReader([]byte("NOPE\x00\x00\x00\x02\x00\x00\x00\x00")))
	assert.Error(t, err)
}
