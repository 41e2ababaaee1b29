package packfile

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gitshelf/gitshelf/plumbing"
)

var packSignature = []byte{'P', 'A', 'C', 'K'}

// Version is the supported pack file format version (spec §3, §4.5).
const Version = 2

// entryType is a pack object's on-wire type code (spec §3), which — unlike
// plumbing.ObjectType — also covers the two delta encodings.
type entryType byte

const (
	entryCommit   entryType = 1
	entryTree     entryType = 2
	entryBlob     entryType = 3
	entryTag      entryType = 4
	entryOfsDelta entryType = 6
	entryRefDelta entryType = 7
)

func (t entryType) isDelta() bool {
	return t == entryOfsDelta || t == entryRefDelta
}

func (t entryType) toObjectType() (plumbing.ObjectType, error) {
	switch t {
	case entryCommit:
		return plumbing.CommitObject, nil
	case entryTree:
		return plumbing.TreeObject, nil
	case entryBlob:
		return plumbing.BlobObject, nil
	case entryTag:
		return plumbing.TagObject, nil
	default:
		return plumbing.InvalidObject, fmt.Errorf("%w: entry type %d is not a storable object type", plumbing.ErrInvalidPack, t)
	}
}

// Header is the 12-byte pack preamble: magic, version, object count.
type Header struct {
	Version    uint32
	ObjectsQty uint32
}

// ReadHeader reads and validates the 12-byte pack header.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [12]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, fmt.Errorf("%w: pack header: %s", plumbing.ErrInvalidPack, err)
	}
	if string(buf[:4]) != string(packSignature) {
		return Header{}, fmt.Errorf("%w: bad pack signature", plumbing.ErrInvalidPack)
	}
	version := binary.BigEndian.Uint32(buf[4:8])
	if version != Version {
		return Header{}, fmt.Errorf("%w: unsupported pack version %d", plumbing.ErrInvalidPack, version)
	}
	count := binary.BigEndian.Uint32(buf[8:12])
	return Header{Version: version, ObjectsQty: count}, nil
}

// readEntryTypeAndSize reads the variable-length "type+size" object header
// (spec §4.5, §8): first byte carries type in bits 4-6 and the low 4 size
// bits; subsequent bytes, while the continuation bit is set, each add 7
// more size bits.
func readEntryTypeAndSize(r io.ByteReader) (entryType, int64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: object header: %s", plumbing.ErrInvalidPack, err)
	}

	typ := entryType((b >> 4) & 0x07)
	size := int64(b & 0x0f)
	shift := uint(4)

	for b&0x80 != 0 {
		b, err = r.ReadByte()
		if err != nil {
			return 0, 0, fmt.Errorf("%w: object header: %s", plumbing.ErrInvalidPack, err)
		}
		size |= int64(b&0x7f) << shift
		shift += 7
	}

	return typ, size, nil
}

// readNegativeOffset reads an OFS_DELTA base reference: Git's alternate
// varint encoding where each continuation byte shifts the accumulator up
// before folding in the next 7 bits (spec §4.5), distinct from the object
// header's "low bits first, shift grows" encoding.
func readNegativeOffset(r io.ByteReader) (int64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("%w: ofs-delta offset: %s", plumbing.ErrInvalidPack, err)
	}
	offset := int64(b & 0x7f)
	for b&0x80 != 0 {
		b, err = r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("%w: ofs-delta offset: %s", plumbing.ErrInvalidPack, err)
		}
		offset++
		offset = (offset << 7) | int64(b&0x7f)
	}
	return offset, nil
}

// oneByteReader forces every Read to return at most one byte, regardless of
// len(p). zlib.NewReader wrapped around this can never read past the
// compressed stream's own terminator into the next pack entry (spec §4.5's
// "critical property: zlib consumption must be exact").
type oneByteReader struct {
	r io.Reader
}

func (o oneByteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return o.r.Read(p[:1])
}

func (o oneByteReader) ReadByte() (byte, error) {
	var b [1]byte
	_, err := io.ReadFull(o.r, b[:])
	return b[0], err
}
