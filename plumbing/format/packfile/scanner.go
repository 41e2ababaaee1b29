// Package packfile implements the pack v2 stream format: sequential
// object scanning, OFS_DELTA/REF_DELTA resolution, and the delta
// application VM, grounded on go-git's scanner/parser/patch_delta
// trio but restructured around a single eager two-pass parse (spec §4.5)
// rather than a resumable state machine, since every caller here needs the
// whole pack resolved at once (bulk ingest) or a single offset resolved
// against an already-open pack (storage/filesystem).
package packfile

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"hash"
	"io"

	"github.com/gitshelf/gitshelf/plumbing"
	hashpkg "github.com/gitshelf/gitshelf/plumbing/hash"
)

// countingReader tracks the absolute byte offset consumed from the
// underlying source and, while hashing is enabled, feeds every byte into a
// running hash — used to validate the pack trailer (spec §4.5 step 1).
type countingReader struct {
	r       io.Reader
	h       hash.Hash
	hashing bool
	offset  int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		if c.hashing {
			c.h.Write(p[:n])
		}
		c.offset += int64(n)
	}
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(c, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// Entry is one object's parsed pack framing: its on-wire header plus the
// fully zlib-inflated body, which is either the object's content (non-delta
// types) or raw delta instruction bytes (OFS_DELTA/REF_DELTA).
type Entry struct {
	Offset int64
	Type   entryType

	// ObjectType is valid only when !Type.isDelta().
	ObjectType plumbing.ObjectType

	// BaseOffset is valid only for entryOfsDelta: the absolute pack offset
	// of the base object.
	BaseOffset int64
	// BaseHash is valid only for entryRefDelta.
	BaseHash plumbing.Hash

	Content []byte
}

func (e *Entry) isDelta() bool { return e.Type.isDelta() }

// Scanner walks a pack's objects in on-disk order, one at a time.
type Scanner struct {
	cr     *countingReader
	algo   hashpkg.Algorithm
	header Header
	index  uint32
}

// NewScanner validates the 12-byte pack header and returns a Scanner
// positioned at the first object.
func NewScanner(r io.Reader, algo hashpkg.Algorithm) (*Scanner, error) {
	cr := &countingReader{r: r, h: algo.New(), hashing: true}
	hdr, err := ReadHeader(cr)
	if err != nil {
		return nil, err
	}
	return &Scanner{cr: cr, algo: algo, header: hdr}, nil
}

// Header returns the parsed pack header.
func (s *Scanner) Header() Header { return s.header }

// Next decodes the next object, or returns io.EOF once ObjectsQty entries
// have been read.
func (s *Scanner) Next() (*Entry, error) {
	if s.index >= s.header.ObjectsQty {
		return nil, io.EOF
	}
	offset := s.cr.offset

	typ, size, err := readEntryTypeAndSize(s.cr)
	if err != nil {
		return nil, err
	}

	e := &Entry{Offset: offset, Type: typ}
	_ = size // declared size is informational; content length is authoritative.

	switch typ {
	case entryOfsDelta:
		neg, err := readNegativeOffset(s.cr)
		if err != nil {
			return nil, err
		}
		e.BaseOffset = offset - neg
		if e.BaseOffset < 0 || e.BaseOffset >= offset {
			return nil, fmt.Errorf("%w: ofs-delta base offset %d out of range", plumbing.ErrInvalidPack, e.BaseOffset)
		}
	case entryRefDelta:
		buf := make([]byte, s.algo.Size())
		if _, err := io.ReadFull(s.cr, buf); err != nil {
			return nil, fmt.Errorf("%w: ref-delta base hash: %s", plumbing.ErrInvalidPack, err)
		}
		h, err := plumbing.FromBytes(buf)
		if err != nil {
			return nil, err
		}
		e.BaseHash = h
	case entryCommit, entryTree, entryBlob, entryTag:
		ot, err := typ.toObjectType()
		if err != nil {
			return nil, err
		}
		e.ObjectType = ot
	default:
		return nil, fmt.Errorf("%w: unknown pack entry type %d", plumbing.ErrInvalidPack, typ)
	}

	content, err := inflateExact(s.cr)
	if err != nil {
		return nil, err
	}
	e.Content = content

	s.index++
	return e, nil
}

// inflateExact zlib-decompresses one object body from r, reading strictly
// one byte at a time so the inflater's own internal buffering can never
// consume bytes belonging to the next pack entry (spec §4.5's "critical
// property").
func inflateExact(r io.Reader) ([]byte, error) {
	zr, err := zlib.NewReader(oneByteReader{r})
	if err != nil {
		return nil, fmt.Errorf("%w: object body: %s", plumbing.ErrInvalidPack, err)
	}
	defer zr.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, zr); err != nil {
		return nil, fmt.Errorf("%w: object body: %s", plumbing.ErrInvalidPack, err)
	}
	return buf.Bytes(), nil
}

// ReadEntryAt decodes a single object's framing starting at an absolute pack
// offset, without validating the pack header or trailer. Used for
// single-object lookups against an already-indexed pack (spec §4.5,
// "single-object read from a pack"), where the caller already knows the
// offset from a prior idxfile lookup or from a sibling entry's BaseOffset.
func ReadEntryAt(r io.ReaderAt, algo hashpkg.Algorithm, offset int64) (*Entry, error) {
	sr := io.NewSectionReader(r, offset, 1<<62)
	cr := &countingReader{r: sr, h: algo.New(), hashing: false}

	typ, _, err := readEntryTypeAndSize(cr)
	if err != nil {
		return nil, err
	}

	e := &Entry{Offset: offset, Type: typ}
	switch typ {
	case entryOfsDelta:
		neg, err := readNegativeOffset(cr)
		if err != nil {
			return nil, err
		}
		e.BaseOffset = offset - neg
		if e.BaseOffset < 0 || e.BaseOffset >= offset {
			return nil, fmt.Errorf("%w: ofs-delta base offset %d out of range", plumbing.ErrInvalidPack, e.BaseOffset)
		}
	case entryRefDelta:
		buf := make([]byte, algo.Size())
		if _, err := io.ReadFull(cr, buf); err != nil {
			return nil, fmt.Errorf("%w: ref-delta base hash: %s", plumbing.ErrInvalidPack, err)
		}
		h, err := plumbing.FromBytes(buf)
		if err != nil {
			return nil, err
		}
		e.BaseHash = h
	case entryCommit, entryTree, entryBlob, entryTag:
		ot, err := typ.toObjectType()
		if err != nil {
			return nil, err
		}
		e.ObjectType = ot
	default:
		return nil, fmt.Errorf("%w: unknown pack entry type %d", plumbing.ErrInvalidPack, typ)
	}

	content, err := inflateExact(cr)
	if err != nil {
		return nil, err
	}
	e.Content = content

	return e, nil
}

// ValidateTrailer reads the trailing pack checksum and compares it against
// the hash accumulated over every byte read so far (header + all objects,
// excluding the trailer itself). Must be called only after every object has
// been consumed via Next.
func (s *Scanner) ValidateTrailer() error {
	sum := s.cr.h.Sum(nil)
	s.cr.hashing = false

	trailer := make([]byte, s.algo.Size())
	if _, err := io.ReadFull(s.cr, trailer); err != nil {
		return fmt.Errorf("%w: pack trailer: %s", plumbing.ErrInvalidPack, err)
	}
	if !bytes.Equal(sum, trailer) {
		return fmt.Errorf("%w: pack trailer checksum mismatch", plumbing.ErrInvalidPack)
	}
	return nil
}
