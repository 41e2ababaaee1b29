// Package objfile implements the on-disk loose-object framing: zlib over
// "<type> <decimal-length>\0<content>". It is the read/write codec behind
// storage/filesystem's loose object files.
package objfile

import (
	"compress/zlib"
	"fmt"
	"io"
	"strconv"

	"github.com/gitshelf/gitshelf/internal/streamio"
	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/hash"
)

// zlibLevel implements spec §4.2 write-path step 4's "optimal" compression
// level. compress/zlib's BestCompression is the closest stdlib equivalent.
const zlibLevel = zlib.BestCompression

// Reader decodes a loose object file: zlib-decompresses the stream and
// exposes the framing header followed by the content, while hashing
// everything so the caller can confirm the object's identity.
type Reader struct {
	hr *streamio.HashingReader
	dr *streamio.DelimitedReader
}

// NewReader opens a Reader over a raw (still zlib-compressed) loose object
// stream. Header must be called before Read.
func NewReader(r io.Reader, algo hash.Algorithm) (*Reader, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: objfile: zlib: %s", plumbing.ErrInvalidObject, err)
	}
	hr := streamio.NewHashingReader(zr, algo.New(), false)
	return &Reader{
		hr: hr,
		dr: streamio.NewDelimitedReader(hr),
	}, nil
}

// Header parses the "<type> <len>\0" framing and returns the declared type
// and content length. It must be called exactly once, before any Read.
func (r *Reader) Header() (plumbing.ObjectType, int64, error) {
	raw, err := r.dr.ReadUntil(0)
	if err != nil {
		return plumbing.InvalidObject, 0, err
	}

	var typName string
	var size int64
	n, err := fmt.Sscanf(string(raw), "%s %d", &typName, &size)
	if err != nil || n != 2 {
		return plumbing.InvalidObject, 0, fmt.Errorf("%w: objfile: malformed header %q", plumbing.ErrInvalidObject, raw)
	}

	typ, err := plumbing.ParseObjectType(typName)
	if err != nil {
		return plumbing.InvalidObject, 0, err
	}

	return typ, size, nil
}

// Read reads decompressed, framed content (after the header). Bytes the
// delimited reader looked ahead past the header remain available: Read
// shares the same underlying bufio.Reader that ReadUntil used.
func (r *Reader) Read(p []byte) (int, error) {
	return r.dr.Read(p)
}

// Hash returns the object's content hash: the hash of the full framing
// header plus content, computed incrementally as bytes were delivered.
// Idempotent; call after the content has been fully read.
func (r *Reader) Hash() plumbing.Hash {
	sum := r.hr.FinalizeHash()
	h, _ := plumbing.FromBytes(sum)
	return h
}

// Close releases the zlib reader. The source passed to the Reader is not
// closed.
func (r *Reader) Close() error {
	return r.hr.Close()
}

// Writer encodes a loose object: it writes the framing header, then zlib
// frames every byte written to it, hashing the framed content; Hash returns
// the object's hash.
type Writer struct {
	raw  io.Writer
	algo hash.Algorithm
	zw   *zlib.Writer
	hw   *streamio.HashingWriter
}

// NewWriter wraps raw, the destination for the compressed bytes, hashing
// with algo. WriteHeader must be called before Write.
func NewWriter(raw io.Writer, algo hash.Algorithm) *Writer {
	return &Writer{raw: raw, algo: algo}
}

// WriteHeader writes the "<type> <len>\0" framing and must be called
// exactly once before any Write.
func (w *Writer) WriteHeader(t plumbing.ObjectType, size int64) error {
	zw, err := zlib.NewWriterLevel(w.raw, zlibLevel)
	if err != nil {
		return err
	}
	w.zw = zw
	w.hw = streamio.NewHashingWriter(zw, w.algo.New())

	header := t.String() + " " + strconv.FormatInt(size, 10) + "\x00"
	_, err = w.hw.Write([]byte(header))
	return err
}

// Write writes object content, after WriteHeader.
func (w *Writer) Write(p []byte) (int, error) {
	return w.hw.Write(p)
}

// Hash finalizes and returns the object's content hash. Must be called
// exactly once, after all content has been written and before Close.
func (w *Writer) Hash() plumbing.Hash {
	sum := w.hw.FinalizeHash()
	h, _ := plumbing.FromBytes(sum)
	return h
}

// Close flushes and closes the zlib writer. It does not close the
// underlying raw writer (typically a temp file the caller renames).
func (w *Writer) Close() error {
	return w.zw.Close()
}
