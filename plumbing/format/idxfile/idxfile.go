// Package idxfile reads pack index v2 files (".idx"): the fanout table,
// sorted hash list, per-object CRC32, and 32/64-bit offset tables that let
// the packfile reader locate an object's byte offset by hash without
// scanning the whole pack. Reads are served directly off an io.ReaderAt,
// grounded on go-git's ReaderAt-based index reader, rather than
// loading the whole file into memory up front.
package idxfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/hash"
)

const (
	headerSize    = 8 // magic (4) + version (4)
	fanoutSize    = 256 * 4
	crcEntrySize  = 4
	offset32Size  = 4
	offset64Size  = 8
	versionWanted = 2

	// is64BitMask marks a 32-bit offset slot as an index into the 64-bit
	// offset table rather than a literal offset (spec §6.2).
	is64BitMask = uint32(1) << 31
)

var magic = []byte{0xff, 't', 'O', 'c'}

// Index provides random access to a parsed pack index v2 file.
type Index struct {
	r        io.ReaderAt
	hashSize int
	count    int

	fanout [256]uint32

	namesStart   int64
	crcStart     int64
	off32Start   int64
	off64Start   int64
	trailerStart int64
}

// Open parses the index file served by r, whose object hashes are hashSize
// bytes long (20 for SHA-1, 32 for SHA-256; spec §3 fixes this per
// repository).
func Open(r io.ReaderAt, size int64, algo hash.Algorithm) (*Index, error) {
	hashSize := algo.Size()
	minLen := int64(headerSize + fanoutSize + 2*hashSize)
	if size < minLen {
		return nil, fmt.Errorf("%w: idxfile: file too small", plumbing.ErrInvalidPack)
	}

	var hdr [headerSize]byte
	if _, err := readFull(r, hdr[:], 0); err != nil {
		return nil, fmt.Errorf("%w: idxfile: header: %s", plumbing.ErrInvalidPack, err)
	}
	if !bytes.Equal(magic, hdr[:4]) {
		return nil, fmt.Errorf("%w: idxfile: not a v2 index (missing magic)", plumbing.ErrInvalidPack)
	}
	if version := binary.BigEndian.Uint32(hdr[4:8]); version != versionWanted {
		return nil, fmt.Errorf("%w: idxfile: unsupported version %d", plumbing.ErrInvalidPack, version)
	}

	idx := &Index{r: r, hashSize: hashSize}

	var fanoutBuf [fanoutSize]byte
	if _, err := readFull(r, fanoutBuf[:], headerSize); err != nil {
		return nil, fmt.Errorf("%w: idxfile: fanout: %s", plumbing.ErrInvalidPack, err)
	}
	for i := 0; i < 256; i++ {
		idx.fanout[i] = binary.BigEndian.Uint32(fanoutBuf[i*4 : i*4+4])
	}
	idx.count = int(idx.fanout[255])

	idx.namesStart = headerSize + fanoutSize
	idx.crcStart = idx.namesStart + int64(idx.count*hashSize)
	idx.off32Start = idx.crcStart + int64(idx.count*crcEntrySize)
	idx.off64Start = idx.off32Start + int64(idx.count*offset32Size)
	idx.trailerStart = size - int64(2*hashSize)

	return idx, nil
}

// Count returns the number of objects indexed.
func (idx *Index) Count() int { return idx.count }

// FindOffset returns the pack offset of the object with the given hash, or
// plumbing.ErrNotFound if it is not present in this index.
func (idx *Index) FindOffset(h plumbing.Hash) (int64, error) {
	pos, found, err := idx.search(h)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, plumbing.ErrNotFound
	}
	return idx.offsetAt(pos)
}

// Contains reports whether h is present in this index.
func (idx *Index) Contains(h plumbing.Hash) (bool, error) {
	_, found, err := idx.search(h)
	return found, err
}

func (idx *Index) search(h plumbing.Hash) (pos int, found bool, err error) {
	raw := h.Bytes()
	first := int(raw[0])
	lo := 0
	if first > 0 {
		lo = int(idx.fanout[first-1])
	}
	hi := int(idx.fanout[first])

	buf := make([]byte, idx.hashSize)
	n := hi - lo
	var searchErr error
	p := lo + sort.Search(n, func(i int) bool {
		if searchErr != nil {
			return true
		}
		if _, e := readFull(idx.r, buf, idx.namesStart+int64((lo+i)*idx.hashSize)); e != nil {
			searchErr = e
			return true
		}
		return bytes.Compare(buf, raw) >= 0
	})
	if searchErr != nil {
		return 0, false, fmt.Errorf("%w: idxfile: %s", plumbing.ErrIO, searchErr)
	}
	if p >= hi {
		return 0, false, nil
	}
	if _, err := readFull(idx.r, buf, idx.namesStart+int64(p*idx.hashSize)); err != nil {
		return 0, false, fmt.Errorf("%w: idxfile: %s", plumbing.ErrIO, err)
	}
	if !bytes.Equal(buf, raw) {
		return 0, false, nil
	}
	return p, true, nil
}

func (idx *Index) offsetAt(pos int) (int64, error) {
	var buf [offset32Size]byte
	if _, err := readFull(idx.r, buf[:], idx.off32Start+int64(pos*offset32Size)); err != nil {
		return 0, fmt.Errorf("%w: idxfile: offset32: %s", plumbing.ErrIO, err)
	}
	off32 := binary.BigEndian.Uint32(buf[:])
	if off32&is64BitMask == 0 {
		return int64(off32), nil
	}

	loIndex := int64(off32 &^ is64BitMask)
	var buf64 [offset64Size]byte
	if _, err := readFull(idx.r, buf64[:], idx.off64Start+loIndex*offset64Size); err != nil {
		return 0, fmt.Errorf("%w: idxfile: offset64: %s", plumbing.ErrIO, err)
	}
	return int64(binary.BigEndian.Uint64(buf64[:])), nil
}

// HashAt returns the hash stored at sorted position pos (0 <= pos < Count).
func (idx *Index) HashAt(pos int) (plumbing.Hash, error) {
	if pos < 0 || pos >= idx.count {
		return plumbing.Hash{}, fmt.Errorf("%w: idxfile: position %d out of range", plumbing.ErrInvalidArgument, pos)
	}
	buf := make([]byte, idx.hashSize)
	if _, err := readFull(idx.r, buf, idx.namesStart+int64(pos*idx.hashSize)); err != nil {
		return plumbing.Hash{}, fmt.Errorf("%w: idxfile: %s", plumbing.ErrIO, err)
	}
	return plumbing.FromBytes(buf)
}

// PackChecksum returns the SHA of the pack file this index covers, stored
// in the trailer.
func (idx *Index) PackChecksum() (plumbing.Hash, error) {
	buf := make([]byte, idx.hashSize)
	if _, err := readFull(idx.r, buf, idx.trailerStart); err != nil {
		return plumbing.Hash{}, fmt.Errorf("%w: idxfile: trailer: %s", plumbing.ErrIO, err)
	}
	return plumbing.FromBytes(buf)
}

func readFull(r io.ReaderAt, buf []byte, off int64) (int, error) {
	n, err := r.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return n, err
	}
	if n != len(buf) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}
