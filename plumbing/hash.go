package plumbing

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"

	hashpkg "github.com/gitshelf/gitshelf/plumbing/hash"
)

// Hash is a fixed-width content address: 20 bytes under SHA-1, 32 bytes
// under SHA-256. It is immutable once constructed and compared through
// Equal/Compare, which look only at the significant bytes (the backing array
// is always 32 bytes wide; plain struct equality also compares the algorithm
// field, so it is not exposed as the primary API).
type Hash struct {
	algo hashpkg.Algorithm
	raw  [hashpkg.SHA256Size]byte
	n    int // 20 or 32, the number of significant bytes in raw
}

// ZeroHash is a SHA-1-width all-zero hash with no algorithm set. Use
// Zero(a) to get the zero hash of a specific algorithm.
var ZeroHash = Hash{n: hashpkg.SHA1Size}

// Zero returns the all-zero hash for algorithm a.
func Zero(a hashpkg.Algorithm) Hash {
	return Hash{algo: a, n: a.Size()}
}

// FromBytes builds a Hash from a raw digest of length 20 or 32. It returns
// an error for any other length.
func FromBytes(b []byte) (Hash, error) {
	var h Hash
	switch len(b) {
	case hashpkg.SHA1Size:
		h.algo = hashpkg.SHA1
	case hashpkg.SHA256Size:
		h.algo = hashpkg.SHA256
	default:
		return Hash{}, fmt.Errorf("%w: raw hash must be 20 or 32 bytes, got %d", ErrInvalidArgument, len(b))
	}
	h.n = len(b)
	copy(h.raw[:], b)
	return h, nil
}

// FromHex parses a lowercase (or mixed-case) hex string of length 40 or 64.
func FromHex(s string) (Hash, error) {
	switch len(s) {
	case hashpkg.SHA1HexSize, hashpkg.SHA256HexSize:
	default:
		return Hash{}, fmt.Errorf("%w: invalid hash string length %d", ErrInvalidArgument, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("%w: %s", ErrInvalidArgument, err)
	}
	return FromBytes(raw)
}

// MustFromHex is FromHex, panicking on error. Reserved for tests and
// compile-time-known constants.
func MustFromHex(s string) Hash {
	h, err := FromHex(s)
	if err != nil {
		panic(err)
	}
	return h
}

// IsZero reports whether h is the all-zero hash of its width.
func (h Hash) IsZero() bool {
	var zero [hashpkg.SHA256Size]byte
	return bytes.Equal(h.raw[:h.size()], zero[:h.size()])
}

func (h Hash) size() int {
	if h.n == 0 {
		return hashpkg.SHA1Size
	}
	return h.n
}

// Algorithm returns the hash algorithm this Hash was constructed under.
func (h Hash) Algorithm() hashpkg.Algorithm { return h.algo }

// Bytes returns a fresh copy of the raw digest bytes; mutating it does not
// affect h.
func (h Hash) Bytes() []byte {
	out := make([]byte, h.size())
	copy(out, h.raw[:h.size()])
	return out
}

// String returns the lowercase hex form, 40 or 64 characters.
func (h Hash) String() string {
	return hex.EncodeToString(h.raw[:h.size()])
}

// Equal reports whether h and o address the same content.
func (h Hash) Equal(o Hash) bool {
	return h.size() == o.size() && bytes.Equal(h.raw[:h.size()], o.raw[:o.size()])
}

// Compare orders h and o byte-by-byte, shorter-first on length mismatch.
func (h Hash) Compare(o Hash) int {
	if h.size() != o.size() {
		return h.size() - o.size()
	}
	return bytes.Compare(h.raw[:h.size()], o.raw[:o.size()])
}

// SortHashes sorts hs in increasing byte order, in place.
func SortHashes(hs []Hash) {
	sort.Slice(hs, func(i, j int) bool { return hs[i].Compare(hs[j]) < 0 })
}
