package plumbing

import (
	"hash"
	"strconv"

	hashpkg "github.com/gitshelf/gitshelf/plumbing/hash"
)

// Hasher wraps a hash.Hash to compute Git object hashes: the digest of
// "<type> <decimal-length>\0<content>".
type Hasher struct {
	hash.Hash
	algo hashpkg.Algorithm
}

// NewHasher returns a Hasher primed with the framing header for (t, size).
func NewHasher(algo hashpkg.Algorithm, t ObjectType, size int64) Hasher {
	h := Hasher{Hash: algo.New(), algo: algo}
	h.Reset(t, size)
	return h
}

// Reset reinitializes the hasher for a new (type, size) pair, replaying the
// framing header.
func (h Hasher) Reset(t ObjectType, size int64) {
	h.Hash.Reset()
	h.Write(t.Bytes())
	h.Write([]byte{' '})
	h.Write([]byte(strconv.FormatInt(size, 10)))
	h.Write([]byte{0})
}

// Sum finalizes the hash computed so far.
func (h Hasher) Sum() Hash {
	raw := h.Hash.Sum(nil)
	hh, err := FromBytes(raw)
	if err != nil {
		// Hash.Size() for a registered algorithm is always 20 or 32;
		// a mismatch here means a mis-registered hash.Hash implementation.
		panic(err)
	}
	return hh
}
