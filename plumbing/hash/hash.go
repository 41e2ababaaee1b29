// Package hash selects the hash implementation used to address objects in a
// repository. Two widths are supported: 20-byte SHA-1 and 32-byte SHA-256.
// The width is a property of a repository fixed at Open/Init time, never of
// an individual object.
package hash

import (
	"crypto"
	"crypto/sha256"
	"fmt"
	"hash"

	"github.com/pjbgf/sha1cd"
)

// Size constants for the two supported algorithms.
const (
	SHA1Size    = 20
	SHA1HexSize = SHA1Size * 2

	SHA256Size    = 32
	SHA256HexSize = SHA256Size * 2
)

// Algorithm identifies which hash function a repository addresses objects
// with.
type Algorithm int

const (
	// SHA1 is Git's historical default.
	SHA1 Algorithm = iota
	// SHA256 is the newer, wider object format (extensions.objectFormat =
	// sha256).
	SHA256
)

// String returns the Git config spelling of the algorithm.
func (a Algorithm) String() string {
	if a == SHA256 {
		return "sha256"
	}
	return "sha1"
}

// Size returns the raw byte width of a, 20 or 32.
func (a Algorithm) Size() int {
	if a == SHA256 {
		return SHA256Size
	}
	return SHA1Size
}

// HexSize returns the hex-encoded string width of a, 40 or 64.
func (a Algorithm) HexSize() int {
	return a.Size() * 2
}

// ParseAlgorithm maps a config value to an Algorithm. An empty string and
// "sha1" both mean SHA1, matching Git's default-when-unset behavior.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "", "sha1":
		return SHA1, nil
	case "sha256":
		return SHA256, nil
	default:
		return SHA1, fmt.Errorf("hash: unsupported object format %q", s)
	}
}

// New returns a fresh hash.Hash for the algorithm. SHA-1 uses the
// collision-detecting implementation from sha1cd, a drop-in hash.Hash that
// flags the known SHAttered-style collision attacks; SHA-256 uses the
// standard library.
func (a Algorithm) New() hash.Hash {
	if a == SHA256 {
		return sha256.New()
	}
	return sha1cd.New()
}

// cryptoHash reports the crypto.Hash identifier matching a, for code that
// needs to interoperate with crypto.Hash-typed APIs (e.g. PGP verification).
func (a Algorithm) cryptoHash() crypto.Hash {
	if a == SHA256 {
		return crypto.SHA256
	}
	return crypto.SHA1
}
