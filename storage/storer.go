// Package storage defines the storage contract a repository facade is built
// against: content-addressed object storage and reference storage, kept as
// two narrow interfaces rather than go-git's broader Storer (which also
// covers shallow commits, submodules and config storage — out of scope
// here, see spec §4.4/§4.6).
package storage

import (
	"io"

	"github.com/gitshelf/gitshelf/plumbing"
)

// ErrReferenceHasChanged is returned by ReferenceStorer.CompareAndSwap when
// the reference's current value does not match the caller's expectation
// (spec §4.6, "validated write").
var ErrReferenceHasChanged = plumbing.ErrConflict

// Object is a decoded Git object read back from storage.
type Object struct {
	Hash    plumbing.Hash
	Type    plumbing.ObjectType
	Content []byte
}

// ObjectStorer reads and writes content-addressed objects (spec §4.4).
type ObjectStorer interface {
	// Object returns the decoded object for h, consulting the identity
	// cache, then loose storage, then every pack index in turn.
	Object(h plumbing.Hash) (Object, error)
	// Has reports whether h is present, without decoding its content.
	Has(h plumbing.Hash) (bool, error)
	// ObjectStream returns a stream over the object's content plus its
	// declared (type, length), bypassing the identity cache. For loose
	// objects the stream reads directly off the zlib decoder; for packed
	// objects the content is decoded into a buffer first (delta chains may
	// be involved) and then streamed from there.
	ObjectStream(h plumbing.Hash) (io.ReadCloser, plumbing.ObjectType, int64, error)
	// WriteObject writes content as a new loose object and returns its
	// hash. Pack writing is out of scope (spec §4.4, "Write as loose").
	WriteObject(t plumbing.ObjectType, content []byte) (plumbing.Hash, error)
}

// ReferenceStorer reads and atomically writes references (spec §4.6).
type ReferenceStorer interface {
	// Reference resolves name to its final target, following exactly one
	// level of HEAD symbolic indirection (the only symbolic ref this core
	// supports).
	Reference(name plumbing.ReferenceName) (plumbing.Reference, error)
	// TryResolve behaves like Reference but checks the snapshot first and
	// falls back to the loose file on disk on a miss, so a ref written by
	// another process is visible without a full invalidate.
	TryResolve(name plumbing.ReferenceName) (plumbing.Reference, bool, error)
	// CompareAndSwap performs the validated write described in spec §4.6:
	// acquire the ref's lock, re-read its current value, fail with
	// ErrReferenceHasChanged if it doesn't match expectedOld, else write
	// newTarget (a nil expectedOld/newTarget means "absent").
	CompareAndSwap(name plumbing.ReferenceName, expectedOld, newTarget *plumbing.Hash) error
	// IterReferences enumerates every known reference (loose ∪ packed,
	// loose winning on duplicates).
	IterReferences() ([]plumbing.Reference, error)
	// Invalidate discards the reference snapshot. If clearAll, the object
	// identity cache is discarded too.
	Invalidate(clearAll bool)
}

// Storer is the combined contract a repository facade depends on.
type Storer interface {
	ObjectStorer
	ReferenceStorer
}
