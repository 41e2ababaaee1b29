// Package commitbuilder builds a new commit from a parent tree and a list
// of file operations: structural validation, in-memory tree mutation,
// bottom-up serialization, commit construction, and a CAS reference update
// (spec §4.8). Grounded in go-git's idiom (small typed operations,
// validate-then-mutate, gods-backed ordered collections) rather than any
// single surviving file, since go-git's own commit path is entangled with
// its working-tree index, which this core does not have.
package commitbuilder

import (
	"io"

	"github.com/gitshelf/gitshelf/plumbing"
)

// Operation is one step in a commit's file-level change list (spec §4.8).
type Operation interface {
	isOperation()
}

// AddFile inserts a new blob at path. Fails if path already exists.
type AddFile struct {
	Path    string
	Content []byte
}

func (AddFile) isOperation() {}

// AddFileStream is AddFile with content taken from a reader. Apply reads
// Content to the end when the operation is applied; the read is not deferred
// to Build.
type AddFileStream struct {
	Path    string
	Content io.Reader
}

func (AddFileStream) isOperation() {}

// UpdateFile replaces the content of an existing blob. ExpectedPreviousHash,
// if non-nil, must match the blob's current hash or the operation fails
// with a conflict naming Path.
type UpdateFile struct {
	Path                 string
	Content              []byte
	ExpectedPreviousHash *plumbing.Hash
}

func (UpdateFile) isOperation() {}

// UpdateFileStream is UpdateFile with content taken from a reader, read to
// the end by Apply when the operation is applied.
type UpdateFileStream struct {
	Path                 string
	Content              io.Reader
	ExpectedPreviousHash *plumbing.Hash
}

func (UpdateFileStream) isOperation() {}

// RemoveFile deletes an existing blob, garbage-collecting any ancestor
// directory left empty by the removal.
type RemoveFile struct {
	Path string
}

func (RemoveFile) isOperation() {}

// MoveFile is RemoveFile(OldPath) + AddFile(NewPath, content-of-OldPath),
// preserving the moved blob's identity (hash, mode) without rereading or
// rehashing its content.
type MoveFile struct {
	OldPath string
	NewPath string
}

func (MoveFile) isOperation() {}
