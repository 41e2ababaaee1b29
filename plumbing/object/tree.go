package object

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/gitshelf/gitshelf/plumbing"
)

// EntryKind classifies a TreeEntry by its mode (spec §3).
type EntryKind int8

const (
	Blob EntryKind = iota
	ExecutableBlob
	DirTree
	Symlink
	Submodule
)

const (
	modeTree      = 0o040000
	modeBlob      = 0o100644
	modeExecBlob  = 0o100755
	modeSymlink   = 0o120000
	modeSubmodule = 0o160000
)

func kindForMode(mode int) EntryKind {
	switch mode {
	case modeTree:
		return DirTree
	case modeSubmodule:
		return Submodule
	case modeSymlink:
		return Symlink
	case modeExecBlob:
		return ExecutableBlob
	default:
		return Blob
	}
}

// TreeEntry is one directory entry: a name, its raw octal mode, the kind
// that mode implies, and the hash of the entry's target object.
type TreeEntry struct {
	Name string
	Mode int
	Kind EntryKind
	Hash plumbing.Hash
}

// Tree is the parsed form of a tree object: an ordered list of entries,
// preserved exactly as read (spec §4.3: "entries are not re-sorted on
// parse").
type Tree struct {
	Entries []TreeEntry
}

// DecodeTree parses tree content into its entries.
func DecodeTree(content []byte, hashSize int) (*Tree, error) {
	var entries []TreeEntry
	for len(content) > 0 {
		sp := bytes.IndexByte(content, ' ')
		if sp <= 0 {
			return nil, fmt.Errorf("%w: tree: missing mode separator", plumbing.ErrInvalidObject)
		}
		mode, err := strconv.ParseInt(string(content[:sp]), 8, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: tree: invalid octal mode: %s", plumbing.ErrInvalidObject, err)
		}
		content = content[sp+1:]

		nul := bytes.IndexByte(content, 0)
		if nul < 0 {
			return nil, fmt.Errorf("%w: tree: missing name terminator", plumbing.ErrInvalidObject)
		}
		name := string(content[:nul])
		content = content[nul+1:]

		if len(content) < hashSize {
			return nil, fmt.Errorf("%w: tree: truncated entry hash", plumbing.ErrInvalidObject)
		}
		h, err := plumbing.FromBytes(content[:hashSize])
		if err != nil {
			return nil, fmt.Errorf("%w: tree: %s", plumbing.ErrInvalidObject, err)
		}
		content = content[hashSize:]

		entries = append(entries, TreeEntry{
			Name: name,
			Mode: int(mode),
			Kind: kindForMode(int(mode)),
			Hash: h,
		})
	}
	return &Tree{Entries: entries}, nil
}

// sortName returns the name used for Git's tree sort order: entries of
// kind Tree compare as if their name had a trailing '/' (spec §3, §4.3).
func sortName(e TreeEntry) string {
	if e.Kind == DirTree {
		return e.Name + "/"
	}
	return e.Name
}

// Encode serializes entries in Git's canonical tree sort order. It does
// not mutate the receiver's Entries slice order.
func (t *Tree) Encode() ([]byte, error) {
	sorted := make([]TreeEntry, len(t.Entries))
	copy(sorted, t.Entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sortName(sorted[i]) < sortName(sorted[j])
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Name == sorted[i-1].Name {
			return nil, fmt.Errorf("%w: tree: duplicate entry name %q", plumbing.ErrInvalidArgument, sorted[i].Name)
		}
	}

	var buf bytes.Buffer
	for _, e := range sorted {
		buf.WriteString(strconv.FormatInt(int64(e.Mode), 8))
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(e.Hash.Bytes())
	}
	return buf.Bytes(), nil
}
