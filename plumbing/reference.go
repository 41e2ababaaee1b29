package plumbing

import (
	"fmt"
	"strings"
)

// HEAD is the name of the special symbolic reference at the root of a
// repository.
const HEAD = "HEAD"

// ReferenceName is a normalized reference path: forward-slash separated,
// starting with "refs/", or the literal "HEAD".
type ReferenceName string

// Validate normalizes backslashes to forward slashes, trims whitespace, and
// rejects anything that is not HEAD and does not start with "refs/".
func (n ReferenceName) Validate() (ReferenceName, error) {
	s := strings.TrimSpace(strings.ReplaceAll(string(n), "\\", "/"))
	if s == HEAD {
		return ReferenceName(s), nil
	}
	if !strings.HasPrefix(s, "refs/") || s == "refs/" {
		return "", fmt.Errorf("%w: reference name %q must start with \"refs/\" or be HEAD", ErrInvalidArgument, n)
	}
	return ReferenceName(s), nil
}

func (n ReferenceName) String() string { return string(n) }

// ReferenceTarget is the payload of a reference: either a direct Hash, or a
// symbolic pointer to another ReferenceName (only HEAD may hold a symbolic
// target in this core).
type ReferenceTarget struct {
	Hash   Hash
	Symref ReferenceName
}

// IsSymbolic reports whether the target is a symbolic ref rather than a
// direct hash.
func (t ReferenceTarget) IsSymbolic() bool { return t.Symref != "" }

// Reference pairs a name with its target.
type Reference struct {
	Name   ReferenceName
	Target ReferenceTarget
}

// NewHashReference builds a direct reference.
func NewHashReference(name ReferenceName, h Hash) Reference {
	return Reference{Name: name, Target: ReferenceTarget{Hash: h}}
}

// NewSymbolicReference builds a symbolic reference (only meaningful for
// HEAD in this core).
func NewSymbolicReference(name, target ReferenceName) Reference {
	return Reference{Name: name, Target: ReferenceTarget{Symref: target}}
}
