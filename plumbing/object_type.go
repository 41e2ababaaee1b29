package plumbing

import "fmt"

// ObjectType enumerates the four Git object kinds.
type ObjectType int8

const (
	InvalidObject ObjectType = iota
	CommitObject
	TreeObject
	BlobObject
	TagObject
)

func (t ObjectType) String() string {
	switch t {
	case CommitObject:
		return "commit"
	case TreeObject:
		return "tree"
	case BlobObject:
		return "blob"
	case TagObject:
		return "tag"
	default:
		return "invalid"
	}
}

// Bytes is the ASCII encoding of the type name, as used in the object
// framing header ("<type> <len>\0").
func (t ObjectType) Bytes() []byte { return []byte(t.String()) }

// ParseObjectType maps a wire type name back to an ObjectType.
func ParseObjectType(s string) (ObjectType, error) {
	switch s {
	case "commit":
		return CommitObject, nil
	case "tree":
		return TreeObject, nil
	case "blob":
		return BlobObject, nil
	case "tag":
		return TagObject, nil
	default:
		return InvalidObject, fmt.Errorf("%w: unknown object type %q", ErrInvalidObject, s)
	}
}
