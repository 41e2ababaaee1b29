package object

import (
	"bytes"
	"fmt"

	"github.com/gitshelf/gitshelf/plumbing"
)

// Commit is the parsed form of a commit: its required tree, ordered
// parents, author/committer signatures, the message, and every other
// header preserved opaquely and in order (spec §4.3).
type Commit struct {
	Tree      plumbing.Hash
	Parents   []plumbing.Hash
	Author    plumbing.Signature
	Committer plumbing.Signature
	Message   string

	// Extra holds headers this parser does not interpret (e.g. "gpgsig",
	// "mergetag"), in on-disk order, so re-encoding reproduces them
	// verbatim.
	Extra []headerField
}

// DecodeCommit parses commit content.
func DecodeCommit(content []byte, hashSize int) (*Commit, error) {
	fields, message, err := splitHeaderAndMessage(content)
	if err != nil {
		return nil, err
	}

	c := &Commit{Message: string(message)}
	var haveTree bool
	for _, f := range fields {
		switch f.Key {
		case "tree":
			h, err := parseHashField(f.Value, hashSize)
			if err != nil {
				return nil, fmt.Errorf("%w: commit: tree: %s", plumbing.ErrInvalidObject, err)
			}
			c.Tree = h
			haveTree = true
		case "parent":
			h, err := parseHashField(f.Value, hashSize)
			if err != nil {
				return nil, fmt.Errorf("%w: commit: parent: %s", plumbing.ErrInvalidObject, err)
			}
			c.Parents = append(c.Parents, h)
		case "author":
			sig, err := plumbing.ParseSignature(f.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: commit: author: %s", plumbing.ErrInvalidObject, err)
			}
			c.Author = sig
		case "committer":
			sig, err := plumbing.ParseSignature(f.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: commit: committer: %s", plumbing.ErrInvalidObject, err)
			}
			c.Committer = sig
		default:
			c.Extra = append(c.Extra, f)
		}
	}

	if !haveTree {
		return nil, fmt.Errorf("%w: commit: missing tree header", plumbing.ErrInvalidObject)
	}
	return c, nil
}

// Encode serializes the commit back to its wire form.
func (c *Commit) Encode() []byte {
	var buf bytes.Buffer
	encodeHeaderField(&buf, "tree", c.Tree.String())
	for _, p := range c.Parents {
		encodeHeaderField(&buf, "parent", p.String())
	}
	encodeHeaderField(&buf, "author", c.Author.Encode())
	encodeHeaderField(&buf, "committer", c.Committer.Encode())
	for _, f := range c.Extra {
		encodeHeaderField(&buf, f.Key, f.Value)
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	if c.Message != "" {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Signature returns the raw armored signature from a "gpgsig" header, if
// present.
func (c *Commit) Signature() (string, bool) {
	for _, f := range c.Extra {
		if f.Key == "gpgsig" {
			return f.Value, true
		}
	}
	return "", false
}

// EncodeWithoutSignature serializes the commit as it would have been
// signed: every header except "gpgsig", in original order. GPG signatures
// cover the object with the signature header itself omitted.
func (c *Commit) EncodeWithoutSignature() []byte {
	var buf bytes.Buffer
	encodeHeaderField(&buf, "tree", c.Tree.String())
	for _, p := range c.Parents {
		encodeHeaderField(&buf, "parent", p.String())
	}
	encodeHeaderField(&buf, "author", c.Author.Encode())
	encodeHeaderField(&buf, "committer", c.Committer.Encode())
	for _, f := range c.Extra {
		if f.Key == "gpgsig" {
			continue
		}
		encodeHeaderField(&buf, f.Key, f.Value)
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	if c.Message != "" {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func parseHashField(v string, hashSize int) (plumbing.Hash, error) {
	h, err := plumbing.FromHex(v)
	if err != nil {
		return plumbing.Hash{}, err
	}
	if len(h.Bytes()) != hashSize {
		return plumbing.Hash{}, fmt.Errorf("%w: hash %q does not match repository hash size %d", plumbing.ErrInvalidObject, v, hashSize)
	}
	return h, nil
}
