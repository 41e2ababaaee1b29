package object

import (
	"bytes"
	"fmt"

	"github.com/gitshelf/gitshelf/plumbing"
)

// Tag is the parsed form of an annotated tag: the target object it
// points at, the target's declared type, the tag name, the tagger, and the
// message (spec §4.3).
type Tag struct {
	Object  plumbing.Hash
	Type    plumbing.ObjectType
	Tag     string
	Tagger  plumbing.Signature
	Message string

	Extra []headerField
}

// DecodeTag parses tag content.
func DecodeTag(content []byte, hashSize int) (*Tag, error) {
	fields, message, err := splitHeaderAndMessage(content)
	if err != nil {
		return nil, err
	}

	t := &Tag{Message: string(message)}
	var haveObject, haveType, haveTag bool
	for _, f := range fields {
		switch f.Key {
		case "object":
			h, err := parseHashField(f.Value, hashSize)
			if err != nil {
				return nil, fmt.Errorf("%w: tag: object: %s", plumbing.ErrInvalidObject, err)
			}
			t.Object = h
			haveObject = true
		case "type":
			ot, err := plumbing.ParseObjectType(f.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: tag: type: %s", plumbing.ErrInvalidObject, err)
			}
			t.Type = ot
			haveType = true
		case "tag":
			t.Tag = f.Value
			haveTag = true
		case "tagger":
			sig, err := plumbing.ParseSignature(f.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: tag: tagger: %s", plumbing.ErrInvalidObject, err)
			}
			t.Tagger = sig
		default:
			t.Extra = append(t.Extra, f)
		}
	}

	if !haveObject || !haveType || !haveTag {
		return nil, fmt.Errorf("%w: tag: missing required header (object/type/tag)", plumbing.ErrInvalidObject)
	}
	return t, nil
}

// Encode serializes the tag back to its wire form.
func (t *Tag) Encode() []byte {
	var buf bytes.Buffer
	encodeHeaderField(&buf, "object", t.Object.String())
	encodeHeaderField(&buf, "type", t.Type.String())
	encodeHeaderField(&buf, "tag", t.Tag)
	encodeHeaderField(&buf, "tagger", t.Tagger.Encode())
	for _, f := range t.Extra {
		encodeHeaderField(&buf, f.Key, f.Value)
	}
	buf.WriteByte('\n')
	buf.WriteString(t.Message)
	if t.Message != "" {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Signature returns the raw armored signature, if present.
func (t *Tag) Signature() (string, bool) {
	for _, f := range t.Extra {
		if f.Key == "gpgsig" {
			return f.Value, true
		}
	}
	return "", false
}

// EncodeWithoutSignature serializes the tag as it would have been signed,
// omitting the "gpgsig" header.
func (t *Tag) EncodeWithoutSignature() []byte {
	var buf bytes.Buffer
	encodeHeaderField(&buf, "object", t.Object.String())
	encodeHeaderField(&buf, "type", t.Type.String())
	encodeHeaderField(&buf, "tag", t.Tag)
	encodeHeaderField(&buf, "tagger", t.Tagger.Encode())
	for _, f := range t.Extra {
		if f.Key == "gpgsig" {
			continue
		}
		encodeHeaderField(&buf, f.Key, f.Value)
	}
	buf.WriteByte('\n')
	buf.WriteString(t.Message)
	if t.Message != "" {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
