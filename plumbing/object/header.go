// Package object decodes and encodes Git's four object kinds — commit,
// tree, blob, tag — from the raw content a loose or pack object reader
// produces. Blob has no further structure; the other three share a
// line-oriented "headers, blank line, message" shape this file parses
// once for commit and tag.
package object

import (
	"bytes"
	"fmt"

	"github.com/gitshelf/gitshelf/plumbing"
)

// headerField is one raw key/value pair from a commit or tag header block,
// in on-disk order; unrecognized keys are carried opaquely so re-encoding
// does not silently drop them.
type headerField struct {
	Key   string
	Value string
}

// splitHeaderAndMessage divides payload into its header block (everything
// before the first blank line) and message (everything after, with at most
// one trailing newline trimmed), per spec §4.3.
func splitHeaderAndMessage(payload []byte) ([]headerField, []byte, error) {
	sep := bytes.Index(payload, []byte("\n\n"))
	var headerBlock, message []byte
	if sep == -1 {
		headerBlock = payload
		message = nil
	} else {
		headerBlock = payload[:sep]
		message = payload[sep+2:]
	}
	message = bytes.TrimSuffix(message, []byte("\n"))

	fields, err := parseHeaderBlock(headerBlock)
	if err != nil {
		return nil, nil, err
	}
	return fields, message, nil
}

// parseHeaderBlock parses "key SP value" lines, folding continuation lines
// (starting with a single space) into the previous field's value.
func parseHeaderBlock(block []byte) ([]headerField, error) {
	if len(block) == 0 {
		return nil, nil
	}
	var fields []headerField
	for _, line := range bytes.Split(block, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		if line[0] == ' ' {
			if len(fields) == 0 {
				return nil, fmt.Errorf("%w: continuation line with no preceding header", plumbing.ErrInvalidObject)
			}
			fields[len(fields)-1].Value += "\n" + string(line[1:])
			continue
		}
		sp := bytes.IndexByte(line, ' ')
		if sp == -1 {
			return nil, fmt.Errorf("%w: malformed header line %q", plumbing.ErrInvalidObject, line)
		}
		fields = append(fields, headerField{Key: string(line[:sp]), Value: string(line[sp+1:])})
	}
	return fields, nil
}

// encodeHeaderField writes one "key value" line, re-expanding any embedded
// continuation newlines back into the leading-space form.
func encodeHeaderField(buf *bytes.Buffer, key, value string) {
	buf.WriteString(key)
	buf.WriteByte(' ')
	lines := splitLines(value)
	buf.WriteString(lines[0])
	buf.WriteByte('\n')
	for _, l := range lines[1:] {
		buf.WriteByte(' ')
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
}

func splitLines(s string) []string {
	parts := bytes.Split([]byte(s), []byte("\n"))
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = string(p)
	}
	return out
}
