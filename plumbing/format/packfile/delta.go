package packfile

import (
	"fmt"

	"github.com/gitshelf/gitshelf/plumbing"
)

const (
	deltaMaskContinue = 0x80
	deltaMaxCopySize  = 0x10000

	deltaMinHeaderSize = 2 // smallest possible pair of one-byte LEB128 varints
)

type deltaOffsetByte struct {
	mask  byte
	shift uint
}

var deltaOffsets = []deltaOffsetByte{
	{mask: 0x01, shift: 0},
	{mask: 0x02, shift: 8},
	{mask: 0x04, shift: 16},
	{mask: 0x08, shift: 24},
}

var deltaSizes = []deltaOffsetByte{
	{mask: 0x10, shift: 0},
	{mask: 0x20, shift: 8},
	{mask: 0x40, shift: 16},
}

// applyDelta reconstructs an object's content by applying delta against
// base, per spec §8's delta VM: two leading varints (declared base length,
// declared result length), then a sequence of copy/insert opcodes.
func applyDelta(base, delta []byte) ([]byte, error) {
	if len(delta) < deltaMinHeaderSize {
		return nil, fmt.Errorf("%w: delta shorter than its own header", plumbing.ErrInvalidDelta)
	}

	baseSz, rest, err := decodeVarint(delta)
	if err != nil {
		return nil, err
	}
	if baseSz != uint64(len(base)) {
		return nil, fmt.Errorf("%w: base size mismatch: delta wants %d, base is %d bytes", plumbing.ErrInvalidDelta, baseSz, len(base))
	}

	resultSz, rest, err := decodeVarint(rest)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, resultSz)
	for len(rest) > 0 {
		cmd := rest[0]
		rest = rest[1:]

		switch {
		case cmd&deltaMaskContinue != 0:
			var offset, size uint64
			for _, o := range deltaOffsets {
				if cmd&o.mask == 0 {
					continue
				}
				if len(rest) == 0 {
					return nil, fmt.Errorf("%w: truncated copy offset", plumbing.ErrInvalidDelta)
				}
				offset |= uint64(rest[0]) << o.shift
				rest = rest[1:]
			}
			for _, s := range deltaSizes {
				if cmd&s.mask == 0 {
					continue
				}
				if len(rest) == 0 {
					return nil, fmt.Errorf("%w: truncated copy size", plumbing.ErrInvalidDelta)
				}
				size |= uint64(rest[0]) << s.shift
				rest = rest[1:]
			}
			if size == 0 {
				size = deltaMaxCopySize
			}
			if offset+size < offset || offset+size > baseSz {
				return nil, fmt.Errorf("%w: copy [%d,%d) out of bounds for base of %d bytes", plumbing.ErrInvalidDelta, offset, offset+size, baseSz)
			}
			if uint64(len(out))+size > resultSz {
				return nil, fmt.Errorf("%w: copy overruns declared result size", plumbing.ErrInvalidDelta)
			}
			out = append(out, base[offset:offset+size]...)

		case cmd == 0:
			return nil, fmt.Errorf("%w: opcode 0 is reserved", plumbing.ErrInvalidDelta)

		default:
			size := uint64(cmd)
			if uint64(len(rest)) < size {
				return nil, fmt.Errorf("%w: insert past end of delta payload", plumbing.ErrInvalidDelta)
			}
			if uint64(len(out))+size > resultSz {
				return nil, fmt.Errorf("%w: insert overruns declared result size", plumbing.ErrInvalidDelta)
			}
			out = append(out, rest[:size]...)
			rest = rest[size:]
		}
	}

	if uint64(len(out)) != resultSz {
		return nil, fmt.Errorf("%w: produced %d bytes, delta declared %d", plumbing.ErrInvalidDelta, len(out), resultSz)
	}
	return out, nil
}

// decodeVarint reads Git's delta-header varint: 7 low bits per byte, high
// bit marks continuation, little-endian base-128.
func decodeVarint(b []byte) (uint64, []byte, error) {
	var val uint64
	var shift uint
	for i := 0; i < len(b); i++ {
		c := b[i]
		val |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return val, b[i+1:], nil
		}
		shift += 7
		if shift > 63 {
			return 0, nil, fmt.Errorf("%w: varint too long", plumbing.ErrInvalidDelta)
		}
	}
	return 0, nil, fmt.Errorf("%w: truncated varint", plumbing.ErrInvalidDelta)
}
