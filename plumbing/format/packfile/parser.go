package packfile

import (
	"errors"
	"fmt"
	"io"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/hash"
)

// defaultMaxChainDepth bounds delta chain recursion against adversarial
// packs (spec §9, "Delta resolution graph": recommends 50).
const defaultMaxChainDepth = 50

// BaseResolver resolves a REF_DELTA base hash that is not itself present in
// the pack being parsed — the thin-pack case, where the base already lives
// in the repository's object store.
type BaseResolver interface {
	ResolveBase(h plumbing.Hash) (plumbing.ObjectType, []byte, error)
}

// Object is one fully resolved pack entry: its final content hash, type,
// and decoded content, with deltas already applied.
type Object struct {
	Hash    plumbing.Hash
	Type    plumbing.ObjectType
	Content []byte
	Offset  int64
}

// Parser resolves every entry a Scanner produces into a final Object,
// chasing OFS_DELTA/REF_DELTA chains against the pack's own prior entries
// and, when a base is missing from the pack, against an optional external
// BaseResolver.
type Parser struct {
	algo          hash.Algorithm
	external      BaseResolver
	maxChainDepth int
}

// NewParser returns a Parser for packs under the given hash algorithm.
// external may be nil if thin packs are not expected.
func NewParser(algo hash.Algorithm, external BaseResolver) *Parser {
	return &Parser{algo: algo, external: external, maxChainDepth: defaultMaxChainDepth}
}

// Parse fully decodes r, validating the trailer, and returns every object
// in pack order with deltas resolved.
func (p *Parser) Parse(r io.Reader) ([]Object, error) {
	scanner, err := NewScanner(r, p.algo)
	if err != nil {
		return nil, err
	}

	entries := make([]*Entry, 0, scanner.Header().ObjectsQty)
	for {
		e, err := scanner.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := scanner.ValidateTrailer(); err != nil {
		return nil, err
	}

	return p.resolveAll(entries)
}

func (p *Parser) resolveAll(entries []*Entry) ([]Object, error) {
	byOffset := make(map[int64]*Entry, len(entries))
	for _, e := range entries {
		byOffset[e.Offset] = e
	}

	resolvedByOffset := map[int64]Object{}
	resolvedByHash := map[plumbing.Hash]Object{}
	if err := p.seedNonDeltaHashes(byOffset, resolvedByOffset, resolvedByHash); err != nil {
		return nil, err
	}

	out := make([]Object, len(entries))
	for i, e := range entries {
		obj, err := p.resolve(e, byOffset, resolvedByOffset, resolvedByHash, 0)
		if err != nil {
			return nil, err
		}
		out[i] = obj
	}
	return out, nil
}

// seedNonDeltaHashes computes the content hash of every non-delta entry up
// front, since REF_DELTA bases are looked up by hash and a delta entry's
// own hash is not known until it is resolved.
func (p *Parser) seedNonDeltaHashes(byOffset map[int64]*Entry, byOffsetOut map[int64]Object, byHashOut map[plumbing.Hash]Object) error {
	for offset, e := range byOffset {
		if e.isDelta() {
			continue
		}
		h := p.hashOf(e.ObjectType, e.Content)
		obj := Object{Hash: h, Type: e.ObjectType, Content: e.Content, Offset: offset}
		byOffsetOut[offset] = obj
		byHashOut[h] = obj
	}
	return nil
}

func (p *Parser) hashOf(t plumbing.ObjectType, content []byte) plumbing.Hash {
	h := plumbing.NewHasher(p.algo, t, int64(len(content)))
	h.Write(content)
	return h.Sum()
}

func (p *Parser) resolve(e *Entry, byOffset map[int64]*Entry, resolvedByOffset map[int64]Object, resolvedByHash map[plumbing.Hash]Object, depth int) (Object, error) {
	if obj, ok := resolvedByOffset[e.Offset]; ok {
		return obj, nil
	}
	if depth > p.maxChainDepth {
		return Object{}, fmt.Errorf("%w: delta chain exceeds max depth %d", plumbing.ErrInvalidPack, p.maxChainDepth)
	}

	if !e.isDelta() {
		obj := Object{Hash: p.hashOf(e.ObjectType, e.Content), Type: e.ObjectType, Content: e.Content, Offset: e.Offset}
		resolvedByOffset[e.Offset] = obj
		resolvedByHash[obj.Hash] = obj
		return obj, nil
	}

	var base Object
	switch e.Type {
	case entryOfsDelta:
		baseEntry, ok := byOffset[e.BaseOffset]
		if !ok {
			return Object{}, fmt.Errorf("%w: ofs-delta base at offset %d not found", plumbing.ErrInvalidPack, e.BaseOffset)
		}
		b, err := p.resolve(baseEntry, byOffset, resolvedByOffset, resolvedByHash, depth+1)
		if err != nil {
			return Object{}, err
		}
		base = b

	case entryRefDelta:
		if b, ok := resolvedByHash[e.BaseHash]; ok {
			base = b
		} else if baseEntry, ok := p.findByHash(byOffset, e.BaseHash); ok {
			b, err := p.resolve(baseEntry, byOffset, resolvedByOffset, resolvedByHash, depth+1)
			if err != nil {
				return Object{}, err
			}
			base = b
		} else if p.external != nil {
			t, content, err := p.external.ResolveBase(e.BaseHash)
			if err != nil {
				return Object{}, fmt.Errorf("%w: ref-delta base %s: %s", plumbing.ErrInvalidPack, e.BaseHash, err)
			}
			base = Object{Hash: e.BaseHash, Type: t, Content: content}
		} else {
			return Object{}, fmt.Errorf("%w: ref-delta base %s not found", plumbing.ErrInvalidPack, e.BaseHash)
		}

	default:
		return Object{}, fmt.Errorf("%w: entry at offset %d is not a delta", plumbing.ErrInvalidPack, e.Offset)
	}

	content, err := applyDelta(base.Content, e.Content)
	if err != nil {
		return Object{}, err
	}

	obj := Object{Hash: p.hashOf(base.Type, content), Type: base.Type, Content: content, Offset: e.Offset}
	resolvedByOffset[e.Offset] = obj
	resolvedByHash[obj.Hash] = obj
	return obj, nil
}

// HashLocator maps a REF_DELTA base hash to its absolute offset within the
// same pack; storage/filesystem satisfies this with a parsed idxfile.Index.
type HashLocator interface {
	FindOffset(h plumbing.Hash) (int64, error)
}

// ResolveAtOffset decodes and fully resolves the single object living at
// offset in a pack served by r, following OFS_DELTA/REF_DELTA chains by
// re-reading sibling entries directly rather than scanning the whole pack
// (spec §4.5, "single-object read from a pack"). REF_DELTA bases are found
// by consulting idx; if absent there, the external resolver (thin packs) is
// tried.
func (p *Parser) ResolveAtOffset(r io.ReaderAt, idx HashLocator, offset int64) (Object, error) {
	return p.resolveAtOffset(r, idx, offset, 0)
}

func (p *Parser) resolveAtOffset(r io.ReaderAt, idx HashLocator, offset int64, depth int) (Object, error) {
	if depth > p.maxChainDepth {
		return Object{}, fmt.Errorf("%w: delta chain exceeds max depth %d", plumbing.ErrInvalidPack, p.maxChainDepth)
	}

	e, err := ReadEntryAt(r, p.algo, offset)
	if err != nil {
		return Object{}, err
	}
	if !e.isDelta() {
		return Object{Hash: p.hashOf(e.ObjectType, e.Content), Type: e.ObjectType, Content: e.Content, Offset: offset}, nil
	}

	var base Object
	switch e.Type {
	case entryOfsDelta:
		base, err = p.resolveAtOffset(r, idx, e.BaseOffset, depth+1)
		if err != nil {
			return Object{}, err
		}
	case entryRefDelta:
		baseOffset, ferr := idx.FindOffset(e.BaseHash)
		switch {
		case ferr == nil:
			base, err = p.resolveAtOffset(r, idx, baseOffset, depth+1)
			if err != nil {
				return Object{}, err
			}
		case errors.Is(ferr, plumbing.ErrNotFound) && p.external != nil:
			t, content, rerr := p.external.ResolveBase(e.BaseHash)
			if rerr != nil {
				return Object{}, fmt.Errorf("%w: ref-delta base %s: %s", plumbing.ErrInvalidPack, e.BaseHash, rerr)
			}
			base = Object{Hash: e.BaseHash, Type: t, Content: content}
		default:
			return Object{}, fmt.Errorf("%w: ref-delta base %s not found", plumbing.ErrInvalidPack, e.BaseHash)
		}
	default:
		return Object{}, fmt.Errorf("%w: entry at offset %d is not a delta", plumbing.ErrInvalidPack, offset)
	}

	content, err := applyDelta(base.Content, e.Content)
	if err != nil {
		return Object{}, err
	}
	return Object{Hash: p.hashOf(base.Type, content), Type: base.Type, Content: content, Offset: offset}, nil
}

func (p *Parser) findByHash(byOffset map[int64]*Entry, h plumbing.Hash) (*Entry, bool) {
	for _, e := range byOffset {
		if e.isDelta() {
			continue
		}
		if p.hashOf(e.ObjectType, e.Content).Equal(h) {
			return e, true
		}
	}
	return nil, false
}
