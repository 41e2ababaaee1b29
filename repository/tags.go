package repository

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/object"
)

const tagRefPrefix = "refs/tags/"

// TagEntry is one resolved tag: its reference name, the commit it
// ultimately points at (peeled through an annotated tag object if
// present), and the annotated Tag object itself when there is one
// (lightweight tags leave Tag nil).
type TagEntry struct {
	Name   plumbing.ReferenceName
	Target plumbing.Hash
	Tag    *object.Tag
}

// EnumerateTags lists every "refs/tags/*" reference, peeling annotated tag
// objects to their target commit (spec §4.15 supplement, grounded on
// go-git's Repository.Tags()).
func (r *Repository) EnumerateTags() ([]TagEntry, error) {
	refs, err := r.store.IterReferences()
	if err != nil {
		return nil, errors.Wrap(err, "repository: enumerate tags")
	}

	var out []TagEntry
	for _, ref := range refs {
		if !strings.HasPrefix(string(ref.Name), tagRefPrefix) {
			continue
		}

		obj, err := r.store.Object(ref.Target.Hash)
		if err != nil {
			return nil, errors.Wrapf(err, "repository: enumerate tags: %s", ref.Name)
		}

		entry := TagEntry{Name: ref.Name, Target: ref.Target.Hash}
		for obj.Type == plumbing.TagObject {
			tag, err := object.DecodeTag(obj.Content, r.algo.Size())
			if err != nil {
				return nil, errors.Wrapf(err, "repository: decode tag %s", ref.Name)
			}
			if entry.Tag == nil {
				entry.Tag = tag
			}
			entry.Target = tag.Object
			if tag.Type != plumbing.TagObject {
				break
			}
			if obj, err = r.store.Object(tag.Object); err != nil {
				return nil, errors.Wrapf(err, "repository: enumerate tags: %s", ref.Name)
			}
		}
		out = append(out, entry)
	}
	return out, nil
}
