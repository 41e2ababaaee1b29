package commitbuilder

import (
	"github.com/pkg/errors"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/hash"
	"github.com/gitshelf/gitshelf/plumbing/object"
	"github.com/gitshelf/gitshelf/storage"
)

// UpdateReference performs the commit's reference update (spec §4.8,
// "Reference update"): a validated CAS write of commitHash onto name,
// expecting its current value to be expectedOld (a zero Hash meaning the
// ref must not yet exist). A lost race surfaces storage.ErrReferenceHasChanged.
func UpdateReference(refs storage.ReferenceStorer, name plumbing.ReferenceName, expectedOld, commitHash plumbing.Hash) error {
	var oldPtr *plumbing.Hash
	if !expectedOld.IsZero() {
		oldPtr = &expectedOld
	}
	newHash := commitHash
	if err := refs.CompareAndSwap(name, oldPtr, &newHash); err != nil {
		return errors.Wrapf(err, "commitbuilder: update %s", name)
	}
	return nil
}

// IsCommitReachable reports whether target is from is itself, or is an
// ancestor of from, by walking parent links (spec §4.8, "reachability").
func IsCommitReachable(store storage.ObjectStorer, algo hash.Algorithm, from, target plumbing.Hash) (bool, error) {
	if from.Equal(target) {
		return true, nil
	}

	visited := map[plumbing.Hash]bool{}
	queue := []plumbing.Hash{from}

	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if visited[h] {
			continue
		}
		visited[h] = true

		obj, err := store.Object(h)
		if err != nil {
			return false, errors.Wrapf(err, "commitbuilder: reachability: read %s", h)
		}
		if obj.Type != plumbing.CommitObject {
			continue
		}
		commit, err := object.DecodeCommit(obj.Content, algo.Size())
		if err != nil {
			return false, errors.Wrapf(err, "commitbuilder: reachability: decode %s", h)
		}
		for _, p := range commit.Parents {
			if p.Equal(target) {
				return true, nil
			}
			if !visited[p] {
				queue = append(queue, p)
			}
		}
	}
	return false, nil
}
