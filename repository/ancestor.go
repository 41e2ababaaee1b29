package repository

import (
	"github.com/pkg/errors"

	"github.com/gitshelf/gitshelf/commitbuilder"
	"github.com/gitshelf/gitshelf/plumbing"
)

// IsAncestor reports whether ancestor is commit itself or one of its
// ancestors (spec §4.15 supplement, a convenience wrapper over
// commitbuilder.IsCommitReachable phrased the direction callers usually
// want, grounded on go-git's Commit.IsAncestor).
func (r *Repository) IsAncestor(ancestor, commit plumbing.Hash) (bool, error) {
	reachable, err := commitbuilder.IsCommitReachable(r.store, r.algo, commit, ancestor)
	if err != nil {
		return false, errors.Wrap(err, "repository: is ancestor")
	}
	return reachable, nil
}
