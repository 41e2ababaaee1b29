package repository

import (
	"context"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/object"
)

// blobAt resolves path under treeHash to a non-directory entry's hash.
func (r *Repository) blobAt(treeHash plumbing.Hash, path string) (plumbing.Hash, bool, error) {
	entry, found, err := r.resolveEntry(treeHash, path)
	if err != nil || !found || entry.Kind == object.DirTree {
		return plumbing.Hash{}, false, err
	}
	return entry.Hash, true, nil
}

// FileHistoryIterator yields the commits that changed a single path,
// newest first.
type FileHistoryIterator struct {
	commits *CommitIterator
	repo    *Repository
	path    string
}

// EnumerateFileHistory walks history reachable from starts (default HEAD),
// yielding each commit where the blob hash at path differs from every
// parent's blob hash at path — classic Git history-simplification
// semantics (spec §4.9 "Enumerators": enumerate_file_history). The first
// commit introducing path qualifies, since it has no parent blob to match.
// Grounded on go-git's references.go (walkGraph/derivedFromAnyParent),
// simplified: merge commits are not collapsed across the whole graph, only
// judged against their direct parents.
func (r *Repository) EnumerateFileHistory(path string, starts ...plumbing.Hash) (*FileHistoryIterator, error) {
	ci, err := r.EnumerateCommits(starts...)
	if err != nil {
		return nil, err
	}
	return &FileHistoryIterator{commits: ci, repo: r, path: path}, nil
}

// Next returns the next qualifying commit, or io.EOF once history is
// exhausted.
func (it *FileHistoryIterator) Next(ctx context.Context) (plumbing.Hash, *object.Commit, error) {
	for {
		h, c, err := it.commits.Next(ctx)
		if err != nil {
			return plumbing.Hash{}, nil, err
		}

		blobHash, found, err := it.repo.blobAt(c.Tree, it.path)
		if err != nil {
			return plumbing.Hash{}, nil, err
		}
		if !found {
			continue
		}

		differs := true
		for _, p := range c.Parents {
			pc, err := it.repo.Commit(p)
			if err != nil {
				return plumbing.Hash{}, nil, err
			}
			pBlob, pFound, err := it.repo.blobAt(pc.Tree, it.path)
			if err != nil {
				return plumbing.Hash{}, nil, err
			}
			if pFound && pBlob.Equal(blobHash) {
				differs = false
				break
			}
		}
		if differs {
			return h, c, nil
		}
	}
}
