package repository

import (
	"context"
	"io"

	"github.com/emirpasic/gods/trees/binaryheap"
	"github.com/pkg/errors"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/object"
)

// Commit decodes and returns the commit object at h.
func (r *Repository) Commit(h plumbing.Hash) (*object.Commit, error) {
	obj, err := r.store.Object(h)
	if err != nil {
		return nil, errors.Wrapf(err, "repository: commit %s", h)
	}
	if obj.Type != plumbing.CommitObject {
		return nil, errors.Wrapf(plumbing.ErrInvalidArgument, "repository: %s is a %s, not a commit", h, obj.Type)
	}
	c, err := object.DecodeCommit(obj.Content, r.algo.Size())
	if err != nil {
		return nil, errors.Wrapf(err, "repository: decode commit %s", h)
	}
	return c, nil
}

type commitNode struct {
	hash   plumbing.Hash
	commit *object.Commit
}

func (r *Repository) loadCommitNode(h plumbing.Hash) (*commitNode, error) {
	c, err := r.Commit(h)
	if err != nil {
		return nil, err
	}
	r.log.WithField("commit", h).Debug("repository: loaded commit node")
	return &commitNode{hash: h, commit: c}, nil
}

// commitHeapComparator orders the explore heap by commit time, descending
// (most recent first) — this core has no commit-graph generation numbers
// to gate exploration with, so commit time substitutes for them, matching
// git log --date-order's fallback when no commit-graph is present.
func commitHeapComparator(a, b interface{}) int {
	na, nb := a.(*commitNode), b.(*commitNode)
	ta, tb := na.commit.Committer.When, nb.commit.Committer.When
	switch {
	case ta.After(tb):
		return -1
	case ta.Before(tb):
		return 1
	default:
		return 0
	}
}

// CommitIterator walks commit history in topological order: a commit is
// never emitted before all of its children (within the walked set) have
// been. Grounded on go-git's commitgraph topological walker
// (commitnode_walker_topo_order.go), a two-stack Kahn's-algorithm shape —
// a max-heap "explore" stack plus a LIFO "visit" stack gated by in-degree
// counts — with commit time standing in for that walker's generation
// number.
type CommitIterator struct {
	repo     *Repository
	explore  *binaryheap.Heap
	visit    []*commitNode
	inCounts map[plumbing.Hash]int
}

// EnumerateCommits returns a lazy, cancellable, topologically-ordered
// iterator over the history reachable from starts, taking commits ready to
// emit from a LIFO visit stack, that emits each commit at most once (spec
// §4.9 "Enumerators").
func (r *Repository) EnumerateCommits(starts ...plumbing.Hash) (*CommitIterator, error) {
	if len(starts) == 0 {
		h, err := r.Head()
		if err != nil {
			return nil, err
		}
		starts = []plumbing.Hash{h}
	}

	it := &CommitIterator{
		repo:     r,
		explore:  binaryheap.NewWith(commitHeapComparator),
		inCounts: map[plumbing.Hash]int{},
	}
	for _, h := range starts {
		n, err := r.loadCommitNode(h)
		if err != nil {
			return nil, err
		}
		it.explore.Push(n)
		it.visit = append(it.visit, n)
	}
	return it, nil
}

// Next returns the next commit in topological order, or io.EOF once the
// walk is exhausted. ctx is checked at every suspension point (object
// reads); a cancelled context surfaces plumbing.ErrCancelled.
func (it *CommitIterator) Next(ctx context.Context) (plumbing.Hash, *object.Commit, error) {
	var next *commitNode
	for {
		if len(it.visit) == 0 {
			return plumbing.Hash{}, nil, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return plumbing.Hash{}, nil, errors.Wrap(plumbing.ErrCancelled, err.Error())
		}
		next = it.visit[len(it.visit)-1]
		it.visit = it.visit[:len(it.visit)-1]
		if it.inCounts[next.hash] == 0 {
			break
		}
	}

	parentNodes := make([]*commitNode, len(next.commit.Parents))
	minWhen := next.commit.Committer.When
	for i, p := range next.commit.Parents {
		if err := ctx.Err(); err != nil {
			return plumbing.Hash{}, nil, errors.Wrap(plumbing.ErrCancelled, err.Error())
		}
		pn, err := it.repo.loadCommitNode(p)
		if err != nil {
			return plumbing.Hash{}, nil, err
		}
		parentNodes[i] = pn
		if pn.commit.Committer.When.Before(minWhen) {
			minWhen = pn.commit.Committer.When
		}
	}

	for {
		top, ok := it.explore.Peek()
		if !ok {
			break
		}
		te := top.(*commitNode)
		if !te.hash.Equal(next.hash) && it.explore.Size() == 1 {
			break
		}
		if te.commit.Committer.When.Before(minWhen) {
			break
		}
		it.explore.Pop()
		for _, ph := range te.commit.Parents {
			it.inCounts[ph]++
			if it.inCounts[ph] == 1 {
				if err := ctx.Err(); err != nil {
					return plumbing.Hash{}, nil, errors.Wrap(plumbing.ErrCancelled, err.Error())
				}
				pn, err := it.repo.loadCommitNode(ph)
				if err != nil {
					return plumbing.Hash{}, nil, err
				}
				it.explore.Push(pn)
			}
		}
	}

	for i, p := range next.commit.Parents {
		it.inCounts[p]--
		if it.inCounts[p] == 0 {
			it.visit = append(it.visit, parentNodes[i])
		}
	}
	delete(it.inCounts, next.hash)

	return next.hash, next.commit, nil
}
