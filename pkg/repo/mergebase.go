package repo

import (
	"fmt"

	"github.com/stratavcs/strata/pkg/object"
)

// IsAncestor reports whether ancestor is reachable from descendant via
// parent links (a commit is its own ancestor). Generation numbers prune
// the walk: a commit can never be the ancestor of one with a smaller or
// equal generation.
func (r *Repo) IsAncestor(ancestor, descendant object.Hash) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}

	state := r.getGraphState()
	ancestorGen, err := state.generation(r, ancestor)
	if err != nil {
		return false, err
	}

	queue := []object.Hash{descendant}
	seen := map[object.Hash]struct{}{descendant: {}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur == ancestor {
			return true, nil
		}
		curGen, err := state.generation(r, cur)
		if err != nil {
			return false, err
		}
		if curGen <= ancestorGen {
			// Everything below here has a smaller generation than
			// ancestor, so ancestor cannot appear.
			continue
		}

		commit, err := state.readCommit(r, cur)
		if err != nil {
			return false, err
		}
		for _, p := range commit.Parents {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			if p == ancestor {
				return true, nil
			}
			queue = append(queue, p)
		}
	}
	return false, nil
}

// MergeBase returns the lowest common ancestor of a and b: the ancestor
// set of a is computed as a breadth-first closure, then the ancestors of
// b are walked in distance order and the first commit found in a's set is
// returned.
//
// When a criss-cross history has multiple lowest common ancestors, the
// one discovered first in the breadth-first walk from b wins. This is a
// deliberate, deterministic policy choice (see Config.Merge.Tiebreak),
// not an error.
//
// If a and b share no ancestor the error wraps ErrUnrelatedHistories.
func (r *Repo) MergeBase(a, b object.Hash) (object.Hash, error) {
	if a == "" || b == "" {
		return "", fmt.Errorf("merge base: empty commit hash")
	}
	if a == b {
		return a, nil
	}

	state := r.getGraphState()
	if cached, ok := state.loadMergeBase(a, b); ok {
		if cached.found {
			return cached.base, nil
		}
		return "", fmt.Errorf("merge base of %s and %s: %w", a, b, ErrUnrelatedHistories)
	}

	base, found, err := r.findMergeBase(a, b)
	if err != nil {
		return "", err
	}
	state.storeMergeBase(a, b, base, found)
	if !found {
		return "", fmt.Errorf("merge base of %s and %s: %w", a, b, ErrUnrelatedHistories)
	}
	return base, nil
}

func (r *Repo) findMergeBase(a, b object.Hash) (object.Hash, bool, error) {
	state := r.getGraphState()

	// Breadth-first closure of a's ancestors.
	ancestorsOfA := map[object.Hash]struct{}{a: {}}
	queue := []object.Hash{a}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		commit, err := state.readCommit(r, cur)
		if err != nil {
			return "", false, fmt.Errorf("merge base: %w", err)
		}
		for _, p := range commit.Parents {
			if _, ok := ancestorsOfA[p]; ok {
				continue
			}
			ancestorsOfA[p] = struct{}{}
			queue = append(queue, p)
		}
	}

	// Distance-ordered walk from b; the first hit in a's closure is the
	// chosen base (ties in criss-cross histories resolve to whichever
	// candidate the breadth-first order reaches first).
	seen := map[object.Hash]struct{}{b: {}}
	queue = []object.Hash{b}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if _, ok := ancestorsOfA[cur]; ok {
			return cur, true, nil
		}

		commit, err := state.readCommit(r, cur)
		if err != nil {
			return "", false, fmt.Errorf("merge base: %w", err)
		}
		for _, p := range commit.Parents {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			queue = append(queue, p)
		}
	}

	return "", false, nil
}
