package repo

import (
	"fmt"

	"github.com/stratavcs/strata/pkg/object"
)

// GCSummary reports what a garbage collection pass found and removed.
type GCSummary struct {
	Scanned   int // loose objects examined
	Reachable int
	Removed   int
}

// GC removes loose objects unreachable from any ref, HEAD, or the state
// of an in-flight rebase or bisect session. DryRun computes the summary
// without deleting anything.
func (r *Repo) GC(dryRun bool) (*GCSummary, error) {
	roots, err := r.gcRoots()
	if err != nil {
		return nil, fmt.Errorf("gc: %w", err)
	}

	reachable, err := r.Store.ReachableSet(roots)
	if err != nil {
		return nil, fmt.Errorf("gc: %w", err)
	}

	loose, err := r.Store.EnumerateLoose()
	if err != nil {
		return nil, fmt.Errorf("gc: %w", err)
	}

	summary := &GCSummary{Scanned: len(loose), Reachable: len(reachable)}
	for _, h := range loose {
		if _, ok := reachable[h]; ok {
			continue
		}
		if !dryRun {
			if err := r.Store.Remove(h); err != nil {
				return nil, fmt.Errorf("gc: %w", err)
			}
		}
		summary.Removed++
	}
	return summary, nil
}

// gcRoots gathers every hash the sweep must treat as live.
func (r *Repo) gcRoots() ([]object.Hash, error) {
	var roots []object.Hash

	refs, err := r.ListRefs("")
	if err != nil {
		return nil, err
	}
	for _, h := range refs {
		roots = append(roots, h)
	}

	// Detached HEAD is not under refs/.
	head, err := r.Head()
	if err != nil {
		return nil, err
	}
	if len(head) == 64 {
		roots = append(roots, object.Hash(head))
	}

	// An in-flight rebase or bisect holds objects no ref names yet.
	if r.RebaseInProgress() {
		state, err := r.readRebaseState()
		if err != nil {
			return nil, err
		}
		roots = append(roots, state.OriginalHead, state.Onto, state.MovingHead, state.PartialTree)
		roots = append(roots, state.Todo...)
	}
	if r.BisectInProgress() {
		b, err := r.LoadBisect()
		if err != nil {
			return nil, err
		}
		roots = append(roots, b.Chain...)
	}

	return roots, nil
}
