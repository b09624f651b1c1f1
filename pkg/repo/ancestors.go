package repo

import (
	"container/heap"
	"fmt"

	"github.com/stratavcs/strata/pkg/object"
)

type ancestorQueueItem struct {
	hash       object.Hash
	generation uint64
}

// ancestorMaxHeap orders commits by decreasing generation number, ties by
// hash, so popping always yields a commit before any of its ancestors.
type ancestorMaxHeap []ancestorQueueItem

func (h ancestorMaxHeap) Len() int { return len(h) }

func (h ancestorMaxHeap) Less(i, j int) bool {
	if h[i].generation == h[j].generation {
		return h[i].hash < h[j].hash
	}
	return h[i].generation > h[j].generation
}

func (h ancestorMaxHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *ancestorMaxHeap) Push(x any) {
	*h = append(*h, x.(ancestorQueueItem))
}

func (h *ancestorMaxHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// AncestorWalker lazily yields the ancestors of a commit (the commit
// itself first) in reverse-topological order: every commit is yielded
// before any of its own ancestors, each exactly once. The underlying
// graph is immutable, so a fresh walker over the same root always yields
// the same finite sequence. Dropping the walker mid-traversal has no side
// effects.
type AncestorWalker struct {
	repo  *Repo
	queue ancestorMaxHeap
	seen  map[object.Hash]struct{}
}

// Ancestors returns a new walker rooted at start.
func (r *Repo) Ancestors(start object.Hash) (*AncestorWalker, error) {
	state := r.getGraphState()
	gen, err := state.generation(r, start)
	if err != nil {
		return nil, fmt.Errorf("ancestors: %w", err)
	}

	w := &AncestorWalker{
		repo: r,
		seen: map[object.Hash]struct{}{start: {}},
	}
	heap.Push(&w.queue, ancestorQueueItem{hash: start, generation: gen})
	return w, nil
}

// Next returns the next commit in the traversal. After the last ancestor
// it returns ("", nil, nil).
func (w *AncestorWalker) Next() (object.Hash, *object.CommitObj, error) {
	if w.queue.Len() == 0 {
		return "", nil, nil
	}

	state := w.repo.getGraphState()
	item := heap.Pop(&w.queue).(ancestorQueueItem)

	commit, err := state.readCommit(w.repo, item.hash)
	if err != nil {
		return "", nil, fmt.Errorf("ancestors: %w", err)
	}

	for _, p := range commit.Parents {
		if _, ok := w.seen[p]; ok {
			continue
		}
		w.seen[p] = struct{}{}
		gen, err := state.generation(w.repo, p)
		if err != nil {
			return "", nil, fmt.Errorf("ancestors: %w", err)
		}
		heap.Push(&w.queue, ancestorQueueItem{hash: p, generation: gen})
	}

	return item.hash, commit, nil
}
