package repo

import (
	"fmt"
	"sync"

	"github.com/stratavcs/strata/pkg/object"
)

type mergeBaseCacheKey struct {
	left  object.Hash
	right object.Hash
}

type mergeBaseCacheEntry struct {
	base  object.Hash
	found bool
}

// graphTraversalState memoizes commit reads, generation numbers, and
// merge-base pair results for the lifetime of a Repo. The commit graph is
// immutable apart from ref moves, so entries never need invalidation.
type graphTraversalState struct {
	mu sync.RWMutex

	commits     map[object.Hash]*object.CommitObj
	generations map[object.Hash]uint64
	mergeBases  map[mergeBaseCacheKey]mergeBaseCacheEntry
}

func newGraphTraversalState() *graphTraversalState {
	return &graphTraversalState{
		commits:     make(map[object.Hash]*object.CommitObj),
		generations: make(map[object.Hash]uint64),
		mergeBases:  make(map[mergeBaseCacheKey]mergeBaseCacheEntry),
	}
}

func canonicalMergeBaseCacheKey(a, b object.Hash) mergeBaseCacheKey {
	if a <= b {
		return mergeBaseCacheKey{left: a, right: b}
	}
	return mergeBaseCacheKey{left: b, right: a}
}

func (s *graphTraversalState) loadMergeBase(a, b object.Hash) (mergeBaseCacheEntry, bool) {
	key := canonicalMergeBaseCacheKey(a, b)
	s.mu.RLock()
	entry, ok := s.mergeBases[key]
	s.mu.RUnlock()
	return entry, ok
}

func (s *graphTraversalState) storeMergeBase(a, b, base object.Hash, found bool) {
	key := canonicalMergeBaseCacheKey(a, b)
	s.mu.Lock()
	s.mergeBases[key] = mergeBaseCacheEntry{base: base, found: found}
	s.mu.Unlock()
}

func (s *graphTraversalState) readCommit(r *Repo, h object.Hash) (*object.CommitObj, error) {
	s.mu.RLock()
	cached, ok := s.commits[h]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	commit, err := r.Store.ReadCommit(h)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", h, err)
	}

	s.mu.Lock()
	if existing, exists := s.commits[h]; exists {
		s.mu.Unlock()
		return existing, nil
	}
	s.commits[h] = commit
	s.mu.Unlock()
	return commit, nil
}

func (s *graphTraversalState) loadGeneration(h object.Hash) (uint64, bool) {
	s.mu.RLock()
	g, ok := s.generations[h]
	s.mu.RUnlock()
	return g, ok
}

func (s *graphTraversalState) storeGeneration(h object.Hash, g uint64) {
	s.mu.Lock()
	s.generations[h] = g
	s.mu.Unlock()
}

// generation returns the generation number of a commit: 1 for roots,
// otherwise 1 + max(parent generations). Computed iteratively so deep
// linear histories cannot exhaust the stack.
func (s *graphTraversalState) generation(r *Repo, h object.Hash) (uint64, error) {
	if h == "" {
		return 0, nil
	}
	if g, ok := s.loadGeneration(h); ok {
		return g, nil
	}

	stack := []object.Hash{h}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		if _, ok := s.loadGeneration(cur); ok {
			stack = stack[:len(stack)-1]
			continue
		}

		commit, err := s.readCommit(r, cur)
		if err != nil {
			return 0, fmt.Errorf("generation: %w", err)
		}

		ready := true
		var maxParent uint64
		for _, p := range commit.Parents {
			pg, ok := s.loadGeneration(p)
			if !ok {
				stack = append(stack, p)
				ready = false
				continue
			}
			if pg > maxParent {
				maxParent = pg
			}
		}
		if !ready {
			continue
		}

		s.storeGeneration(cur, maxParent+1)
		stack = stack[:len(stack)-1]
	}

	g, _ := s.loadGeneration(h)
	return g, nil
}
