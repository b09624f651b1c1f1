package repo

import (
	"fmt"
	"sort"

	"github.com/stratavcs/strata/pkg/object"
)

// TreeChangeKind classifies a per-path difference between two trees.
type TreeChangeKind string

const (
	ChangeAdded    TreeChangeKind = "added"
	ChangeDeleted  TreeChangeKind = "deleted"
	ChangeModified TreeChangeKind = "modified"
)

// TreeChange is one changed path between two trees.
type TreeChange struct {
	Path    string
	Kind    TreeChangeKind
	OldBlob object.Hash // empty for added
	NewBlob object.Hash // empty for deleted
}

// DiffTrees compares two trees and returns the changed paths in sorted
// order. Subtrees with equal hashes are skipped wholesale; content
// addressing makes that comparison exact.
func (r *Repo) DiffTrees(oldTree, newTree object.Hash) ([]TreeChange, error) {
	if oldTree == newTree {
		return nil, nil
	}

	oldFiles, err := r.FlattenTree(oldTree)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}
	newFiles, err := r.FlattenTree(newTree)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	oldMap := indexByPath(oldFiles)
	newMap := indexByPath(newFiles)

	var changes []TreeChange
	for path, oldEntry := range oldMap {
		newEntry, ok := newMap[path]
		if !ok {
			changes = append(changes, TreeChange{
				Path: path, Kind: ChangeDeleted, OldBlob: oldEntry.BlobHash,
			})
			continue
		}
		if oldEntry.BlobHash != newEntry.BlobHash || oldEntry.Mode != newEntry.Mode {
			changes = append(changes, TreeChange{
				Path: path, Kind: ChangeModified,
				OldBlob: oldEntry.BlobHash, NewBlob: newEntry.BlobHash,
			})
		}
	}
	for path, newEntry := range newMap {
		if _, ok := oldMap[path]; !ok {
			changes = append(changes, TreeChange{
				Path: path, Kind: ChangeAdded, NewBlob: newEntry.BlobHash,
			})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes, nil
}
