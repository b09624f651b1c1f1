package repo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stratavcs/strata/pkg/diff3"
	"github.com/stratavcs/strata/pkg/object"
)

const rebaseStateFile = "rebase_state.json"

// rebaseState is the persisted form of an in-flight rebase. It lives at
// .strata/rebase_state.json for the duration of the operation; branch
// refs are only moved when the rebase completes, so crashing mid-rebase
// (or aborting) leaves every ref untouched.
type rebaseState struct {
	OriginalRef  string        `json:"original_ref"` // empty when HEAD was detached
	OriginalHead object.Hash   `json:"original_head"`
	Onto         object.Hash   `json:"onto"`
	Todo         []object.Hash `json:"todo"` // oldest first
	Index        int           `json:"index"`
	MovingHead   object.Hash   `json:"moving_head"`

	// Set while stopped on a conflicted step.
	ConflictCommit object.Hash      `json:"conflict_commit,omitempty"`
	PartialTree    object.Hash      `json:"partial_tree,omitempty"`
	Conflicts      []ConflictRecord `json:"conflicts,omitempty"`
}

// RebaseResult reports the outcome of a rebase (or a continued one).
type RebaseResult struct {
	Completed bool
	NewHead   object.Hash
	// When Completed is false the rebase is stopped on a conflicted
	// commit; resolve the listed paths and call ContinueRebase.
	ConflictCommit object.Hash
	Conflicts      []ConflictRecord
}

func (r *Repo) rebaseStatePath() string {
	return filepath.Join(r.StrataDir, rebaseStateFile)
}

func (r *Repo) readRebaseState() (*rebaseState, error) {
	data, err := os.ReadFile(r.rebaseStatePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoRebase
		}
		return nil, fmt.Errorf("read rebase state: %w", err)
	}
	var state rebaseState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse rebase state: %w", err)
	}
	return &state, nil
}

func (r *Repo) writeRebaseState(state *rebaseState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode rebase state: %w", err)
	}
	tmp := r.rebaseStatePath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write rebase state: %w", err)
	}
	if err := os.Rename(tmp, r.rebaseStatePath()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write rebase state: %w", err)
	}
	return nil
}

func (r *Repo) removeRebaseState() error {
	if err := os.Remove(r.rebaseStatePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove rebase state: %w", err)
	}
	return nil
}

// RebaseInProgress reports whether a stopped rebase exists.
func (r *Repo) RebaseInProgress() bool {
	_, err := os.Stat(r.rebaseStatePath())
	return err == nil
}

// Rebase replays the commits exclusive to the current HEAD on top of
// onto, one at a time, synthesizing a new commit per replayed commit
// (new parent chain, original author and message). Merge commits are
// flattened out: the replay set follows first-parent links from HEAD
// back to the merge base with onto.
//
// If HEAD is already an ancestor of onto the branch fast-forwards. If
// onto is an ancestor of HEAD there is nothing to replay. A conflicted
// step stops the rebase with its state persisted; resolve and call
// ContinueRebase, or AbortRebase to restore the starting point.
func (r *Repo) Rebase(onto object.Hash) (*RebaseResult, error) {
	if r.RebaseInProgress() {
		return nil, fmt.Errorf("rebase: another rebase is in progress (continue or abort it first)")
	}

	head, err := r.ResolveRef("HEAD")
	if err != nil {
		return nil, fmt.Errorf("rebase: resolve HEAD: %w", err)
	}
	if !r.Store.Has(onto) {
		return nil, fmt.Errorf("rebase: onto %s: %w", onto, ErrDanglingReference)
	}

	if ok, err := r.IsAncestor(head, onto); err != nil {
		return nil, fmt.Errorf("rebase: %w", err)
	} else if ok {
		// Fast-forward: onto already contains everything on HEAD.
		if err := r.moveRebaseHead(onto, head); err != nil {
			return nil, err
		}
		return &RebaseResult{Completed: true, NewHead: onto}, nil
	}
	if ok, err := r.IsAncestor(onto, head); err != nil {
		return nil, fmt.Errorf("rebase: %w", err)
	} else if ok {
		return &RebaseResult{Completed: true, NewHead: head}, nil
	}

	base, err := r.MergeBase(head, onto)
	if err != nil {
		return nil, fmt.Errorf("rebase: %w", err)
	}
	todo, err := r.firstParentChainTo(head, base)
	if err != nil {
		return nil, fmt.Errorf("rebase: %w", err)
	}

	headRef, err := r.Head()
	if err != nil {
		return nil, fmt.Errorf("rebase: read HEAD: %w", err)
	}
	state := &rebaseState{
		OriginalHead: head,
		Onto:         onto,
		Todo:         todo,
		MovingHead:   onto,
	}
	if strings.HasPrefix(headRef, "refs/") {
		state.OriginalRef = headRef
	}

	return r.runRebase(state)
}

// runRebase drives the replay loop from the state's current index until
// completion or the first conflicted step.
func (r *Repo) runRebase(state *rebaseState) (*RebaseResult, error) {
	graphState := r.getGraphState()

	for state.Index < len(state.Todo) {
		stepHash := state.Todo[state.Index]
		stepCommit, err := graphState.readCommit(r, stepHash)
		if err != nil {
			return nil, fmt.Errorf("rebase: %w", err)
		}

		baseTree, err := r.firstParentTree(stepCommit)
		if err != nil {
			return nil, fmt.Errorf("rebase: %w", err)
		}
		movingCommit, err := graphState.readCommit(r, state.MovingHead)
		if err != nil {
			return nil, fmt.Errorf("rebase: %w", err)
		}

		tree, conflicts, err := r.MergeTrees(baseTree, movingCommit.TreeHash, stepCommit.TreeHash)
		if err != nil {
			return nil, fmt.Errorf("rebase: replay %s: %w", stepHash, err)
		}

		if len(conflicts) > 0 {
			state.ConflictCommit = stepHash
			state.PartialTree = tree
			state.Conflicts = conflicts
			if err := r.writeRebaseState(state); err != nil {
				return nil, err
			}
			return &RebaseResult{
				Completed:      false,
				ConflictCommit: stepHash,
				Conflicts:      conflicts,
			}, nil
		}

		newHash, err := r.synthesizeRebaseCommit(state, stepCommit, tree)
		if err != nil {
			return nil, err
		}
		state.MovingHead = newHash
		state.Index++
	}

	if err := r.moveRebaseHead(state.MovingHead, state.OriginalHead); err != nil {
		return nil, err
	}
	if err := r.removeRebaseState(); err != nil {
		return nil, err
	}
	return &RebaseResult{Completed: true, NewHead: state.MovingHead}, nil
}

// synthesizeRebaseCommit records one replayed commit: the merged tree,
// the moving head as sole parent, the original author and message.
func (r *Repo) synthesizeRebaseCommit(state *rebaseState, original *object.CommitObj, tree object.Hash) (object.Hash, error) {
	newHash, err := r.CreateCommit(tree, []object.Hash{state.MovingHead}, original.Author, original.Message)
	if err != nil {
		return "", fmt.Errorf("rebase: synthesize commit: %w", err)
	}
	return newHash, nil
}

// ContinueRebase resumes a stopped rebase. resolutions maps conflicted
// paths to their resolved file content; a nil value accepts a deletion
// and removes the path. Every conflicted path must have a resolution
// free of conflict markers; otherwise the rebase stays stopped and the
// same conflict set is returned wrapping ErrRebaseConflicts. Paths
// outside the conflict set are rejected.
func (r *Repo) ContinueRebase(resolutions map[string][]byte) (*RebaseResult, error) {
	state, err := r.readRebaseState()
	if err != nil {
		return nil, err
	}
	if state.ConflictCommit == "" {
		return nil, fmt.Errorf("continue rebase: no conflicted step recorded")
	}

	conflictPaths := make(map[string]struct{}, len(state.Conflicts))
	for _, c := range state.Conflicts {
		conflictPaths[c.Path] = struct{}{}
	}
	for path := range resolutions {
		if _, ok := conflictPaths[path]; !ok {
			return nil, fmt.Errorf("continue rebase: path %q is not in conflict", path)
		}
	}

	var unresolved []string
	for path := range conflictPaths {
		data, ok := resolutions[path]
		if !ok || diff3.ContainsConflictMarkers(data) {
			unresolved = append(unresolved, path)
		}
	}
	if len(unresolved) > 0 {
		result := &RebaseResult{
			Completed:      false,
			ConflictCommit: state.ConflictCommit,
			Conflicts:      state.Conflicts,
		}
		return result, fmt.Errorf(
			"continue rebase: %d path(s) still unresolved: %w",
			len(unresolved), ErrRebaseConflicts,
		)
	}

	files, err := r.FlattenTree(state.PartialTree)
	if err != nil {
		return nil, fmt.Errorf("continue rebase: %w", err)
	}
	fileMap := indexByPath(files)
	for path, data := range resolutions {
		if data == nil {
			delete(fileMap, path)
			continue
		}
		blobHash, err := r.Store.WriteBlob(&object.Blob{Data: data})
		if err != nil {
			return nil, fmt.Errorf("continue rebase: write resolution %q: %w", path, err)
		}
		entry, ok := fileMap[path]
		if !ok {
			entry = TreeFileEntry{Path: path, Mode: object.TreeModeFile}
		}
		entry.BlobHash = blobHash
		fileMap[path] = entry
	}
	tree, err := r.BuildTree(fileMap)
	if err != nil {
		return nil, fmt.Errorf("continue rebase: %w", err)
	}

	graphState := r.getGraphState()
	stepCommit, err := graphState.readCommit(r, state.ConflictCommit)
	if err != nil {
		return nil, fmt.Errorf("continue rebase: %w", err)
	}
	newHash, err := r.synthesizeRebaseCommit(state, stepCommit, tree)
	if err != nil {
		return nil, err
	}

	state.MovingHead = newHash
	state.Index++
	state.ConflictCommit = ""
	state.PartialTree = ""
	state.Conflicts = nil

	return r.runRebase(state)
}

// RebaseConflictPaths returns the conflicted paths of the suspended
// rebase, sorted.
func (r *Repo) RebaseConflictPaths() ([]string, error) {
	state, err := r.readRebaseState()
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(state.Conflicts))
	for _, c := range state.Conflicts {
		paths = append(paths, c.Path)
	}
	return paths, nil
}

// AbortRebase discards a stopped rebase and restores the starting point.
// Refs are only moved at rebase completion, so the restore is a force
// write of the original values; synthesized commits become unreachable
// and are left for GC.
func (r *Repo) AbortRebase() error {
	state, err := r.readRebaseState()
	if err != nil {
		return err
	}

	if state.OriginalRef != "" {
		if err := r.UpdateRef(state.OriginalRef, state.OriginalHead); err != nil {
			return fmt.Errorf("abort rebase: restore %q: %w", state.OriginalRef, err)
		}
	} else {
		if err := r.SetHead(string(state.OriginalHead), true); err != nil {
			return fmt.Errorf("abort rebase: restore detached HEAD: %w", err)
		}
	}
	return r.removeRebaseState()
}

// CherryPickResult reports the outcome of a cherry-pick.
type CherryPickResult struct {
	Commit    object.Hash      // the synthesized commit (clean pick)
	Tree      object.Hash      // merged or partial tree
	Conflicts []ConflictRecord // non-empty when the pick conflicted
}

// CherryPick replays a single commit onto the current HEAD: a three-way
// merge of the commit's change (against its first parent, or the empty
// tree for a root commit) into HEAD's tree. A clean pick synthesizes a
// commit with HEAD as sole parent, keeping the original author and
// message, and advances HEAD. A conflicted pick writes nothing to refs
// and returns the conflict set.
func (r *Repo) CherryPick(pick object.Hash) (*CherryPickResult, error) {
	head, err := r.ResolveRef("HEAD")
	if err != nil {
		return nil, fmt.Errorf("cherry-pick: resolve HEAD: %w", err)
	}

	graphState := r.getGraphState()
	pickCommit, err := graphState.readCommit(r, pick)
	if err != nil {
		return nil, fmt.Errorf("cherry-pick: %w", err)
	}
	headCommit, err := graphState.readCommit(r, head)
	if err != nil {
		return nil, fmt.Errorf("cherry-pick: %w", err)
	}

	baseTree, err := r.firstParentTree(pickCommit)
	if err != nil {
		return nil, fmt.Errorf("cherry-pick: %w", err)
	}

	tree, conflicts, err := r.MergeTrees(baseTree, headCommit.TreeHash, pickCommit.TreeHash)
	if err != nil {
		return nil, fmt.Errorf("cherry-pick %s: %w", pick, err)
	}
	if len(conflicts) > 0 {
		return &CherryPickResult{Tree: tree, Conflicts: conflicts}, nil
	}

	newHash, err := r.CreateCommit(tree, []object.Hash{head}, pickCommit.Author, pickCommit.Message)
	if err != nil {
		return nil, fmt.Errorf("cherry-pick: %w", err)
	}
	if err := r.moveRebaseHead(newHash, head); err != nil {
		return nil, err
	}
	return &CherryPickResult{Commit: newHash, Tree: tree}, nil
}

// firstParentTree returns the tree of a commit's first parent, or the
// empty tree for a root commit.
func (r *Repo) firstParentTree(c *object.CommitObj) (object.Hash, error) {
	if len(c.Parents) == 0 {
		return r.EmptyTree()
	}
	parent, err := r.getGraphState().readCommit(r, c.Parents[0])
	if err != nil {
		return "", err
	}
	return parent.TreeHash, nil
}

// firstParentChainTo walks first-parent links from head down to stop
// (exclusive) and returns the chain oldest first. It errors if stop is
// never reached.
func (r *Repo) firstParentChainTo(head, stop object.Hash) ([]object.Hash, error) {
	graphState := r.getGraphState()

	var chain []object.Hash
	cur := head
	for cur != stop {
		chain = append(chain, cur)
		c, err := graphState.readCommit(r, cur)
		if err != nil {
			return nil, err
		}
		if len(c.Parents) == 0 {
			return nil, fmt.Errorf("commit %s not reachable from %s via first-parent links", stop, head)
		}
		cur = c.Parents[0]
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// moveRebaseHead advances the current branch (or detached HEAD) to hash
// with a compare-and-swap against expected.
func (r *Repo) moveRebaseHead(hash, expected object.Hash) error {
	head, err := r.Head()
	if err != nil {
		return fmt.Errorf("move head: %w", err)
	}
	if strings.HasPrefix(head, "refs/") {
		if err := r.UpdateRefCAS(head, hash, expected); err != nil {
			return fmt.Errorf("move head: update ref %q: %w", head, err)
		}
		return nil
	}
	if err := r.SetHead(string(hash), true); err != nil {
		return fmt.Errorf("move head: %w", err)
	}
	return nil
}
