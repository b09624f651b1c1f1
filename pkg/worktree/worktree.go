// Package worktree moves file content between a working directory and
// the object store: Capture snapshots a directory into a tree object,
// Materialize writes a tree's files back out. The engine itself never
// touches the working directory; this package is the only bridge.
package worktree

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/stratavcs/strata/pkg/object"
	"github.com/stratavcs/strata/pkg/repo"
)

// Capture walks the repository working directory, writes every file as a
// blob, and returns the root tree hash. The .strata directory is always
// skipped, as are other dotfiles at any level.
func Capture(r *repo.Repo) (object.Hash, error) {
	files := make(map[string]repo.TreeFileEntry)

	err := filepath.WalkDir(r.RootDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		name := d.Name()
		if d.IsDir() {
			if path == r.RootDir {
				return nil
			}
			if strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(r.RootDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %q: %w", rel, err)
		}
		blobHash, err := r.Store.WriteBlob(&object.Blob{Data: data})
		if err != nil {
			return fmt.Errorf("store %q: %w", rel, err)
		}

		mode := object.TreeModeFile
		if info, err := d.Info(); err == nil && info.Mode()&0o111 != 0 {
			mode = object.TreeModeExecutable
		}
		files[rel] = repo.TreeFileEntry{Path: rel, BlobHash: blobHash, Mode: mode}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("capture worktree: %w", err)
	}

	treeHash, err := r.BuildTree(files)
	if err != nil {
		return "", fmt.Errorf("capture worktree: %w", err)
	}
	return treeHash, nil
}

// Materialize writes the contents of a tree into the working directory.
// Files tracked by the previous tree but absent from the new one are
// removed, along with directories they leave empty; untracked files are
// never touched. prevTree may be empty (nothing to remove).
func Materialize(r *repo.Repo, tree, prevTree object.Hash) error {
	targetFiles, err := r.FlattenTree(tree)
	if err != nil {
		return fmt.Errorf("materialize: flatten target tree: %w", err)
	}
	targetMap := make(map[string]repo.TreeFileEntry, len(targetFiles))
	for _, f := range targetFiles {
		targetMap[f.Path] = f
	}

	if prevTree != "" {
		prevFiles, err := r.FlattenTree(prevTree)
		if err != nil {
			return fmt.Errorf("materialize: flatten previous tree: %w", err)
		}
		for _, f := range prevFiles {
			if _, stays := targetMap[f.Path]; stays {
				continue
			}
			absPath := filepath.Join(r.RootDir, filepath.FromSlash(f.Path))
			if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("materialize: remove %q: %w", f.Path, err)
			}
			removeEmptyParents(r, filepath.Dir(absPath))
		}
	}

	for _, f := range targetFiles {
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return fmt.Errorf("materialize: mkdir for %q: %w", f.Path, err)
		}

		blob, err := r.Store.ReadBlob(f.BlobHash)
		if err != nil {
			return fmt.Errorf("materialize: read blob for %q: %w", f.Path, err)
		}

		perm := os.FileMode(0o644)
		if f.Mode == object.TreeModeExecutable {
			perm = 0o755
		}
		if err := os.WriteFile(absPath, blob.Data, perm); err != nil {
			return fmt.Errorf("materialize: write %q: %w", f.Path, err)
		}
		// WriteFile does not chmod an existing file.
		if err := os.Chmod(absPath, perm); err != nil {
			return fmt.Errorf("materialize: chmod %q: %w", f.Path, err)
		}
	}
	return nil
}

// Checkout switches the working directory and HEAD to target, which may
// be a branch name, tag, or commit hash.
func Checkout(r *repo.Repo, target string) error {
	targetHash, err := r.ResolveCommit(target)
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	commit, err := r.Store.ReadCommit(targetHash)
	if err != nil {
		return fmt.Errorf("checkout: read commit %s: %w", targetHash, err)
	}

	var prevTree object.Hash
	if headHash, err := r.ResolveRef("HEAD"); err == nil && headHash != "" {
		if headCommit, err := r.Store.ReadCommit(headHash); err == nil {
			prevTree = headCommit.TreeHash
		}
	}

	if err := Materialize(r, commit.TreeHash, prevTree); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	// Branch names keep HEAD symbolic; anything else detaches.
	if _, err := r.ResolveRef("refs/heads/" + target); err == nil {
		return r.SetHead(target, false)
	}
	return r.SetHead(string(targetHash), true)
}

// removeEmptyParents removes now-empty directories up to the repo root.
func removeEmptyParents(r *repo.Repo, dir string) {
	root := filepath.Clean(r.RootDir)
	for {
		dir = filepath.Clean(dir)
		if dir == root || !strings.HasPrefix(dir, root) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
