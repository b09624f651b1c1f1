package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stratavcs/strata/pkg/object"
)

// CreateBranch creates a new branch ref pointing at target. The target
// must exist in the object store.
func (r *Repo) CreateBranch(name string, target object.Hash) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("create branch: name is required")
	}
	if _, err := r.ResolveRef("refs/heads/" + name); err == nil {
		return fmt.Errorf("create branch: branch %q already exists", name)
	}
	if !r.Store.Has(target) {
		return fmt.Errorf("create branch %q: target %s: %w", name, target, ErrDanglingReference)
	}
	if err := r.UpdateRef("refs/heads/"+name, target); err != nil {
		return fmt.Errorf("create branch: %w", err)
	}
	return nil
}

// DeleteBranch removes a branch ref. The current branch cannot be deleted.
func (r *Repo) DeleteBranch(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("delete branch: name is required")
	}

	current, err := r.CurrentBranch()
	if err == nil && current == name {
		return fmt.Errorf("delete branch: cannot delete current branch %q", name)
	}

	refPath := filepath.Join(r.StrataDir, "refs", "heads", filepath.FromSlash(name))
	if err := os.Remove(refPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("delete branch: branch %q: %w", name, ErrUnknownRef)
		}
		return fmt.Errorf("delete branch: %w", err)
	}
	return nil
}

// ListBranches lists branch names sorted alphabetically.
func (r *Repo) ListBranches() ([]string, error) {
	refs, err := r.ListRefs("heads")
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}

	names := make([]string, 0, len(refs))
	for full := range refs {
		names = append(names, strings.TrimPrefix(full, "heads/"))
	}
	sort.Strings(names)
	return names, nil
}

// CurrentBranch returns the branch HEAD points at, or an error when HEAD
// is detached.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.Head()
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(head, "refs/heads/") {
		return "", fmt.Errorf("current branch: HEAD is detached")
	}
	return strings.TrimPrefix(head, "refs/heads/"), nil
}
