package repo

import (
	"errors"
	"testing"

	"github.com/stratavcs/strata/pkg/object"
)

func TestBranchLifecycle(t *testing.T) {
	r := newTestRepo(t)
	c := makeCommit(t, r, map[string]string{"f": "x\n"}, "c")
	if err := r.UpdateRef("refs/heads/main", c); err != nil {
		t.Fatalf("seed main: %v", err)
	}

	if err := r.CreateBranch("feature", c); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := r.CreateBranch("feature", c); err == nil {
		t.Error("duplicate branch creation must fail")
	}

	branches, err := r.ListBranches()
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	if len(branches) != 2 || branches[0] != "feature" || branches[1] != "main" {
		t.Errorf("branches = %v, want [feature main]", branches)
	}

	current, err := r.CurrentBranch()
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if current != "main" {
		t.Errorf("current = %q, want main", current)
	}
	if err := r.DeleteBranch("main"); err == nil {
		t.Error("deleting the current branch must fail")
	}

	if err := r.DeleteBranch("feature"); err != nil {
		t.Fatalf("DeleteBranch: %v", err)
	}
	if err := r.DeleteBranch("feature"); !errors.Is(err, ErrUnknownRef) {
		t.Errorf("double delete = %v, want ErrUnknownRef", err)
	}
}

func TestCreateBranchRejectsDanglingTarget(t *testing.T) {
	r := newTestRepo(t)
	ghost := object.HashBytes([]byte("not stored"))
	if err := r.CreateBranch("x", ghost); !errors.Is(err, ErrDanglingReference) {
		t.Errorf("CreateBranch = %v, want ErrDanglingReference", err)
	}
}

func TestCurrentBranchDetached(t *testing.T) {
	r := newTestRepo(t)
	c := makeCommit(t, r, map[string]string{"f": "x\n"}, "c")
	if err := r.SetHead(string(c), true); err != nil {
		t.Fatalf("SetHead: %v", err)
	}
	if _, err := r.CurrentBranch(); err == nil {
		t.Error("CurrentBranch on detached HEAD must fail")
	}
}
