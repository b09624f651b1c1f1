package worktree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stratavcs/strata/pkg/repo"
)

func writeWorkFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("mkdir for %q: %v", rel, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatalf("write %q: %v", rel, err)
	}
}

func readWorkFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read %q: %v", rel, err)
	}
	return string(data)
}

func TestCaptureMaterializeRoundtrip(t *testing.T) {
	r, err := repo.Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	writeWorkFile(t, r.RootDir, "README.md", "hello\n")
	writeWorkFile(t, r.RootDir, "src/main.go", "package main\n")

	tree, err := Capture(r)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	// Same content captures to the same tree hash.
	again, err := Capture(r)
	if err != nil {
		t.Fatalf("second Capture: %v", err)
	}
	if again != tree {
		t.Errorf("capture is not deterministic: %s vs %s", again, tree)
	}

	// Wipe the files and materialize them back.
	os.Remove(filepath.Join(r.RootDir, "README.md"))
	os.RemoveAll(filepath.Join(r.RootDir, "src"))

	if err := Materialize(r, tree, ""); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if got := readWorkFile(t, r.RootDir, "README.md"); got != "hello\n" {
		t.Errorf("README.md = %q", got)
	}
	if got := readWorkFile(t, r.RootDir, "src/main.go"); got != "package main\n" {
		t.Errorf("src/main.go = %q", got)
	}
}

func TestCaptureSkipsRepositoryInternals(t *testing.T) {
	r, err := repo.Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	writeWorkFile(t, r.RootDir, "tracked.txt", "yes\n")

	tree, err := Capture(r)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	files, err := r.FlattenTree(tree)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	if len(files) != 1 || files[0].Path != "tracked.txt" {
		t.Errorf("captured files = %v, want only tracked.txt", files)
	}
}

func TestMaterializeRemovesDroppedFiles(t *testing.T) {
	r, err := repo.Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	writeWorkFile(t, r.RootDir, "stay.txt", "stay\n")
	writeWorkFile(t, r.RootDir, "sub/go-away.txt", "bye\n")
	before, err := Capture(r)
	if err != nil {
		t.Fatalf("Capture before: %v", err)
	}

	os.Remove(filepath.Join(r.RootDir, "sub", "go-away.txt"))
	os.Remove(filepath.Join(r.RootDir, "sub"))
	after, err := Capture(r)
	if err != nil {
		t.Fatalf("Capture after: %v", err)
	}

	// Re-create the dropped file, then materialize the after-tree using
	// the before-tree as the previous state; the file must be removed,
	// along with its now-empty directory.
	writeWorkFile(t, r.RootDir, "sub/go-away.txt", "bye\n")
	if err := Materialize(r, after, before); err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	if _, err := os.Stat(filepath.Join(r.RootDir, "sub", "go-away.txt")); !os.IsNotExist(err) {
		t.Error("dropped file still present after materialize")
	}
	if _, err := os.Stat(filepath.Join(r.RootDir, "sub")); !os.IsNotExist(err) {
		t.Error("empty directory left behind")
	}
	if got := readWorkFile(t, r.RootDir, "stay.txt"); got != "stay\n" {
		t.Errorf("stay.txt = %q", got)
	}
}

func TestCheckoutSwitchesBranches(t *testing.T) {
	r, err := repo.Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	writeWorkFile(t, r.RootDir, "f.txt", "on main\n")
	mainTree, err := Capture(r)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	mainCommit, err := r.CommitToHead(mainTree, "author", "main commit", nil)
	if err != nil {
		t.Fatalf("CommitToHead: %v", err)
	}

	if err := r.CreateBranch("feature", mainCommit); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := Checkout(r, "feature"); err != nil {
		t.Fatalf("Checkout feature: %v", err)
	}

	writeWorkFile(t, r.RootDir, "f.txt", "on feature\n")
	featTree, err := Capture(r)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if _, err := r.CommitToHead(featTree, "author", "feature commit", nil); err != nil {
		t.Fatalf("CommitToHead: %v", err)
	}

	if err := Checkout(r, "main"); err != nil {
		t.Fatalf("Checkout main: %v", err)
	}
	if got := readWorkFile(t, r.RootDir, "f.txt"); got != "on main\n" {
		t.Errorf("f.txt = %q, want main's content", got)
	}
	if branch, err := r.CurrentBranch(); err != nil || branch != "main" {
		t.Errorf("current branch = %q (%v), want main", branch, err)
	}

	// Checking out a raw hash detaches HEAD.
	if err := Checkout(r, string(mainCommit)); err != nil {
		t.Fatalf("Checkout hash: %v", err)
	}
	if _, err := r.CurrentBranch(); err == nil {
		t.Error("HEAD should be detached after hash checkout")
	}
}
