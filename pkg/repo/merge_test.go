package repo

import (
	"strings"
	"testing"

	"github.com/stratavcs/strata/pkg/diff3"
)

func TestMergeFastForward(t *testing.T) {
	r := newTestRepo(t)
	c1 := makeCommit(t, r, map[string]string{"f": "1\n"}, "one")
	c2 := makeCommit(t, r, map[string]string{"f": "2\n"}, "two", c1)

	result, err := r.Merge(c1, c2)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Kind != MergeFastForward {
		t.Fatalf("kind = %v, want MergeFastForward", result.Kind)
	}
	if result.Commit != c2 {
		t.Errorf("fast-forward target = %s, want %s", result.Commit, c2)
	}

	// Symmetric direction also fast-forwards, to the same descendant.
	reverse, err := r.Merge(c2, c1)
	if err != nil {
		t.Fatalf("Merge reverse: %v", err)
	}
	if reverse.Kind != MergeFastForward || reverse.Commit != c2 {
		t.Errorf("reverse = %v/%s, want fast-forward to %s", reverse.Kind, reverse.Commit, c2)
	}
}

func TestMergeOneSidedChanges(t *testing.T) {
	r := newTestRepo(t)
	base := makeCommit(t, r, map[string]string{"a.txt": "a\n", "b.txt": "b\n"}, "base")
	ours := makeCommit(t, r, map[string]string{"a.txt": "a-changed\n", "b.txt": "b\n"}, "ours", base)
	theirs := makeCommit(t, r, map[string]string{"a.txt": "a\n", "b.txt": "b-changed\n"}, "theirs", base)

	result, err := r.Merge(ours, theirs)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Kind != MergeClean {
		t.Fatalf("kind = %v, want MergeClean (conflicts: %v)", result.Kind, result.Conflicts)
	}
	if got := readFileFromTree(t, r, result.Tree, "a.txt"); got != "a-changed\n" {
		t.Errorf("a.txt = %q, want ours' change", got)
	}
	if got := readFileFromTree(t, r, result.Tree, "b.txt"); got != "b-changed\n" {
		t.Errorf("b.txt = %q, want theirs' change", got)
	}
}

// Both branches appending different lines at the end of the same file
// merge cleanly, ours' addition first.
func TestMergeBothAppendClean(t *testing.T) {
	r := newTestRepo(t)
	base := makeCommit(t, r, map[string]string{"file1": "line1\n"}, "base")
	ours := makeCommit(t, r, map[string]string{"file1": "line1\nours\n"}, "ours", base)
	theirs := makeCommit(t, r, map[string]string{"file1": "line1\ntheirs\n"}, "theirs", base)

	result, err := r.Merge(ours, theirs)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Kind != MergeClean {
		t.Fatalf("kind = %v, want MergeClean (conflicts: %v)", result.Kind, result.Conflicts)
	}
	if got := readFileFromTree(t, r, result.Tree, "file1"); got != "line1\nours\ntheirs\n" {
		t.Errorf("file1 = %q, want both appends, ours first", got)
	}
}

func TestMergeIdenticalChangeClean(t *testing.T) {
	r := newTestRepo(t)
	base := makeCommit(t, r, map[string]string{"f": "old\n"}, "base")
	ours := makeCommit(t, r, map[string]string{"f": "new\n"}, "ours", base)
	theirs := makeCommit(t, r, map[string]string{"f": "new\n"}, "theirs", base)

	result, err := r.Merge(ours, theirs)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Kind != MergeClean {
		t.Fatalf("kind = %v, want MergeClean", result.Kind)
	}
	if got := readFileFromTree(t, r, result.Tree, "f"); got != "new\n" {
		t.Errorf("f = %q, want %q", got, "new\n")
	}
}

func TestMergeModifyModifyConflict(t *testing.T) {
	r := newTestRepo(t)
	base := makeCommit(t, r, map[string]string{"f": "value = 1\n"}, "base")
	ours := makeCommit(t, r, map[string]string{"f": "value = 2\n"}, "ours", base)
	theirs := makeCommit(t, r, map[string]string{"f": "value = 3\n"}, "theirs", base)

	result, err := r.Merge(ours, theirs)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Kind != MergeConflicted {
		t.Fatalf("kind = %v, want MergeConflicted", result.Kind)
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("conflicts = %v, want exactly one", result.Conflicts)
	}
	c := result.Conflicts[0]
	if c.Path != "f" || c.Type != ConflictModifyModify {
		t.Errorf("conflict = %+v, want modify/modify on f", c)
	}
	if len(c.Hunks) == 0 {
		t.Error("conflict carries no hunk detail")
	}

	// The partial tree carries the marker-annotated rendition.
	content := readFileFromTree(t, r, result.Tree, "f")
	for _, marker := range []string{diff3.MarkerOurs, diff3.MarkerSep, diff3.MarkerTheirs} {
		if !strings.Contains(content, marker) {
			t.Errorf("partial tree content missing %q:\n%s", marker, content)
		}
	}
}

func TestMergeModifyDeleteConflict(t *testing.T) {
	r := newTestRepo(t)
	base := makeCommit(t, r, map[string]string{"f": "original\n", "keep": "k\n"}, "base")
	ours := makeCommit(t, r, map[string]string{"f": "edited\n", "keep": "k\n"}, "ours", base)
	theirs := makeCommit(t, r, map[string]string{"keep": "k\n"}, "theirs deletes f", base)

	result, err := r.Merge(ours, theirs)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Kind != MergeConflicted {
		t.Fatalf("kind = %v, want MergeConflicted", result.Kind)
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].Type != ConflictModifyDelete {
		t.Fatalf("conflicts = %+v, want one modify/delete", result.Conflicts)
	}

	// The surviving side's content stays in the partial tree, bracketed.
	content := readFileFromTree(t, r, result.Tree, "f")
	if !strings.Contains(content, "edited") || !strings.Contains(content, diff3.MarkerOurs) {
		t.Errorf("partial content = %q, want bracketed survivor", content)
	}
}

func TestMergeCleanDeleteIsSilent(t *testing.T) {
	r := newTestRepo(t)
	base := makeCommit(t, r, map[string]string{"f": "x\n", "keep": "k\n"}, "base")
	ours := makeCommit(t, r, map[string]string{"f": "x\n", "keep": "k2\n"}, "ours", base)
	theirs := makeCommit(t, r, map[string]string{"keep": "k\n"}, "theirs deletes untouched f", base)

	result, err := r.Merge(ours, theirs)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Kind != MergeClean {
		t.Fatalf("kind = %v, want MergeClean (conflicts: %v)", result.Kind, result.Conflicts)
	}
	if treeHasPath(t, r, result.Tree, "f") {
		t.Error("f deleted against an unchanged side must stay deleted")
	}
}

func TestMergeAddAdd(t *testing.T) {
	r := newTestRepo(t)
	base := makeCommit(t, r, map[string]string{"keep": "k\n"}, "base")

	// Identical adds are clean.
	ours := makeCommit(t, r, map[string]string{"keep": "k\n", "new": "same\n"}, "ours", base)
	theirs := makeCommit(t, r, map[string]string{"keep": "k\n", "new": "same\n"}, "theirs", base)
	result, err := r.Merge(ours, theirs)
	if err != nil {
		t.Fatalf("Merge identical add: %v", err)
	}
	if result.Kind != MergeClean {
		t.Errorf("identical add/add = %v, want MergeClean", result.Kind)
	}

	// Differing adds at the same lines conflict.
	ours2 := makeCommit(t, r, map[string]string{"keep": "k\n", "new2": "mine\n"}, "ours2", base)
	theirs2 := makeCommit(t, r, map[string]string{"keep": "k\n", "new2": "yours\n"}, "theirs2", base)
	result, err = r.Merge(ours2, theirs2)
	if err != nil {
		t.Fatalf("Merge differing add: %v", err)
	}
	if result.Kind != MergeConflicted {
		t.Fatalf("differing add/add = %v, want MergeConflicted", result.Kind)
	}
	if result.Conflicts[0].Type != ConflictAddAdd {
		t.Errorf("conflict type = %v, want add/add", result.Conflicts[0].Type)
	}
}

func TestMergeFileDirConflict(t *testing.T) {
	r := newTestRepo(t)
	base := makeCommit(t, r, map[string]string{"keep": "k\n"}, "base")
	ours := makeCommit(t, r, map[string]string{"keep": "k\n", "thing": "a file\n"}, "ours", base)
	theirs := makeCommit(t, r, map[string]string{"keep": "k\n", "thing/part": "a dir\n"}, "theirs", base)

	result, err := r.Merge(ours, theirs)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Kind != MergeConflicted {
		t.Fatalf("kind = %v, want MergeConflicted", result.Kind)
	}

	var found bool
	for _, c := range result.Conflicts {
		if c.Type == ConflictFileDir && c.Path == "thing" {
			found = true
		}
	}
	if !found {
		t.Fatalf("conflicts = %+v, want file/dir on thing", result.Conflicts)
	}

	// The partial tree keeps ours' file and drops theirs' subtree.
	if !treeHasPath(t, r, result.Tree, "thing") {
		t.Error("partial tree lost ours' file")
	}
	if treeHasPath(t, r, result.Tree, "thing/part") {
		t.Error("partial tree kept theirs' conflicting subtree entry")
	}
}

func TestMergeBinaryConflict(t *testing.T) {
	r := newTestRepo(t)
	bin := func(tail string) string { return "BIN\x00" + tail }

	base := makeCommit(t, r, map[string]string{"img": bin("v0")}, "base")
	ours := makeCommit(t, r, map[string]string{"img": bin("v1")}, "ours", base)
	theirs := makeCommit(t, r, map[string]string{"img": bin("v2")}, "theirs", base)

	result, err := r.Merge(ours, theirs)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Kind != MergeConflicted {
		t.Fatalf("kind = %v, want MergeConflicted", result.Kind)
	}
	if result.Conflicts[0].Type != ConflictBinary {
		t.Errorf("conflict type = %v, want binary", result.Conflicts[0].Type)
	}
	// Binary content is never marker-annotated: ours' bytes survive intact.
	if got := readFileFromTree(t, r, result.Tree, "img"); got != bin("v1") {
		t.Errorf("partial tree binary = %q, want ours' bytes", got)
	}
}

// A clean reconciliation of two diverged branches produces a two-parent
// commit, never a fast-forward.
func TestCommitMergeRecordsTwoParents(t *testing.T) {
	r := newTestRepo(t)
	base := makeCommit(t, r, map[string]string{"a": "a\n"}, "base")
	ours := makeCommit(t, r, map[string]string{"a": "a\n", "o": "o\n"}, "ours", base)
	theirs := makeCommit(t, r, map[string]string{"a": "a\n", "t": "t\n"}, "theirs", base)

	// Put the current branch at ours so CommitMerge can advance it.
	if err := r.UpdateRef("refs/heads/main", ours); err != nil {
		t.Fatalf("UpdateRef: %v", err)
	}

	result, err := r.Merge(ours, theirs)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Kind != MergeClean {
		t.Fatalf("kind = %v, want MergeClean", result.Kind)
	}

	mergeHash, err := r.CommitMerge(result, ours, theirs, "author", "merge theirs")
	if err != nil {
		t.Fatalf("CommitMerge: %v", err)
	}

	commit, err := r.Store.ReadCommit(mergeHash)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if len(commit.Parents) != 2 || commit.Parents[0] != ours || commit.Parents[1] != theirs {
		t.Errorf("parents = %v, want [%s %s]", commit.Parents, ours, theirs)
	}

	head, err := r.ResolveRef("refs/heads/main")
	if err != nil {
		t.Fatalf("ResolveRef: %v", err)
	}
	if head != mergeHash {
		t.Errorf("branch = %s, want %s", head, mergeHash)
	}
}

func TestMergeUnrelatedHistoriesFails(t *testing.T) {
	r := newTestRepo(t)
	a := makeCommit(t, r, map[string]string{"a": "a\n"}, "rootA")
	b := makeCommit(t, r, map[string]string{"b": "b\n"}, "rootB")

	if _, err := r.Merge(a, b); err == nil {
		t.Error("merging unrelated histories must fail")
	}
}
