package repo

import (
	"testing"

	"github.com/stratavcs/strata/pkg/object"
)

func TestGCSweepsUnreachableObjects(t *testing.T) {
	r := newTestRepo(t)

	kept := makeCommit(t, r, map[string]string{"f": "kept\n"}, "kept")
	if err := r.UpdateRef("refs/heads/main", kept); err != nil {
		t.Fatalf("UpdateRef: %v", err)
	}

	// An orphaned commit chain nothing references.
	orphan := makeCommit(t, r, map[string]string{"g": "orphan\n"}, "orphan")

	dry, err := r.GC(true)
	if err != nil {
		t.Fatalf("GC dry run: %v", err)
	}
	if dry.Removed == 0 {
		t.Fatal("dry run found nothing to remove")
	}
	if !r.Store.Has(orphan) {
		t.Fatal("dry run must not delete")
	}

	summary, err := r.GC(false)
	if err != nil {
		t.Fatalf("GC: %v", err)
	}
	if summary.Removed != dry.Removed {
		t.Errorf("removed %d, dry run predicted %d", summary.Removed, dry.Removed)
	}

	if r.Store.Has(orphan) {
		t.Error("orphan commit survived GC")
	}
	if !r.Store.Has(kept) {
		t.Error("ref-reachable commit was deleted")
	}
	keptCommit, err := r.Store.ReadCommit(kept)
	if err != nil {
		t.Fatalf("ReadCommit after GC: %v", err)
	}
	if !r.Store.Has(keptCommit.TreeHash) {
		t.Error("reachable tree was deleted")
	}
}

func TestGCKeepsDetachedHead(t *testing.T) {
	r := newTestRepo(t)

	c := makeCommit(t, r, map[string]string{"f": "x\n"}, "detached")
	if err := r.SetHead(string(c), true); err != nil {
		t.Fatalf("SetHead: %v", err)
	}

	if _, err := r.GC(false); err != nil {
		t.Fatalf("GC: %v", err)
	}
	if !r.Store.Has(c) {
		t.Error("detached HEAD commit was swept")
	}
}

func TestGCKeepsSuspendedRebaseObjects(t *testing.T) {
	r, m1, _ := setupRebaseRepo(t, true)

	if _, err := r.Rebase(m1); err != nil {
		t.Fatalf("Rebase: %v", err)
	}
	state, err := r.readRebaseState()
	if err != nil {
		t.Fatalf("readRebaseState: %v", err)
	}

	if _, err := r.GC(false); err != nil {
		t.Fatalf("GC: %v", err)
	}
	for _, h := range []object.Hash{state.Onto, state.MovingHead, state.PartialTree} {
		if h != "" && !r.Store.Has(h) {
			t.Errorf("rebase-held object %s was swept", h)
		}
	}
}
