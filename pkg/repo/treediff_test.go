package repo

import "testing"

func TestDiffTrees(t *testing.T) {
	r := newTestRepo(t)

	oldTree := makeTree(t, r, map[string]string{
		"kept.txt":    "same\n",
		"changed.txt": "before\n",
		"removed.txt": "bye\n",
	})
	newTree := makeTree(t, r, map[string]string{
		"kept.txt":    "same\n",
		"changed.txt": "after\n",
		"added.txt":   "hi\n",
	})

	changes, err := r.DiffTrees(oldTree, newTree)
	if err != nil {
		t.Fatalf("DiffTrees: %v", err)
	}

	byPath := make(map[string]TreeChangeKind, len(changes))
	for _, c := range changes {
		byPath[c.Path] = c.Kind
	}
	want := map[string]TreeChangeKind{
		"added.txt":   ChangeAdded,
		"changed.txt": ChangeModified,
		"removed.txt": ChangeDeleted,
	}
	if len(byPath) != len(want) {
		t.Fatalf("changes = %v, want %v", byPath, want)
	}
	for p, k := range want {
		if byPath[p] != k {
			t.Errorf("%s = %v, want %v", p, byPath[p], k)
		}
	}

	// Sorted output.
	for i := 1; i < len(changes); i++ {
		if changes[i-1].Path > changes[i].Path {
			t.Errorf("changes out of order: %s before %s", changes[i-1].Path, changes[i].Path)
		}
	}

	// Identical trees diff to nothing.
	same, err := r.DiffTrees(oldTree, oldTree)
	if err != nil {
		t.Fatalf("DiffTrees same: %v", err)
	}
	if len(same) != 0 {
		t.Errorf("self-diff = %v, want empty", same)
	}
}
