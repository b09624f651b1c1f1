package repo

import (
	"errors"
	"testing"

	"github.com/stratavcs/strata/pkg/object"
)

// diamond builds:
//
//	     base
//	    /    \
//	 left    right
//	    \    /
//	    (no merge commit; callers merge as needed)
func diamond(t *testing.T, r *Repo) (base, left, right object.Hash) {
	t.Helper()
	base = makeCommit(t, r, map[string]string{"f": "base\n"}, "base")
	left = makeCommit(t, r, map[string]string{"f": "base\n", "l": "l\n"}, "left", base)
	right = makeCommit(t, r, map[string]string{"f": "base\n", "r": "r\n"}, "right", base)
	return base, left, right
}

func TestIsAncestor(t *testing.T) {
	r := newTestRepo(t)
	base, left, _ := diamond(t, r)

	cases := []struct {
		ancestor, descendant object.Hash
		want                 bool
	}{
		{base, left, true},
		{left, base, false},
		{left, left, true},
	}
	for _, tc := range cases {
		got, err := r.IsAncestor(tc.ancestor, tc.descendant)
		if err != nil {
			t.Fatalf("IsAncestor: %v", err)
		}
		if got != tc.want {
			t.Errorf("IsAncestor(%s, %s) = %v, want %v", tc.ancestor, tc.descendant, got, tc.want)
		}
	}
}

func TestMergeBaseLinear(t *testing.T) {
	r := newTestRepo(t)
	c1 := makeCommit(t, r, map[string]string{"f": "1\n"}, "one")
	c2 := makeCommit(t, r, map[string]string{"f": "2\n"}, "two", c1)

	// When one commit is an ancestor of the other, it is the base.
	base, err := r.MergeBase(c1, c2)
	if err != nil {
		t.Fatalf("MergeBase: %v", err)
	}
	if base != c1 {
		t.Errorf("base = %s, want %s", base, c1)
	}
}

func TestMergeBaseDiamond(t *testing.T) {
	r := newTestRepo(t)
	base, left, right := diamond(t, r)

	got, err := r.MergeBase(left, right)
	if err != nil {
		t.Fatalf("MergeBase: %v", err)
	}
	if got != base {
		t.Errorf("base = %s, want %s", got, base)
	}

	// Symmetric call agrees.
	swapped, err := r.MergeBase(right, left)
	if err != nil {
		t.Fatalf("MergeBase swapped: %v", err)
	}
	if swapped != base {
		t.Errorf("swapped base = %s, want %s", swapped, base)
	}
}

func TestMergeBaseUnrelatedHistories(t *testing.T) {
	r := newTestRepo(t)
	a := makeCommit(t, r, map[string]string{"a": "a\n"}, "rootA")
	b := makeCommit(t, r, map[string]string{"b": "b\n"}, "rootB")

	if _, err := r.MergeBase(a, b); !errors.Is(err, ErrUnrelatedHistories) {
		t.Errorf("MergeBase = %v, want ErrUnrelatedHistories", err)
	}
	// The negative result is cached; a second call behaves identically.
	if _, err := r.MergeBase(a, b); !errors.Is(err, ErrUnrelatedHistories) {
		t.Errorf("cached MergeBase = %v, want ErrUnrelatedHistories", err)
	}
}

// TestMergeBaseCrissCross exercises a history with two lowest common
// ancestors. The breadth-first policy must pick one deterministically:
// repeated calls on the same pair always return the same base.
func TestMergeBaseCrissCross(t *testing.T) {
	r := newTestRepo(t)
	root := makeCommit(t, r, map[string]string{"f": "0\n"}, "root")
	a1 := makeCommit(t, r, map[string]string{"f": "a1\n"}, "a1", root)
	b1 := makeCommit(t, r, map[string]string{"f": "b1\n"}, "b1", root)
	// Criss-cross: each side merges the other's first round.
	a2 := makeCommit(t, r, map[string]string{"f": "a2\n"}, "a2", a1, b1)
	b2 := makeCommit(t, r, map[string]string{"f": "b2\n"}, "b2", b1, a1)

	first, err := r.MergeBase(a2, b2)
	if err != nil {
		t.Fatalf("MergeBase: %v", err)
	}
	if first != a1 && first != b1 {
		t.Fatalf("base = %s, want one of the criss-cross heads %s / %s", first, a1, b1)
	}
	for i := 0; i < 5; i++ {
		again, err := r.MergeBase(a2, b2)
		if err != nil {
			t.Fatalf("MergeBase repeat: %v", err)
		}
		if again != first {
			t.Fatalf("tie-break is not deterministic: %s then %s", first, again)
		}
	}
}

// TestAncestorsReverseTopological verifies the walker yields every
// commit before any of its own ancestors, each exactly once, even in a
// diamond where plain breadth-first order could surface the shared base
// too early.
func TestAncestorsReverseTopological(t *testing.T) {
	r := newTestRepo(t)
	base, left, right := diamond(t, r)
	tip := makeCommit(t, r, map[string]string{"f": "m\n"}, "merge", left, right)

	walker, err := r.Ancestors(tip)
	if err != nil {
		t.Fatalf("Ancestors: %v", err)
	}

	position := make(map[object.Hash]int)
	idx := 0
	for {
		h, commit, err := walker.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if h == "" {
			break
		}
		if _, dup := position[h]; dup {
			t.Fatalf("commit %s yielded twice", h)
		}
		position[h] = idx
		idx++

		for _, p := range commit.Parents {
			if pos, seen := position[p]; seen && pos < position[h] {
				t.Errorf("parent %s yielded before descendant %s", p, h)
			}
		}
	}

	if len(position) != 4 {
		t.Fatalf("yielded %d commits, want 4", len(position))
	}
	if position[tip] != 0 {
		t.Errorf("walk must start at the tip")
	}
	if position[base] != 3 {
		t.Errorf("shared base yielded at %d, want last (3)", position[base])
	}
	if position[left] >= position[base] || position[right] >= position[base] {
		t.Error("both branch commits must be yielded before the shared base")
	}
}
