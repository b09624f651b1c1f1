package diff

import (
	"reflect"
	"strings"
	"testing"
)

func TestDiffIdentical(t *testing.T) {
	a := []string{"one", "two", "three"}
	script := Diff(a, a)

	if len(script) != 1 {
		t.Fatalf("script = %v, want single Equal op", script)
	}
	op := script[0]
	if op.Kind != Equal || op.A.Len() != 3 || op.B.Len() != 3 {
		t.Errorf("op = %+v, want Equal over all 3 lines", op)
	}
}

func TestDiffBothEmpty(t *testing.T) {
	if script := Diff(nil, nil); len(script) != 0 {
		t.Errorf("diff of two empty sequences = %v, want empty script", script)
	}
}

func TestDiffEmptyAgainstContent(t *testing.T) {
	b := []string{"x", "y"}
	script := Diff(nil, b)
	if len(script) != 1 || script[0].Kind != Insert || script[0].B.Len() != 2 {
		t.Fatalf("script = %v, want one Insert of 2 lines", script)
	}

	script = Diff(b, nil)
	if len(script) != 1 || script[0].Kind != Delete || script[0].A.Len() != 2 {
		t.Fatalf("script = %v, want one Delete of 2 lines", script)
	}
}

func TestDiffCompactsReplace(t *testing.T) {
	a := []string{"keep", "old1", "old2", "tail"}
	b := []string{"keep", "new1", "tail"}
	script := Diff(a, b)

	var kinds []OpKind
	for _, op := range script {
		kinds = append(kinds, op.Kind)
	}
	want := []OpKind{Equal, Replace, Equal}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("op kinds = %v, want %v", kinds, want)
	}

	rep := script[1]
	if rep.A.Len() != 2 || rep.B.Len() != 1 {
		t.Errorf("replace spans = %+v/%+v, want 2 a-lines -> 1 b-line", rep.A, rep.B)
	}
}

func TestDiffInsertAtEnd(t *testing.T) {
	a := []string{"a", "b"}
	b := []string{"a", "b", "c"}
	script := Diff(a, b)

	last := script[len(script)-1]
	if last.Kind != Insert || last.B.Start != 2 || last.B.End != 3 {
		t.Errorf("last op = %+v, want Insert of line 2..3", last)
	}
}

// applyScript rebuilds b from a plus the edit script; used to confirm
// scripts are valid for arbitrary inputs.
func applyScript(a, b []string, script Script) []string {
	var out []string
	for _, op := range script {
		switch op.Kind {
		case Equal, Delete:
			if op.Kind == Equal {
				out = append(out, a[op.A.Start:op.A.End]...)
			}
		}
		if op.Kind == Insert || op.Kind == Replace {
			out = append(out, b[op.B.Start:op.B.End]...)
		}
	}
	return out
}

func TestDiffScriptReconstructsTarget(t *testing.T) {
	cases := [][2]string{
		{"a\nb\nc\n", "a\nx\nc\n"},
		{"", "only\nnew\n"},
		{"gone\n", ""},
		{"1\n2\n3\n4\n5\n", "0\n2\n4\n5\n6\n"},
		{"same\n", "same\n"},
	}
	for _, tc := range cases {
		a := SplitLines(tc[0])
		b := SplitLines(tc[1])
		got := applyScript(a, b, Diff(a, b))
		if strings.Join(got, "\n") != strings.Join(b, "\n") {
			t.Errorf("script for %q -> %q rebuilt %q", tc[0], tc[1], got)
		}
	}
}

func TestSplitLines(t *testing.T) {
	if got := SplitLines("a\nb\n"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("SplitLines with trailing newline = %v", got)
	}
	if got := SplitLines("a\nb"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("SplitLines without trailing newline = %v", got)
	}
	if got := SplitLines(""); got != nil {
		t.Errorf("SplitLines(\"\") = %v, want nil", got)
	}

	if !HasTrailingNewline("x\n") || HasTrailingNewline("x") || HasTrailingNewline("") {
		t.Error("HasTrailingNewline misclassified an input")
	}
}

func TestSplitLinesKeepEnds(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a\n", []string{"a\n"}},
		{"a", []string{"a"}},
		{"a\nb", []string{"a\n", "b"}},
		{"a\n\n", []string{"a\n", "\n"}},
	}
	for _, c := range cases {
		if got := SplitLinesKeepEnds(c.in); !reflect.DeepEqual(got, c.want) {
			t.Errorf("SplitLinesKeepEnds(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestUnifiedPatchHeaders(t *testing.T) {
	patch, err := Unified("dir/file.txt", []byte("old\n"), []byte("new\n"), UnifiedOptions{})
	if err != nil {
		t.Fatalf("Unified: %v", err)
	}
	for _, want := range []string{"--- a/dir/file.txt", "+++ b/dir/file.txt", "-old", "+new"} {
		if !strings.Contains(patch, want) {
			t.Errorf("patch missing %q:\n%s", want, patch)
		}
	}
}
