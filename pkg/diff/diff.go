// Package diff computes minimal line-level edit scripts using the Myers
// shortest-edit-script algorithm.
package diff

import "strings"

// OpKind classifies an operation in an edit script.
type OpKind int

const (
	Equal   OpKind = iota // Lines match in both sequences.
	Insert                // Lines present only in b.
	Delete                // Lines present only in a.
	Replace               // A run of a-lines replaced by a run of b-lines.
)

// Span is a half-open line range [Start, End).
type Span struct {
	Start, End int
}

// Len returns the number of lines covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Op is a single ranged operation in an edit script. A covers lines of the
// first sequence, B lines of the second. Insert ops have an empty A span;
// Delete ops have an empty B span.
type Op struct {
	Kind OpKind
	A    Span
	B    Span
}

// Script is an ordered edit script transforming sequence a into sequence b.
type Script []Op

// lineOp is a per-line Myers operation, later compacted into ranged Ops.
type lineOp struct {
	kind OpKind // Equal, Insert, or Delete
}

// Diff computes the minimal edit script transforming a into b. Ties
// between equally minimal scripts are broken by preferring matches as
// early as possible, so output is deterministic for identical inputs.
// Adjacent delete/insert runs are compacted into a single Replace op.
func Diff(a, b []string) Script {
	return compact(myers(a, b))
}

// myers runs the O((N+M)*D) Myers algorithm over whole lines, returning
// one operation per line.
func myers(a, b []string) []lineOp {
	n := len(a)
	m := len(b)

	if n == 0 && m == 0 {
		return nil
	}
	if n == 0 {
		ops := make([]lineOp, m)
		for i := range ops {
			ops[i] = lineOp{kind: Insert}
		}
		return ops
	}
	if m == 0 {
		ops := make([]lineOp, n)
		for i := range ops {
			ops[i] = lineOp{kind: Delete}
		}
		return ops
	}

	max := n + m
	size := 2*max + 1

	v := make([]int, size)

	// trace[d] holds a snapshot of v after processing edit distance d.
	var trace [][]int

	for d := 0; d <= max; d++ {
		for k := -d; k <= d; k += 2 {
			idx := k + max
			var x int
			if k == -d || (k != d && v[idx-1] < v[idx+1]) {
				x = v[idx+1] // move down (insert)
			} else {
				x = v[idx-1] + 1 // move right (delete)
			}
			y := x - k

			// Follow diagonal (equal lines).
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}

			v[idx] = x

			if x >= n && y >= m {
				snap := make([]int, size)
				copy(snap, v)
				trace = append(trace, snap)
				return backtrack(trace, a, b, d)
			}
		}

		snap := make([]int, size)
		copy(snap, v)
		trace = append(trace, snap)
	}

	// Unreachable for valid inputs.
	return nil
}

// backtrack reconstructs the per-line edit script from the trace of v
// snapshots. trace[d] holds the v-array state after edit distance d.
func backtrack(trace [][]int, a, b []string, dFinal int) []lineOp {
	n := len(a)
	m := len(b)
	max := n + m

	x := n
	y := m

	var ops []lineOp

	for d := dFinal; d > 0; d-- {
		k := x - y
		idx := k + max

		vPrev := trace[d-1]

		var prevK int
		if k == -d || (k != d && vPrev[idx-1] < vPrev[idx+1]) {
			prevK = k + 1 // came from an insert (down move)
		} else {
			prevK = k - 1 // came from a delete (right move)
		}

		prevX := vPrev[prevK+max]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			x--
			y--
			ops = append(ops, lineOp{kind: Equal})
		}

		if k == prevK+1 {
			x--
			ops = append(ops, lineOp{kind: Delete})
		} else {
			y--
			ops = append(ops, lineOp{kind: Insert})
		}
	}

	for x > 0 && y > 0 {
		x--
		y--
		ops = append(ops, lineOp{kind: Equal})
	}

	// Reverse to forward order.
	for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
		ops[i], ops[j] = ops[j], ops[i]
	}

	return ops
}

// compact folds per-line operations into ranged ops. Contiguous runs of
// mixed deletes and inserts become a single Replace.
func compact(ops []lineOp) Script {
	var script Script
	ai, bi := 0, 0

	i := 0
	for i < len(ops) {
		if ops[i].kind == Equal {
			aStart, bStart := ai, bi
			for i < len(ops) && ops[i].kind == Equal {
				ai++
				bi++
				i++
			}
			script = append(script, Op{
				Kind: Equal,
				A:    Span{Start: aStart, End: ai},
				B:    Span{Start: bStart, End: bi},
			})
			continue
		}

		// Accumulate a contiguous changed run.
		aStart, bStart := ai, bi
		for i < len(ops) && ops[i].kind != Equal {
			if ops[i].kind == Delete {
				ai++
			} else {
				bi++
			}
			i++
		}

		op := Op{
			A: Span{Start: aStart, End: ai},
			B: Span{Start: bStart, End: bi},
		}
		switch {
		case op.A.Len() > 0 && op.B.Len() > 0:
			op.Kind = Replace
		case op.A.Len() > 0:
			op.Kind = Delete
		default:
			op.Kind = Insert
		}
		script = append(script, op)
	}

	return script
}

// SplitLines splits text into lines for diffing. A trailing newline does
// not produce an extra empty element; a file whose final line lacks a
// newline keeps that line as its last element, so callers can distinguish
// the two cases via HasTrailingNewline.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// HasTrailingNewline reports whether text ends with a newline. Files with
// and without one diff as distinct inputs.
func HasTrailingNewline(s string) bool {
	return len(s) > 0 && s[len(s)-1] == '\n'
}

// SplitLinesKeepEnds splits text into lines, each keeping its newline. A
// final line without one stays bare, so stripping a file's trailing
// newline changes its last token and diffs as a real edit.
func SplitLinesKeepEnds(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
