// Package diff3 performs three-way text merges with conflict markers.
//
// Each side's changes are computed against the common base with the Myers
// diff, converted into base-aligned chunks, and walked in parallel:
// non-overlapping changes merge automatically, overlapping differing
// changes become conflict hunks. Insertions at the same base position
// cover a zero-width base region and therefore never overlap; both are
// kept, ours first.
package diff3

import (
	"bytes"
	"strings"

	"github.com/stratavcs/strata/pkg/diff"
)

// HunkType classifies a hunk in a three-way merge result.
type HunkType int

const (
	HunkClean    HunkType = iota // Hunk merged cleanly.
	HunkConflict                 // Hunk requires manual resolution.
)

// Hunk represents a contiguous section of the merge output. BaseStart and
// BaseEnd give the half-open base line range the hunk covers.
type Hunk struct {
	Type               HunkType
	BaseStart, BaseEnd int
	Base, Ours, Theirs []byte
	Merged             []byte
}

// Result holds the outcome of a three-way merge.
type Result struct {
	Merged       []byte // Full merged content (with conflict markers on conflicts).
	HasConflicts bool   // True if any hunk is a conflict.
	Hunks        []Hunk // Individual hunks in document order.
}

const (
	MarkerOurs   = "<<<<<<< ours"
	MarkerSep    = "======="
	MarkerTheirs = ">>>>>>> theirs"
)

// Merge performs a three-way merge of base, ours, and theirs.
//
// Lines are tokenized with their terminators kept, so a side whose only
// change is stripping (or adding) the trailing newline has genuinely
// changed the final line and is merged or conflicted accordingly.
func Merge(base, ours, theirs []byte) Result {
	baseLines := diff.SplitLinesKeepEnds(string(base))
	oursLines := diff.SplitLinesKeepEnds(string(ours))
	theirsLines := diff.SplitLinesKeepEnds(string(theirs))

	oursChunks := buildChunks(baseLines, oursLines)
	theirsChunks := buildChunks(baseLines, theirsLines)

	return mergeChunks(baseLines, oursChunks, theirsChunks)
}

// ContainsConflictMarkers reports whether data still carries merge
// conflict markers. Used to re-validate manual resolutions.
func ContainsConflictMarkers(data []byte) bool {
	for _, line := range bytes.Split(data, []byte("\n")) {
		s := string(line)
		if s == MarkerOurs || s == MarkerSep || s == MarkerTheirs {
			return true
		}
	}
	return false
}

// chunk represents a contiguous region relative to the base.
type chunk struct {
	baseStart, baseEnd int      // range [baseStart, baseEnd) in base
	lines              []string // replacement lines for this region
	changed            bool     // true if this region differs from base
}

// buildChunks converts a two-way edit script (base -> side) into a list of
// chunks. Equal regions expand to one chunk per base line so that the
// parallel walk can align at line granularity.
func buildChunks(base, side []string) []chunk {
	script := diff.Diff(base, side)

	var chunks []chunk
	for _, op := range script {
		switch op.Kind {
		case diff.Equal:
			for i := op.A.Start; i < op.A.End; i++ {
				chunks = append(chunks, chunk{
					baseStart: i,
					baseEnd:   i + 1,
					lines:     []string{base[i]},
				})
			}
		default:
			chunks = append(chunks, chunk{
				baseStart: op.A.Start,
				baseEnd:   op.A.End,
				lines:     append([]string(nil), side[op.B.Start:op.B.End]...),
				changed:   true,
			})
		}
	}
	return chunks
}

// mergeChunks walks the two chunk sequences in parallel, aligned by base
// line positions.
func mergeChunks(baseLines []string, oursChunks, theirsChunks []chunk) Result {
	var merged bytes.Buffer
	var hunks []Hunk
	hasConflicts := false

	oi := 0
	ti := 0

	for oi < len(oursChunks) || ti < len(theirsChunks) {
		var oc, tc *chunk
		if oi < len(oursChunks) {
			oc = &oursChunks[oi]
		}
		if ti < len(theirsChunks) {
			tc = &theirsChunks[ti]
		}

		if oc == nil {
			writeChunk(&merged, tc)
			hunks = append(hunks, makeCleanHunk(baseLines, tc))
			ti++
			continue
		}
		if tc == nil {
			writeChunk(&merged, oc)
			hunks = append(hunks, makeCleanHunk(baseLines, oc))
			oi++
			continue
		}

		// Both chunks cover base regions derived from the same base, so
		// aligned boundaries are the common case.
		if oc.baseStart == tc.baseStart && oc.baseEnd == tc.baseEnd {
			switch {
			case !oc.changed && !tc.changed:
				writeChunk(&merged, oc)
				hunks = append(hunks, makeCleanHunk(baseLines, oc))
			case oc.changed && !tc.changed:
				writeChunk(&merged, oc)
				hunks = append(hunks, makeCleanHunk(baseLines, oc))
			case !oc.changed && tc.changed:
				writeChunk(&merged, tc)
				hunks = append(hunks, makeCleanHunk(baseLines, tc))
			default:
				if linesEqual(oc.lines, tc.lines) {
					// Identical change on both sides is a clean merge.
					writeChunk(&merged, oc)
					hunks = append(hunks, makeCleanHunk(baseLines, oc))
				} else if oc.baseStart == oc.baseEnd {
					// Two insertions at the same point cover a zero-width
					// base region, so they do not overlap: keep both,
					// ours first.
					writeChunk(&merged, oc)
					writeChunk(&merged, tc)
					combined := append(append([]string(nil), oc.lines...), tc.lines...)
					h := makeCleanHunk(baseLines, &chunk{
						baseStart: oc.baseStart,
						baseEnd:   oc.baseEnd,
						lines:     combined,
						changed:   true,
					})
					h.Theirs = joinLines(tc.lines)
					hunks = append(hunks, h)
				} else {
					hasConflicts = true
					writeConflict(&merged, oc.lines, tc.lines)
					hunks = append(hunks, makeConflictHunk(baseLines, oc.baseStart, oc.baseEnd, oc.lines, tc.lines))
				}
			}
			oi++
			ti++
			continue
		}

		// Misaligned boundaries: one side's change spans multiple chunks
		// on the other side. Collect every overlapping chunk from both
		// sides into a single region and decide once for the region.
		regionStart := minInt(oc.baseStart, tc.baseStart)
		regionEnd := maxInt(oc.baseEnd, tc.baseEnd)

		var oursRegion []chunk
		for oi < len(oursChunks) && oursChunks[oi].baseStart < regionEnd {
			oursRegion = append(oursRegion, oursChunks[oi])
			if oursChunks[oi].baseEnd > regionEnd {
				regionEnd = oursChunks[oi].baseEnd
			}
			oi++
		}

		var theirsRegion []chunk
		for ti < len(theirsChunks) && theirsChunks[ti].baseStart < regionEnd {
			theirsRegion = append(theirsRegion, theirsChunks[ti])
			if theirsChunks[ti].baseEnd > regionEnd {
				regionEnd = theirsChunks[ti].baseEnd
			}
			ti++
		}

		oursOut := assembleRegion(oursRegion)
		theirsOut := assembleRegion(theirsRegion)
		anyOursChanged := anyChanged(oursRegion)
		anyTheirsChanged := anyChanged(theirsRegion)

		baseRegion := baseLines[regionStart:regionEnd]

		switch {
		case !anyOursChanged && !anyTheirsChanged:
			writeLines(&merged, baseRegion)
			hunks = append(hunks, Hunk{
				Type:      HunkClean,
				BaseStart: regionStart,
				BaseEnd:   regionEnd,
				Base:      joinLines(baseRegion),
				Merged:    joinLines(baseRegion),
			})
		case anyOursChanged && !anyTheirsChanged:
			writeLines(&merged, oursOut)
			hunks = append(hunks, Hunk{
				Type:      HunkClean,
				BaseStart: regionStart,
				BaseEnd:   regionEnd,
				Base:      joinLines(baseRegion),
				Ours:      joinLines(oursOut),
				Merged:    joinLines(oursOut),
			})
		case !anyOursChanged && anyTheirsChanged:
			writeLines(&merged, theirsOut)
			hunks = append(hunks, Hunk{
				Type:      HunkClean,
				BaseStart: regionStart,
				BaseEnd:   regionEnd,
				Base:      joinLines(baseRegion),
				Theirs:    joinLines(theirsOut),
				Merged:    joinLines(theirsOut),
			})
		default:
			if linesEqual(oursOut, theirsOut) {
				writeLines(&merged, oursOut)
				hunks = append(hunks, Hunk{
					Type:      HunkClean,
					BaseStart: regionStart,
					BaseEnd:   regionEnd,
					Base:      joinLines(baseRegion),
					Ours:      joinLines(oursOut),
					Merged:    joinLines(oursOut),
				})
			} else {
				hasConflicts = true
				writeConflict(&merged, oursOut, theirsOut)
				hunks = append(hunks, makeConflictHunk(baseLines, regionStart, regionEnd, oursOut, theirsOut))
			}
		}
	}

	return Result{
		Merged:       merged.Bytes(),
		HasConflicts: hasConflicts,
		Hunks:        hunks,
	}
}

func writeChunk(buf *bytes.Buffer, c *chunk) {
	writeLines(buf, c.lines)
}

func writeLines(buf *bytes.Buffer, lines []string) {
	for _, l := range lines {
		buf.WriteString(l)
	}
}

func writeConflict(buf *bytes.Buffer, oursLines, theirsLines []string) {
	buf.WriteString(MarkerOurs)
	buf.WriteByte('\n')
	writeConflictBody(buf, oursLines)
	buf.WriteString(MarkerSep)
	buf.WriteByte('\n')
	writeConflictBody(buf, theirsLines)
	buf.WriteString(MarkerTheirs)
	buf.WriteByte('\n')
}

// writeConflictBody writes one side of a conflict region. A final line
// without a terminator still gets one so the following marker starts on
// its own line.
func writeConflictBody(buf *bytes.Buffer, lines []string) {
	writeLines(buf, lines)
	if n := len(lines); n > 0 && !strings.HasSuffix(lines[n-1], "\n") {
		buf.WriteByte('\n')
	}
}

func makeCleanHunk(baseLines []string, c *chunk) Hunk {
	h := Hunk{
		Type:      HunkClean,
		BaseStart: c.baseStart,
		BaseEnd:   c.baseEnd,
		Merged:    joinLines(c.lines),
	}
	if c.baseStart < c.baseEnd {
		h.Base = joinLines(baseLines[c.baseStart:c.baseEnd])
	}
	if c.changed {
		h.Ours = joinLines(c.lines)
	}
	return h
}

func makeConflictHunk(baseLines []string, baseStart, baseEnd int, ours, theirs []string) Hunk {
	h := Hunk{
		Type:      HunkConflict,
		BaseStart: baseStart,
		BaseEnd:   baseEnd,
		Ours:      joinLines(ours),
		Theirs:    joinLines(theirs),
	}
	if baseStart < baseEnd {
		h.Base = joinLines(baseLines[baseStart:baseEnd])
	}
	return h
}

func joinLines(lines []string) []byte {
	if len(lines) == 0 {
		return nil
	}
	var buf bytes.Buffer
	writeLines(&buf, lines)
	return buf.Bytes()
}

func linesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func assembleRegion(chunks []chunk) []string {
	var lines []string
	for _, c := range chunks {
		lines = append(lines, c.lines...)
	}
	return lines
}

func anyChanged(chunks []chunk) bool {
	for _, c := range chunks {
		if c.changed {
			return true
		}
	}
	return false
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
