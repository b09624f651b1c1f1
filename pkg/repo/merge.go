package repo

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/stratavcs/strata/pkg/diff3"
	"github.com/stratavcs/strata/pkg/object"
)

// MergeKind classifies the outcome of a merge.
type MergeKind int

const (
	// MergeFastForward: one side is an ancestor of the other; no new
	// commit is needed, the pointer simply advances.
	MergeFastForward MergeKind = iota
	// MergeClean: the recursive three-way merge succeeded with no
	// conflicts. The caller wraps the tree in a two-parent commit.
	MergeClean
	// MergeConflicted: at least one path conflicted. The partial tree
	// has all non-conflicting paths resolved and conflicting text paths
	// carrying conflict markers.
	MergeConflicted
)

// ConflictType names the shape of a path-level conflict.
type ConflictType string

const (
	ConflictModifyModify ConflictType = "modify/modify" // both changed differently
	ConflictModifyDelete ConflictType = "modify/delete" // one deleted, one modified
	ConflictAddAdd       ConflictType = "add/add"       // both added different content
	ConflictBinary       ConflictType = "binary"        // differing binary content
	ConflictFileDir      ConflictType = "file/dir"      // file on one side, directory on the other
)

// ConflictRecord describes one conflicting path. It is produced
// transiently by a merge and never persisted as an object. Hash fields
// are empty for sides where the path does not exist. Hunks carries
// line-ranged conflict detail for textual modify/modify conflicts.
type ConflictRecord struct {
	Path       string
	Type       ConflictType
	BaseHash   object.Hash
	OursHash   object.Hash
	TheirsHash object.Hash
	Hunks      []diff3.Hunk
}

// MergeResult is the outcome of merging two commits.
type MergeResult struct {
	Kind      MergeKind
	Commit    object.Hash      // fast-forward target commit
	Tree      object.Hash      // merged tree (clean) or partial tree (conflicted)
	Base      object.Hash      // the merge base used
	Conflicts []ConflictRecord // non-empty iff Kind == MergeConflicted
}

// Merge performs a three-way merge of two commits.
//
// If one commit is an ancestor of the other the result is FastForward and
// no objects are written. Otherwise the trees are merged recursively
// against the merge base; the merged (or partial) tree is materialized in
// the store. A merge that had to reconcile both sides is never a
// fast-forward, even when the merged tree equals one side's tree: the
// caller records the reconciliation as a two-parent commit.
func (r *Repo) Merge(ours, theirs object.Hash) (*MergeResult, error) {
	base, err := r.MergeBase(ours, theirs)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	if base == ours {
		return &MergeResult{Kind: MergeFastForward, Commit: theirs, Base: base}, nil
	}
	if base == theirs {
		return &MergeResult{Kind: MergeFastForward, Commit: ours, Base: base}, nil
	}

	state := r.getGraphState()
	baseCommit, err := state.readCommit(r, base)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	oursCommit, err := state.readCommit(r, ours)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	theirsCommit, err := state.readCommit(r, theirs)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	tree, conflicts, err := r.MergeTrees(baseCommit.TreeHash, oursCommit.TreeHash, theirsCommit.TreeHash)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	result := &MergeResult{Tree: tree, Base: base, Conflicts: conflicts}
	if len(conflicts) > 0 {
		result.Kind = MergeConflicted
	} else {
		result.Kind = MergeClean
	}
	return result, nil
}

// CommitMerge wraps a clean merge result in a two-parent commit and
// advances the current branch with a compare-and-swap against ours.
func (r *Repo) CommitMerge(result *MergeResult, ours, theirs object.Hash, author, message string) (object.Hash, error) {
	if result.Kind != MergeClean {
		return "", fmt.Errorf("commit merge: result is not clean")
	}

	commitHash, err := r.CreateCommit(result.Tree, []object.Hash{ours, theirs}, author, message)
	if err != nil {
		return "", fmt.Errorf("commit merge: %w", err)
	}

	head, err := r.Head()
	if err != nil {
		return "", fmt.Errorf("commit merge: read HEAD: %w", err)
	}
	if strings.HasPrefix(head, "refs/") {
		if err := r.UpdateRefCAS(head, commitHash, ours); err != nil {
			return "", fmt.Errorf("commit merge: update ref %q: %w", head, err)
		}
	} else {
		if err := r.UpdateRefCAS("HEAD", commitHash, ours); err != nil {
			return "", fmt.Errorf("commit merge: update detached HEAD: %w", err)
		}
	}
	return commitHash, nil
}

// mergedFile is one path in the merged tree under construction.
type mergedFile struct {
	blobHash object.Hash
	mode     string
}

// MergeTrees recursively merges ours and theirs against base, writing any
// new blobs and trees to the store. It returns the merged tree hash (the
// partial tree when conflicts exist) and the conflict records.
func (r *Repo) MergeTrees(base, ours, theirs object.Hash) (object.Hash, []ConflictRecord, error) {
	baseFiles, err := r.FlattenTree(base)
	if err != nil {
		return "", nil, err
	}
	oursFiles, err := r.FlattenTree(ours)
	if err != nil {
		return "", nil, err
	}
	theirsFiles, err := r.FlattenTree(theirs)
	if err != nil {
		return "", nil, err
	}

	baseMap := indexByPath(baseFiles)
	oursMap := indexByPath(oursFiles)
	theirsMap := indexByPath(theirsFiles)

	merged := make(map[string]mergedFile)
	var conflicts []ConflictRecord

	// Directory-vs-file disagreements are structural conflicts: the
	// engine must not guess. The partial tree keeps ours' entries; the
	// affected paths are excluded from per-file classification.
	structConflicts, skipTheirs := detectFileDirConflicts(oursMap, theirsMap)
	conflicts = append(conflicts, structConflicts...)

	for path := range skipTheirs {
		delete(theirsMap, path)
	}

	for _, path := range collectAllPaths(baseMap, oursMap, theirsMap) {
		baseEntry, inBase := baseMap[path]
		oursEntry, inOurs := oursMap[path]
		theirsEntry, inTheirs := theirsMap[path]

		switch {
		case inBase && inOurs && inTheirs:
			record, mf, err := r.mergeThreeWay(path, baseEntry, oursEntry, theirsEntry)
			if err != nil {
				return "", nil, fmt.Errorf("merge file %q: %w", path, err)
			}
			if record != nil {
				conflicts = append(conflicts, *record)
			}
			merged[path] = mf

		case !inBase && inOurs && inTheirs:
			// Added in both branches.
			if oursEntry.BlobHash == theirsEntry.BlobHash {
				merged[path] = mergedFile{blobHash: oursEntry.BlobHash, mode: oursEntry.Mode}
				continue
			}
			record, mf, err := r.mergeAddAdd(path, oursEntry, theirsEntry)
			if err != nil {
				return "", nil, fmt.Errorf("merge file %q: %w", path, err)
			}
			if record != nil {
				conflicts = append(conflicts, *record)
			}
			merged[path] = mf

		case inBase && inOurs && !inTheirs:
			// Deleted by theirs.
			if oursEntry.BlobHash == baseEntry.BlobHash {
				// Ours unchanged: clean delete.
				continue
			}
			// Modify/delete must conflict; silent data loss is never a
			// valid default.
			mf, err := r.writeDeleteConflictBlob(oursEntry, true)
			if err != nil {
				return "", nil, err
			}
			merged[path] = mf
			conflicts = append(conflicts, ConflictRecord{
				Path:     path,
				Type:     ConflictModifyDelete,
				BaseHash: baseEntry.BlobHash,
				OursHash: oursEntry.BlobHash,
			})

		case inBase && !inOurs && inTheirs:
			// Deleted by ours.
			if theirsEntry.BlobHash == baseEntry.BlobHash {
				continue
			}
			mf, err := r.writeDeleteConflictBlob(theirsEntry, false)
			if err != nil {
				return "", nil, err
			}
			merged[path] = mf
			conflicts = append(conflicts, ConflictRecord{
				Path:       path,
				Type:       ConflictModifyDelete,
				BaseHash:   baseEntry.BlobHash,
				TheirsHash: theirsEntry.BlobHash,
			})

		case !inBase && inOurs && !inTheirs:
			merged[path] = mergedFile{blobHash: oursEntry.BlobHash, mode: oursEntry.Mode}

		case !inBase && !inOurs && inTheirs:
			merged[path] = mergedFile{blobHash: theirsEntry.BlobHash, mode: theirsEntry.Mode}

		case inBase && !inOurs && !inTheirs:
			// Deleted on both sides.
		}
	}

	files := make(map[string]TreeFileEntry, len(merged))
	for path, mf := range merged {
		files[path] = TreeFileEntry{Path: path, BlobHash: mf.blobHash, Mode: mf.mode}
	}
	treeHash, err := r.BuildTree(files)
	if err != nil {
		return "", nil, err
	}

	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Path < conflicts[j].Path })
	return treeHash, conflicts, nil
}

// mergeThreeWay merges a path present in base, ours, and theirs. It
// returns a conflict record (nil when clean) and the merged file.
func (r *Repo) mergeThreeWay(path string, base, ours, theirs TreeFileEntry) (*ConflictRecord, mergedFile, error) {
	mode := pickMode(base, ours, theirs)

	// Identical change on both sides is clean, even though both touched
	// the path.
	if ours.BlobHash == theirs.BlobHash {
		return nil, mergedFile{blobHash: ours.BlobHash, mode: mode}, nil
	}
	// One-sided changes take that side verbatim.
	if ours.BlobHash == base.BlobHash {
		return nil, mergedFile{blobHash: theirs.BlobHash, mode: mode}, nil
	}
	if theirs.BlobHash == base.BlobHash {
		return nil, mergedFile{blobHash: ours.BlobHash, mode: mode}, nil
	}

	// Both sides changed differently.
	baseData, err := r.readBlobData(base.BlobHash)
	if err != nil {
		return nil, mergedFile{}, err
	}
	oursData, err := r.readBlobData(ours.BlobHash)
	if err != nil {
		return nil, mergedFile{}, err
	}
	theirsData, err := r.readBlobData(theirs.BlobHash)
	if err != nil {
		return nil, mergedFile{}, err
	}

	if isBinary(baseData) || isBinary(oursData) || isBinary(theirsData) {
		// Binary content never merges automatically and has no default
		// winner; keep ours in the partial tree.
		record := &ConflictRecord{
			Path:       path,
			Type:       ConflictBinary,
			BaseHash:   base.BlobHash,
			OursHash:   ours.BlobHash,
			TheirsHash: theirs.BlobHash,
		}
		return record, mergedFile{blobHash: ours.BlobHash, mode: mode}, nil
	}

	result := diff3.Merge(baseData, oursData, theirsData)
	blobHash, err := r.Store.WriteBlob(&object.Blob{Data: result.Merged})
	if err != nil {
		return nil, mergedFile{}, err
	}

	if !result.HasConflicts {
		return nil, mergedFile{blobHash: blobHash, mode: mode}, nil
	}

	record := &ConflictRecord{
		Path:       path,
		Type:       ConflictModifyModify,
		BaseHash:   base.BlobHash,
		OursHash:   ours.BlobHash,
		TheirsHash: theirs.BlobHash,
		Hunks:      conflictHunks(result.Hunks),
	}
	return record, mergedFile{blobHash: blobHash, mode: mode}, nil
}

// mergeAddAdd merges a path added on both sides with differing content.
func (r *Repo) mergeAddAdd(path string, ours, theirs TreeFileEntry) (*ConflictRecord, mergedFile, error) {
	oursData, err := r.readBlobData(ours.BlobHash)
	if err != nil {
		return nil, mergedFile{}, err
	}
	theirsData, err := r.readBlobData(theirs.BlobHash)
	if err != nil {
		return nil, mergedFile{}, err
	}

	if isBinary(oursData) || isBinary(theirsData) {
		record := &ConflictRecord{
			Path:       path,
			Type:       ConflictAddAdd,
			OursHash:   ours.BlobHash,
			TheirsHash: theirs.BlobHash,
		}
		return record, mergedFile{blobHash: ours.BlobHash, mode: ours.Mode}, nil
	}

	// With no base there are no unchanged regions to align on, so
	// differing adds always conflict; the whole file is bracketed.
	content := renderFileConflict(oursData, theirsData)
	blobHash, err := r.Store.WriteBlob(&object.Blob{Data: content})
	if err != nil {
		return nil, mergedFile{}, err
	}
	record := &ConflictRecord{
		Path:       path,
		Type:       ConflictAddAdd,
		OursHash:   ours.BlobHash,
		TheirsHash: theirs.BlobHash,
		Hunks: []diff3.Hunk{{
			Type:   diff3.HunkConflict,
			Ours:   oursData,
			Theirs: theirsData,
		}},
	}
	return record, mergedFile{blobHash: blobHash, mode: ours.Mode}, nil
}

// writeDeleteConflictBlob renders a modify/delete conflict: the surviving
// side's content bracketed against an empty side.
func (r *Repo) writeDeleteConflictBlob(survivor TreeFileEntry, survivorIsOurs bool) (mergedFile, error) {
	data, err := r.readBlobData(survivor.BlobHash)
	if err != nil {
		return mergedFile{}, err
	}
	var content []byte
	if survivorIsOurs {
		content = renderFileConflict(data, nil)
	} else {
		content = renderFileConflict(nil, data)
	}
	blobHash, err := r.Store.WriteBlob(&object.Blob{Data: content})
	if err != nil {
		return mergedFile{}, err
	}
	return mergedFile{blobHash: blobHash, mode: survivor.Mode}, nil
}

// detectFileDirConflicts finds paths that are a file on one side and a
// directory on the other. It returns the conflict records plus the set
// of theirs-side paths to exclude from per-file classification; ours'
// entries always stay in the merge input.
func detectFileDirConflicts(oursMap, theirsMap map[string]TreeFileEntry) ([]ConflictRecord, map[string]struct{}) {
	oursDirs := dirSet(oursMap)
	theirsDirs := dirSet(theirsMap)

	var records []ConflictRecord
	skipTheirs := make(map[string]struct{})

	// File in ours, directory in theirs: drop theirs' subtree from the
	// merge input.
	for path, entry := range oursMap {
		if _, isDir := theirsDirs[path]; !isDir {
			continue
		}
		records = append(records, ConflictRecord{
			Path:     path,
			Type:     ConflictFileDir,
			OursHash: entry.BlobHash,
		})
		prefix := path + "/"
		for tp := range theirsMap {
			if strings.HasPrefix(tp, prefix) {
				skipTheirs[tp] = struct{}{}
			}
		}
	}

	// File in theirs, directory in ours: ours' subtree stays, theirs'
	// file is dropped.
	for path, entry := range theirsMap {
		if _, isDir := oursDirs[path]; !isDir {
			continue
		}
		records = append(records, ConflictRecord{
			Path:       path,
			Type:       ConflictFileDir,
			TheirsHash: entry.BlobHash,
		})
		skipTheirs[path] = struct{}{}
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	return records, skipTheirs
}

// dirSet returns every directory path implied by the file paths in m.
func dirSet(m map[string]TreeFileEntry) map[string]struct{} {
	dirs := make(map[string]struct{})
	for p := range m {
		for {
			slash := strings.LastIndexByte(p, '/')
			if slash < 0 {
				break
			}
			p = p[:slash]
			if _, ok := dirs[p]; ok {
				break
			}
			dirs[p] = struct{}{}
		}
	}
	return dirs
}

// conflictHunks filters a merge result down to its conflict hunks.
func conflictHunks(hunks []diff3.Hunk) []diff3.Hunk {
	var out []diff3.Hunk
	for _, h := range hunks {
		if h.Type == diff3.HunkConflict {
			out = append(out, h)
		}
	}
	return out
}

func renderFileConflict(ours, theirs []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(diff3.MarkerOurs)
	buf.WriteByte('\n')
	buf.Write(ours)
	if len(ours) > 0 && ours[len(ours)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString(diff3.MarkerSep)
	buf.WriteByte('\n')
	buf.Write(theirs)
	if len(theirs) > 0 && theirs[len(theirs)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString(diff3.MarkerTheirs)
	buf.WriteByte('\n')
	return buf.Bytes()
}

// isBinary reports whether data looks like binary content: a NUL byte in
// the first 8000 bytes.
func isBinary(data []byte) bool {
	probe := data
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	return bytes.IndexByte(probe, 0) >= 0
}

func pickMode(base, ours, theirs TreeFileEntry) string {
	// Mode follows content ownership: a side that changed the mode from
	// base wins; ours wins when both changed it.
	if ours.Mode != base.Mode {
		return ours.Mode
	}
	if theirs.Mode != base.Mode {
		return theirs.Mode
	}
	return ours.Mode
}

func (r *Repo) readBlobData(h object.Hash) ([]byte, error) {
	blob, err := r.Store.ReadBlob(h)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", h, err)
	}
	return blob.Data, nil
}

func indexByPath(entries []TreeFileEntry) map[string]TreeFileEntry {
	m := make(map[string]TreeFileEntry, len(entries))
	for _, e := range entries {
		m[e.Path] = e
	}
	return m
}

func collectAllPaths(base, ours, theirs map[string]TreeFileEntry) []string {
	seen := make(map[string]bool)
	for p := range base {
		seen[p] = true
	}
	for p := range ours {
		seen[p] = true
	}
	for p := range theirs {
		seen[p] = true
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
