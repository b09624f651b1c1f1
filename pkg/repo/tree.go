package repo

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/stratavcs/strata/pkg/object"
)

// TreeFileEntry represents a single file in a flattened tree.
type TreeFileEntry struct {
	Path     string
	BlobHash object.Hash
	Mode     string
}

// BuildTree converts a flat path -> entry map into a hierarchical tree
// structure, writing tree objects to the store and returning the root
// hash. Paths use forward slashes (e.g. "pkg/util/util.go").
func (r *Repo) BuildTree(files map[string]TreeFileEntry) (object.Hash, error) {
	return r.buildTreeDir(files, "")
}

func (r *Repo) buildTreeDir(files map[string]TreeFileEntry, prefix string) (object.Hash, error) {
	direct := make(map[string]TreeFileEntry) // name -> file entry
	subdirs := make(map[string]struct{})     // immediate child dir names

	for p, entry := range files {
		var rel string
		if prefix == "" {
			rel = p
		} else {
			if !strings.HasPrefix(p, prefix+"/") {
				continue
			}
			rel = p[len(prefix)+1:]
		}

		slash := strings.IndexByte(rel, '/')
		if slash < 0 {
			direct[rel] = entry
		} else {
			subdirs[rel[:slash]] = struct{}{}
		}
	}

	names := make([]string, 0, len(direct)+len(subdirs))
	for name := range direct {
		names = append(names, name)
	}
	for name := range subdirs {
		// A name cannot be both a file and a directory.
		if _, isFile := direct[name]; !isFile {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var entries []object.TreeEntry
	for _, name := range names {
		if entry, isFile := direct[name]; isFile {
			mode := entry.Mode
			if strings.TrimSpace(mode) == "" {
				mode = object.TreeModeFile
			}
			entries = append(entries, object.TreeEntry{
				Name:     name,
				IsDir:    false,
				Mode:     mode,
				BlobHash: entry.BlobHash,
			})
		} else {
			childPrefix := name
			if prefix != "" {
				childPrefix = prefix + "/" + name
			}
			subHash, err := r.buildTreeDir(files, childPrefix)
			if err != nil {
				return "", fmt.Errorf("build tree %q: %w", childPrefix, err)
			}
			entries = append(entries, object.TreeEntry{
				Name:        name,
				IsDir:       true,
				Mode:        object.TreeModeDir,
				SubtreeHash: subHash,
			})
		}
	}

	treeObj := &object.TreeObj{Entries: entries}
	h, err := r.Store.WriteTree(treeObj)
	if err != nil {
		return "", fmt.Errorf("write tree (prefix=%q): %w", prefix, err)
	}
	return h, nil
}

// EmptyTree writes (or re-uses) the tree object with no entries and
// returns its hash.
func (r *Repo) EmptyTree() (object.Hash, error) {
	return r.Store.WriteTree(&object.TreeObj{})
}

// FlattenTree walks a tree object recursively, returning all file entries
// with their full slash-separated paths.
func (r *Repo) FlattenTree(h object.Hash) ([]TreeFileEntry, error) {
	return r.flattenTreeRec(h, "")
}

func (r *Repo) flattenTreeRec(h object.Hash, prefix string) ([]TreeFileEntry, error) {
	treeObj, err := r.Store.ReadTree(h)
	if err != nil {
		return nil, fmt.Errorf("flatten tree: read %s: %w", h, err)
	}

	var result []TreeFileEntry
	for _, entry := range treeObj.Entries {
		fullPath := entry.Name
		if prefix != "" {
			fullPath = path.Join(prefix, entry.Name)
		}

		if entry.IsDir {
			sub, err := r.flattenTreeRec(entry.SubtreeHash, fullPath)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
		} else {
			result = append(result, TreeFileEntry{
				Path:     fullPath,
				BlobHash: entry.BlobHash,
				Mode:     entry.Mode,
			})
		}
	}
	return result, nil
}
