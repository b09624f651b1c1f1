package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stratavcs/strata/pkg/object"
)

const (
	refLockRetryDelay = 5 * time.Millisecond
	refLockWaitLimit  = 2 * time.Second
)

// RefUpdateReflogError marks the awkward state where the ref file update
// succeeded but the reflog append did not.
type RefUpdateReflogError struct {
	Ref     string
	OldHash object.Hash
	NewHash object.Hash
	Err     error
}

func (e *RefUpdateReflogError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf(
		"update ref %q: ref updated but reflog append failed (old=%s new=%s): %v",
		e.Ref, e.OldHash, e.NewHash, e.Err,
	)
}

func (e *RefUpdateReflogError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Init creates a new strata repository at path. It creates the .strata/
// directory structure: HEAD, objects/, refs/heads/, refs/tags/, and the
// reflog root. Returns an error if .strata/ already exists.
func Init(path string) (*Repo, error) {
	strataDir := filepath.Join(path, ".strata")

	if _, err := os.Stat(strataDir); err == nil {
		return nil, fmt.Errorf("init: repository already exists at %s", strataDir)
	}

	dirs := []string{
		filepath.Join(strataDir, "objects"),
		filepath.Join(strataDir, "refs", "heads"),
		filepath.Join(strataDir, "refs", "tags"),
		filepath.Join(strataDir, "logs", "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	headPath := filepath.Join(strataDir, "HEAD")
	if err := os.WriteFile(headPath, []byte("ref: refs/heads/main\n"), 0o644); err != nil {
		return nil, fmt.Errorf("init: write HEAD: %w", err)
	}

	return &Repo{
		RootDir:   path,
		StrataDir: strataDir,
		Store:     object.NewStore(strataDir),
	}, nil
}

// Open searches upward from path for a .strata/ directory and opens the
// repository. Returns an error if none is found.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		strataDir := filepath.Join(cur, ".strata")
		info, err := os.Stat(strataDir)
		if err == nil && info.IsDir() {
			return &Repo{
				RootDir:   cur,
				StrataDir: strataDir,
				Store:     object.NewStore(strataDir),
			}, nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, fmt.Errorf("open: not a strata repository (or any parent up to /)")
		}
		cur = parent
	}
}

// Head reads .strata/HEAD. If the content starts with "ref: ", it returns
// the ref path (e.g. "refs/heads/main"). Otherwise it returns the raw
// content as a detached hash string.
func (r *Repo) Head() (string, error) {
	data, err := os.ReadFile(filepath.Join(r.StrataDir, "HEAD"))
	if err != nil {
		return "", fmt.Errorf("head: %w", err)
	}
	content := strings.TrimRight(string(data), "\n")

	if strings.HasPrefix(content, "ref: ") {
		return strings.TrimPrefix(content, "ref: "), nil
	}
	return content, nil
}

// SetHead points HEAD at a branch ref (symbolic) or, when detach is true,
// directly at a commit hash.
func (r *Repo) SetHead(target string, detach bool) error {
	var content string
	if detach {
		content = strings.TrimSpace(target) + "\n"
	} else {
		if !strings.HasPrefix(target, "refs/") {
			target = "refs/heads/" + target
		}
		content = "ref: " + target + "\n"
	}
	if err := os.WriteFile(filepath.Join(r.StrataDir, "HEAD"), []byte(content), 0o644); err != nil {
		return fmt.Errorf("set head: %w", err)
	}
	return nil
}

// ResolveRef resolves a ref name to an object hash.
//
// Resolution order:
//  1. "HEAD": read HEAD; if symbolic, resolve the target ref.
//  2. Names starting with "refs/": read .strata/<name>.
//  3. Otherwise try "refs/heads/<name>", then "refs/tags/<name>".
//
// Unknown refs return an error wrapping ErrUnknownRef. The resolved hash
// must name an object present in the store; a reference to a missing
// object is corruption, not a normal state.
func (r *Repo) ResolveRef(name string) (object.Hash, error) {
	if name == "HEAD" {
		head, err := r.Head()
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(head, "refs/") {
			return r.ResolveRef(head)
		}
		// Detached HEAD: the value is a hash.
		return object.Hash(head), nil
	}

	var candidates []string
	if strings.HasPrefix(name, "refs/") {
		candidates = []string{name}
	} else {
		candidates = []string{"refs/heads/" + name, "refs/tags/" + name}
	}

	for _, refName := range candidates {
		data, err := os.ReadFile(filepath.Join(r.StrataDir, filepath.FromSlash(refName)))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", fmt.Errorf("resolve ref %q: %w", name, err)
		}
		h := object.Hash(strings.TrimRight(string(data), "\n"))
		if h != "" && !r.Store.Has(h) {
			return "", fmt.Errorf("resolve ref %q: target %s missing from store: %w", name, h, object.ErrCorrupt)
		}
		return h, nil
	}
	return "", fmt.Errorf("resolve ref %q: %w", name, ErrUnknownRef)
}

// ResolveCommit resolves a ref or hash to a commit hash, peeling annotated
// tag objects to their target commit.
func (r *Repo) ResolveCommit(name string) (object.Hash, error) {
	h, err := r.ResolveRef(name)
	if err != nil {
		// Maybe it's a raw hash.
		if len(name) == 64 && r.Store.Has(object.Hash(name)) {
			h = object.Hash(name)
		} else {
			return "", err
		}
	}
	for {
		objType, data, err := r.Store.Read(h)
		if err != nil {
			return "", err
		}
		if objType != object.TypeTag {
			return h, nil
		}
		tag, err := object.UnmarshalTag(data)
		if err != nil {
			return "", err
		}
		h = tag.TargetHash
	}
}

// UpdateRef writes a hash to the named ref file under .strata/ without a
// compare-and-swap guard (force update).
func (r *Repo) UpdateRef(name string, h object.Hash) error {
	return r.UpdateRefCAS(name, h)
}

// UpdateRefCAS writes a hash to the named ref file under .strata/ using
// lockfile + rename atomic semantics. If expectedOld is provided, the
// update only succeeds when the current ref hash matches it; otherwise it
// fails wrapping ErrRefCASMismatch so a racing caller can re-read and
// retry.
//
// Reflog append happens after the ref rename; if it fails, the ref update
// remains committed and a RefUpdateReflogError is returned.
func (r *Repo) UpdateRefCAS(name string, h object.Hash, expectedOld ...object.Hash) error {
	if len(expectedOld) > 1 {
		return fmt.Errorf("update ref %q: expected at most one old hash", name)
	}
	hasExpectedOld := len(expectedOld) == 1
	wantOldHash := object.Hash("")
	if hasExpectedOld {
		wantOldHash = expectedOld[0]
	}

	if name != "HEAD" && !strings.HasPrefix(name, "refs/") {
		name = "refs/heads/" + name
	}
	refPath := filepath.Join(r.StrataDir, filepath.FromSlash(name))

	dir := filepath.Dir(refPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("update ref %q: mkdir: %w", name, err)
	}

	lockPath := refPath + ".lock"
	lockFile, err := acquireRefLock(lockPath)
	if err != nil {
		return fmt.Errorf("update ref %q: lock: %w", name, err)
	}
	cleanupLock := true
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if cleanupLock {
			_ = os.Remove(lockPath)
		}
	}()

	oldHash, err := readRefHash(refPath)
	if err != nil {
		return fmt.Errorf("update ref %q: read old hash: %w", name, err)
	}
	if hasExpectedOld && oldHash != wantOldHash {
		return fmt.Errorf(
			"update ref %q: %w (expected %s, found %s)",
			name, ErrRefCASMismatch, wantOldHash, oldHash,
		)
	}

	if _, err := lockFile.WriteString(string(h) + "\n"); err != nil {
		return fmt.Errorf("update ref %q: write: %w", name, err)
	}
	if err := lockFile.Sync(); err != nil {
		return fmt.Errorf("update ref %q: sync: %w", name, err)
	}
	if err := lockFile.Close(); err != nil {
		lockFile = nil
		return fmt.Errorf("update ref %q: close: %w", name, err)
	}
	lockFile = nil

	if err := os.Rename(lockPath, refPath); err != nil {
		os.Remove(lockPath)
		return fmt.Errorf("update ref %q: rename: %w", name, err)
	}
	cleanupLock = false

	if err := r.appendReflog(name, oldHash, h, "update"); err != nil {
		return &RefUpdateReflogError{
			Ref:     name,
			OldHash: oldHash,
			NewHash: h,
			Err:     err,
		}
	}

	return nil
}

func acquireRefLock(lockPath string) (*os.File, error) {
	deadline := time.Now().Add(refLockWaitLimit)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if os.IsExist(err) {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("timeout waiting for lock %q", lockPath)
			}
			time.Sleep(refLockRetryDelay)
			continue
		}
		return nil, err
	}
}

func readRefHash(refPath string) (object.Hash, error) {
	data, err := os.ReadFile(refPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return object.Hash(strings.TrimSpace(string(data))), nil
}
