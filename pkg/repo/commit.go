package repo

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stratavcs/strata/pkg/object"
)

// CommitSigner signs canonical commit payload bytes and returns an encoded
// signature string to be persisted in CommitObj.Signature.
type CommitSigner func(payload []byte) (string, error)

// CreateCommit validates that the tree and every parent already exist in
// the object store, then stores a new commit object and returns its hash.
// A missing tree or parent fails wrapping ErrDanglingReference: commits
// may only name existing objects, which is what makes graph cycles
// structurally impossible.
func (r *Repo) CreateCommit(treeHash object.Hash, parents []object.Hash, author, message string) (object.Hash, error) {
	return r.CreateCommitSigned(treeHash, parents, author, message, nil)
}

// CreateCommitSigned is CreateCommit with an optional signing hook. The
// signature covers the canonical payload with the signature field empty.
func (r *Repo) CreateCommitSigned(treeHash object.Hash, parents []object.Hash, author, message string, signer CommitSigner) (object.Hash, error) {
	if !r.Store.Has(treeHash) {
		return "", fmt.Errorf("create commit: tree %s: %w", treeHash, ErrDanglingReference)
	}
	for _, p := range parents {
		if !r.Store.Has(p) {
			return "", fmt.Errorf("create commit: parent %s: %w", p, ErrDanglingReference)
		}
	}

	commitObj := &object.CommitObj{
		TreeHash:  treeHash,
		Parents:   parents,
		Author:    author,
		Timestamp: time.Now().Unix(),
		Message:   message,
	}
	if signer != nil {
		payload := object.CommitSigningPayload(commitObj)
		signature, err := signer(payload)
		if err != nil {
			return "", fmt.Errorf("create commit: sign: %w", err)
		}
		commitObj.Signature = signature
	}

	commitHash, err := r.Store.WriteCommit(commitObj)
	if err != nil {
		return "", fmt.Errorf("create commit: write: %w", err)
	}
	return commitHash, nil
}

// CommitToHead creates a commit whose parent is the current HEAD and
// advances the current branch (or detached HEAD) to it with a
// compare-and-swap against the old value.
func (r *Repo) CommitToHead(treeHash object.Hash, author, message string, signer CommitSigner) (object.Hash, error) {
	var parents []object.Hash
	parentHash, err := r.ResolveRef("HEAD")
	if err == nil && parentHash != "" {
		parents = append(parents, parentHash)
	}
	// Failed HEAD resolution means the first commit on an unborn branch.

	commitHash, err := r.CreateCommitSigned(treeHash, parents, author, message, signer)
	if err != nil {
		return "", err
	}

	head, err := r.Head()
	if err != nil {
		return "", fmt.Errorf("commit: read HEAD: %w", err)
	}

	if strings.HasPrefix(head, "refs/") {
		var updateErr error
		if parentHash == "" {
			updateErr = r.UpdateRefCAS(head, commitHash, object.Hash(""))
		} else {
			updateErr = r.UpdateRefCAS(head, commitHash, parentHash)
		}
		if updateErr != nil {
			return "", fmt.Errorf("commit: update ref %q: %w", head, updateErr)
		}
	} else {
		if err := r.UpdateRefCAS("HEAD", commitHash, object.Hash(strings.TrimSpace(head))); err != nil {
			return "", fmt.Errorf("commit: update detached HEAD: %w", err)
		}
	}

	return commitHash, nil
}

// LogEntry pairs a commit with its hash.
type LogEntry struct {
	Hash   object.Hash
	Commit *object.CommitObj
}

// Log walks the commit history starting from the given hash, following
// first-parent links, returning up to limit commits newest first.
// limit <= 0 means unlimited.
func (r *Repo) Log(start object.Hash, limit int) ([]LogEntry, error) {
	var entries []LogEntry
	current := start

	for limit <= 0 || len(entries) < limit {
		c, err := r.Store.ReadCommit(current)
		if err != nil {
			if errors.Is(err, object.ErrNotFound) {
				break
			}
			return nil, fmt.Errorf("log: read commit %s: %w", current, err)
		}
		entries = append(entries, LogEntry{Hash: current, Commit: c})

		if len(c.Parents) == 0 {
			break
		}
		current = c.Parents[0]
	}

	return entries, nil
}
