package repo

import "errors"

// Error taxonomy for graph and history operations. All of these are
// recoverable values for the caller to act on; none abort the process.
var (
	// ErrUnknownRef reports that a named reference does not exist.
	ErrUnknownRef = errors.New("unknown ref")

	// ErrRefCASMismatch reports a compare-and-swap race on a reference:
	// the current value did not match the expected old value. The caller
	// should re-read and retry.
	ErrRefCASMismatch = errors.New("ref compare-and-swap mismatch")

	// ErrDanglingReference reports an attempt to create a commit naming
	// a tree or parent that is not present in the object store. This is
	// a caller bug and is never auto-repaired.
	ErrDanglingReference = errors.New("dangling object reference")

	// ErrUnrelatedHistories reports that two commits share no common
	// ancestor.
	ErrUnrelatedHistories = errors.New("unrelated histories")

	// ErrInconclusiveBisect reports a bisection verdict that contradicts
	// earlier verdicts. The bisection must be restarted.
	ErrInconclusiveBisect = errors.New("inconclusive bisect verdict")

	// ErrNoRebase reports continue/abort without a suspended rebase.
	ErrNoRebase = errors.New("no rebase in progress")

	// ErrRebaseConflicts reports that a rebase step stopped on conflicts
	// and is suspended awaiting resolution or abort.
	ErrRebaseConflicts = errors.New("rebase stopped on conflicts")
)
