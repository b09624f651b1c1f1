package diff

import (
	"fmt"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// UnifiedOptions controls unified patch rendering.
type UnifiedOptions struct {
	// Context is the number of context lines per hunk. 0 means 3.
	Context int
	// NoPrefix suppresses the "a/" and "b/" path prefixes.
	NoPrefix bool
}

// Unified renders a classic unified patch (---/+++ headers, @@ hunks)
// between two revisions of the file at path.
func Unified(path string, before, after []byte, opts UnifiedOptions) (string, error) {
	ctx := opts.Context
	if ctx <= 0 {
		ctx = 3
	}

	fromFile := path
	toFile := path
	if !opts.NoPrefix {
		fromFile = "a/" + path
		toFile = "b/" + path
	}

	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  ctx,
	}
	out, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", fmt.Errorf("unified diff %q: %w", path, err)
	}
	return out, nil
}
