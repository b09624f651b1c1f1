package repo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stratavcs/strata/pkg/object"
)

const bisectStateFile = "bisect_state.json"

// BisectVerdict is a caller judgment about one commit.
type BisectVerdict string

const (
	BisectGood BisectVerdict = "good"
	BisectBad  BisectVerdict = "bad"
)

// Bisection is a binary search for the first bad commit over the
// first-parent chain between a known-good and a known-bad commit.
// Side branches merged into the chain are treated as part of their
// merge commit; the search never descends into them.
//
// The exported fields are the complete session state, serialized to
// .strata/bisect_state.json so a session survives across process runs.
type Bisection struct {
	repo *Repo

	// Chain is the first-parent path, index 0 the known-good commit and
	// the last element the known-bad one.
	Chain []object.Hash `json:"chain"`
	// GoodMax is the highest index verified good; BadMin the lowest
	// index verified bad. The first bad commit lies in (GoodMax, BadMin].
	GoodMax int `json:"good_max"`
	BadMin  int `json:"bad_min"`
}

func (r *Repo) bisectStatePath() string {
	return filepath.Join(r.StrataDir, bisectStateFile)
}

// StartBisect begins a bisection session. good must be reachable from
// bad along first-parent links; the session is persisted immediately.
func (r *Repo) StartBisect(good, bad object.Hash) (*Bisection, error) {
	if good == bad {
		return nil, fmt.Errorf("bisect: good and bad are the same commit %s", good)
	}
	if r.BisectInProgress() {
		return nil, fmt.Errorf("bisect: another session is in progress (reset it first)")
	}

	chain, err := r.firstParentChainTo(bad, good)
	if err != nil {
		return nil, fmt.Errorf("bisect: %w", err)
	}
	chain = append([]object.Hash{good}, chain...)

	b := &Bisection{
		repo:    r,
		Chain:   chain,
		GoodMax: 0,
		BadMin:  len(chain) - 1,
	}
	if err := b.save(); err != nil {
		return nil, err
	}
	return b, nil
}

// LoadBisect resumes the persisted session.
func (r *Repo) LoadBisect() (*Bisection, error) {
	data, err := os.ReadFile(r.bisectStatePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("bisect: no session in progress")
		}
		return nil, fmt.Errorf("bisect: read state: %w", err)
	}
	b := &Bisection{repo: r}
	if err := json.Unmarshal(data, b); err != nil {
		return nil, fmt.Errorf("bisect: parse state: %w", err)
	}
	return b, nil
}

// BisectInProgress reports whether a persisted session exists.
func (r *Repo) BisectInProgress() bool {
	_, err := os.Stat(r.bisectStatePath())
	return err == nil
}

// ResetBisect discards the persisted session, if any.
func (r *Repo) ResetBisect() error {
	if err := os.Remove(r.bisectStatePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("bisect: reset: %w", err)
	}
	return nil
}

func (b *Bisection) save() error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("bisect: encode state: %w", err)
	}
	path := b.repo.bisectStatePath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("bisect: write state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("bisect: write state: %w", err)
	}
	return nil
}

// Done reports whether the search has narrowed to a single commit.
func (b *Bisection) Done() bool {
	return b.BadMin-b.GoodMax <= 1
}

// Next returns the midpoint commit to test, or ("", true) when the
// search is done.
func (b *Bisection) Next() (object.Hash, bool) {
	if b.Done() {
		return "", true
	}
	mid := (b.GoodMax + b.BadMin) / 2
	return b.Chain[mid], false
}

// Remaining returns the number of candidate commits still in play.
func (b *Bisection) Remaining() int {
	n := b.BadMin - b.GoodMax
	if n < 0 {
		return 0
	}
	return n
}

// Mark records a verdict for a commit on the chain and persists the
// narrowed bracket. A verdict that contradicts an earlier one (a commit
// marked good at or above a known-bad point, or bad at or below a
// known-good point) fails wrapping ErrInconclusiveBisect: the defect is
// not monotonic along this chain and binary search cannot locate it.
func (b *Bisection) Mark(h object.Hash, verdict BisectVerdict) error {
	idx := -1
	for i, c := range b.Chain {
		if c == h {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("bisect: commit %s is not on the bisection chain", h)
	}

	switch verdict {
	case BisectGood:
		if idx >= b.BadMin {
			return fmt.Errorf(
				"bisect: %s marked good but %s at or below it is bad: %w",
				h, b.Chain[b.BadMin], ErrInconclusiveBisect,
			)
		}
		if idx > b.GoodMax {
			b.GoodMax = idx
		}
	case BisectBad:
		if idx <= b.GoodMax {
			return fmt.Errorf(
				"bisect: %s marked bad but %s at or above it is good: %w",
				h, b.Chain[b.GoodMax], ErrInconclusiveBisect,
			)
		}
		if idx < b.BadMin {
			b.BadMin = idx
		}
	default:
		return fmt.Errorf("bisect: unknown verdict %q", verdict)
	}

	return b.save()
}

// FirstBad returns the first bad commit once the search is done.
func (b *Bisection) FirstBad() (object.Hash, error) {
	if !b.Done() {
		return "", fmt.Errorf("bisect: search not finished, %d candidates remain", b.Remaining())
	}
	return b.Chain[b.BadMin], nil
}
