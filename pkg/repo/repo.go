package repo

import (
	"sync"

	"github.com/stratavcs/strata/pkg/object"
)

// Repo represents an opened strata repository.
type Repo struct {
	RootDir   string        // working directory root
	StrataDir string        // .strata/ directory
	Store     *object.Store // content-addressed object store

	graphStateOnce sync.Once
	graphState     *graphTraversalState
}

func (r *Repo) getGraphState() *graphTraversalState {
	r.graphStateOnce.Do(func() {
		r.graphState = newGraphTraversalState()
	})
	return r.graphState
}
