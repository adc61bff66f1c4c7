package testutil

import (
	"strconv"
	"sync"
)

// SequentialRunIDs generates search run ids "<prefix>-run-1",
// "<prefix>-run-2", ... for reproducible traces and stored runs.
//
// Unlike search.FixedGenerator it never runs out, so a scenario may start
// any number of searches.
//
// Implements search.RunIDGenerator. Safe for concurrent use.
type SequentialRunIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialRunIDs creates a generator. An empty prefix becomes "test".
func NewSequentialRunIDs(prefix string) *SequentialRunIDs {
	if prefix == "" {
		prefix = "test"
	}
	return &SequentialRunIDs{prefix: prefix}
}

// Generate returns the next run id.
func (g *SequentialRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.prefix + "-run-" + strconv.Itoa(g.n)
}
