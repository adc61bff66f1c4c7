package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/oced/internal/search"
)

var _ search.RunIDGenerator = (*SequentialRunIDs)(nil)

func TestSequentialRunIDs(t *testing.T) {
	g := NewSequentialRunIDs("lifecycle")
	assert.Equal(t, "lifecycle-run-1", g.Generate())
	assert.Equal(t, "lifecycle-run-2", g.Generate())
	assert.Equal(t, "lifecycle-run-3", g.Generate())
}

func TestSequentialRunIDs_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "test-run-1", NewSequentialRunIDs("").Generate())
}
