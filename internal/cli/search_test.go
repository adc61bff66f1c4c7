package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/oced/internal/search"
	"github.com/roach88/oced/internal/store"
)

func TestSearchFindsWitness(t *testing.T) {
	out, err := execute(t, NewRootCommand(), "search", fixtureModel, "resolved_incident")
	require.NoError(t, err)
	assert.Contains(t, out, "witness found: resolved_incident")
	assert.Contains(t, out, "bound 1,2,2,3")
	assert.Contains(t, out, "resolve at")
}

func TestSearchNoneWithinBound(t *testing.T) {
	out, err := execute(t, NewRootCommand(), "search", fixtureModel, "crowded")
	require.Error(t, err)
	assert.Equal(t, ExitNoneWithinBound, GetExitCode(err))
	assert.Contains(t, out, "no witness within bound")
	assert.Contains(t, out, "the whole space within the bound was explored")
}

func TestSearchExplicitBound(t *testing.T) {
	_, err := execute(t, NewRootCommand(), "search", "--bound", "1,3,3,4", fixtureModel, "crowded")
	require.NoError(t, err)
}

func TestCheckAssertionHolds(t *testing.T) {
	out, err := execute(t, NewRootCommand(), "check", fixtureModel, "no_orphan_events")
	require.NoError(t, err)
	assert.Contains(t, out, "no counterexample within bound")
}

func TestCheckFindsCounterexample(t *testing.T) {
	out, err := execute(t, NewRootCommand(), "check", fixtureModel, "never_commented")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), `counterexample to "never_commented" found`)
	assert.Contains(t, out, "counterexample found: never_commented")
	assert.Contains(t, out, "comment at")
}

func TestSearchJSON(t *testing.T) {
	out, err := execute(t, NewRootCommand(), "--format", "json", "search", fixtureModel, "resolved_incident")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "found", data["status"])
	assert.Equal(t, "witness", data["kind"])
	assert.Equal(t, "resolved_incident", data["goal"])
	assert.NotEmpty(t, data["run_id"])
	assert.NotEmpty(t, data["instance_hash"])
	assert.NotNil(t, data["instance"])
}

func TestSearchErrors(t *testing.T) {
	noScope := writeModel(t, `package m
schema: {object_types: ["a"], event_types: ["e"], relation_types: ["r"]}
pred: anything: "true"
`)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"unknown predicate", []string{"search", fixtureModel, "missing"}, ErrCodeUnknownGoal},
		{"assertion searched as predicate", []string{"search", fixtureModel, "never_commented"}, ErrCodeUnknownGoal},
		{"predicate checked as assertion", []string{"check", fixtureModel, "crowded"}, ErrCodeUnknownGoal},
		{"short bound", []string{"search", "--bound", "1,2", fixtureModel, "crowded"}, ErrCodeInvalidBound},
		{"non-integer bound", []string{"search", "--bound", "1,x,1,1", fixtureModel, "crowded"}, ErrCodeInvalidBound},
		{"negative bound", []string{"check", "--bound", "1,-1,1,1", fixtureModel, "never_commented"}, ErrCodeInvalidBound},
		{"no bound and no scope", []string{"search", noScope, "anything"}, ErrCodeInvalidBound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewRootCommand(), append([]string{"--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestSearchStepBudgetExhausted(t *testing.T) {
	out, err := execute(t, NewRootCommand(), "--step-budget", "1", "search", "--bound", "2,3,4,4", fixtureModel, "crowded")
	require.Error(t, err)
	assert.Equal(t, ExitResourceExhausted, GetExitCode(err))
	assert.Contains(t, out, "resource exhausted")
	assert.Contains(t, out, "stopped early: step budget of 1 exhausted")
}

func TestSearchWritesInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "witness.yaml")

	_, err := execute(t, NewRootCommand(), "search", "-o", path, fixtureModel, "resolved_incident")
	require.NoError(t, err)
	require.FileExists(t, path)

	// Witnesses satisfy every invariant, so the written file validates.
	out, err := execute(t, NewRootCommand(), "validate", fixtureModel, path)
	require.NoError(t, err)
	assert.Contains(t, out, "valid: no violations")
}

func TestCheckWritesCounterexample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counterexample.json")

	_, err := execute(t, NewRootCommand(), "check", "-o", path, fixtureModel, "never_commented")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	require.FileExists(t, path)

	_, err = execute(t, NewRootCommand(), "validate", fixtureModel, path)
	require.NoError(t, err)
}

func TestSearchDeterministicAcrossWorkers(t *testing.T) {
	var hashes []string
	for _, workers := range []string{"1", "4"} {
		out, err := execute(t, NewRootCommand(), "--format", "json", "--workers", workers, "search", fixtureModel, "resolved_incident")
		require.NoError(t, err)

		var resp CLIResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		hashes = append(hashes, data["instance_hash"].(string))
	}
	assert.Equal(t, hashes[0], hashes[1])
}

func TestSearchPersistsRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "oced.db")

	_, err := execute(t, NewRootCommand(), "--db", db, "search", fixtureModel, "resolved_incident")
	require.NoError(t, err)
	_, err = execute(t, NewRootCommand(), "--db", db, "search", fixtureModel, "crowded")
	require.Error(t, err)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "resolved_incident", runs[0].Goal)
	assert.Equal(t, string(search.StatusFound), runs[0].Status)
	assert.NotEmpty(t, runs[0].InstanceID)
	assert.Equal(t, "crowded", runs[1].Goal)
	assert.Equal(t, string(search.StatusNoneWithinBound), runs[1].Status)
	assert.Empty(t, runs[1].InstanceID)

	infos, err := st.ListInstances(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, store.SourceSearch, infos[0].Source)
}
