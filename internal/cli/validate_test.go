package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/oced/internal/store"
)

func TestValidateValidInstance(t *testing.T) {
	out, err := execute(t, NewRootCommand(), "validate", fixtureModel, fixtureInstance("resolved.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "1 object, 2 events, 2 observes")
	assert.Contains(t, out, "valid: no violations")
}

func TestValidateReportsViolations(t *testing.T) {
	out, err := execute(t, NewRootCommand(), "validate", fixtureModel, fixtureInstance("open.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 violation found")
	assert.Contains(t, out, "1 violation of 1 invariant")
	assert.Contains(t, out, "V007")
	assert.Contains(t, out, "O1")
}

func TestValidateOrphans(t *testing.T) {
	out, err := execute(t, NewRootCommand(), "validate", fixtureModel, fixtureInstance("orphans.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "2 violations of 1 invariant")
	assert.Contains(t, out, "V004")
}

func TestValidateJSON(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		out, err := execute(t, NewRootCommand(), "--format", "json", "validate", fixtureModel, fixtureInstance("resolved.yaml"))
		require.NoError(t, err)

		var resp CLIResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "ok", resp.Status)
		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, true, data["valid"])
		assert.EqualValues(t, 0, data["total"])
	})

	t.Run("violations", func(t *testing.T) {
		out, err := execute(t, NewRootCommand(), "--format", "json", "validate", fixtureModel, fixtureInstance("open.yaml"))
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "V007", resp.Error.Code)
		assert.Equal(t, "1 violation of 1 invariant", resp.Error.Message)

		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, false, data["valid"])
		groups, ok := data["groups"].([]any)
		require.True(t, ok)
		assert.Len(t, groups, 1)
	})
}

func TestValidateUndeclaredType(t *testing.T) {
	out, err := execute(t, NewRootCommand(), "--format", "json", "validate", fixtureModel, fixtureInstance("unknown_type.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSchemaMismatch, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "explode")
}

func TestValidateMalformedInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	writeFile(t, path, `format_version: "1"
time: [T0]
objects:
  - {id: O1, type: incident, created: T0}
  - {id: O1, type: incident, created: T0}
`)

	_, err := execute(t, NewRootCommand(), "validate", fixtureModel, path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeMalformedInstance)
}

func TestValidateMissingFiles(t *testing.T) {
	t.Run("instance", func(t *testing.T) {
		_, err := execute(t, NewRootCommand(), "validate", fixtureModel, filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("model", func(t *testing.T) {
		_, err := execute(t, NewRootCommand(), "validate", filepath.Join(t.TempDir(), "absent"), fixtureInstance("resolved.yaml"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), ErrCodeNotFound)
	})
}

func TestValidateMaxObservesOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.yaml")
	writeFile(t, path, `format_version: "1"
time: [T0, T1]
objects:
  - {id: U1, type: user, created: T0}
  - {id: U2, type: user, created: T0}
events:
  - {id: E1, type: comment, timestamp: T1}
observes:
  - {id: X1, object: U1, event: E1, relation: involves}
  - {id: X2, object: U2, event: E1, relation: involves}
`)

	_, err := execute(t, NewRootCommand(), "validate", fixtureModel, path)
	require.NoError(t, err)

	out, err := execute(t, NewRootCommand(), "--max-observes", "1", "validate", fixtureModel, path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "V006")
}

func TestValidatePersists(t *testing.T) {
	db := filepath.Join(t.TempDir(), "oced.db")

	_, err := execute(t, NewRootCommand(), "--db", db, "validate", fixtureModel, fixtureInstance("open.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	infos, err := st.ListInstances(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, store.SourceFile, infos[0].Source)
	assert.Equal(t, 1, infos[0].Objects)
	assert.Equal(t, 1, infos[0].Violations)
}

func TestValidatePersistsFromEnvironment(t *testing.T) {
	db := filepath.Join(t.TempDir(), "env.db")
	t.Setenv("OCED_DB", db)

	_, err := execute(t, NewRootCommand(), "validate", fixtureModel, fixtureInstance("resolved.yaml"))
	require.NoError(t, err)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	infos, err := st.ListInstances(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, 0, infos[0].Violations)
}
