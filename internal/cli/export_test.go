package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/oced/internal/store"
)

// seedStore validates the resolved fixture into a fresh database and
// returns its path and the stored instance id.
func seedStore(t *testing.T) (string, string) {
	t.Helper()
	db := filepath.Join(t.TempDir(), "oced.db")
	_, err := execute(t, NewRootCommand(), "--db", db, "validate", fixtureModel, fixtureInstance("resolved.yaml"))
	require.NoError(t, err)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	infos, err := st.ListInstances(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	return db, infos[0].ID
}

func TestExportJSON(t *testing.T) {
	db, id := seedStore(t)

	out, err := execute(t, NewRootCommand(), "export", db, id)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "1", doc["format_version"])
	assert.Equal(t, []any{"T0", "T1", "T2"}, doc["time"])
	assert.Len(t, doc["objects"], 1)
	assert.Len(t, doc["events"], 2)
	assert.Len(t, doc["observes"], 2)
}

func TestExportYAMLByPrefix(t *testing.T) {
	db, id := seedStore(t)

	out, err := execute(t, NewRootCommand(), "export", "--as", "yaml", db, id[:10])
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "1", doc["format_version"])
	assert.Contains(t, out, "incident")
}

func TestExportAlloyToFile(t *testing.T) {
	db, id := seedStore(t)
	path := filepath.Join(t.TempDir(), "instance.als")

	out, err := execute(t, NewRootCommand(), "export", "--as", "alloy", "-o", path, db, id)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "module oced_instance")
	assert.Contains(t, string(data), "exactly 3 Time, exactly 1 Object, exactly 2 Event, exactly 2 Observe")
}

func TestExportRoundTripsThroughValidate(t *testing.T) {
	db, id := seedStore(t)
	path := filepath.Join(t.TempDir(), "exported.json")

	_, err := execute(t, NewRootCommand(), "export", "-o", path, db, id)
	require.NoError(t, err)

	_, err = execute(t, NewRootCommand(), "validate", fixtureModel, path)
	require.NoError(t, err)
}

func TestExportErrors(t *testing.T) {
	db, _ := seedStore(t)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"missing database", []string{"export", filepath.Join(t.TempDir(), "absent.db"), "abc"}, ErrCodeNotFound},
		{"unknown instance", []string{"export", db, "zzzz"}, ErrCodeNotFound},
		{"bad format", []string{"export", "--as", "xml", db, "abc"}, ErrCodeGeneric},
		{"analyze unknown instance", []string{"analyze", db, "zzzz"}, ErrCodeNotFound},
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

func TestAnalyzeText(t *testing.T) {
	db, id := seedStore(t)

	out, err := execute(t, NewRootCommand(), "analyze", db, id)
	require.NoError(t, err)
	assert.Contains(t, out, "Instance "+id)
	assert.Contains(t, out, "Activity frequency:")
	assert.Contains(t, out, "Temporal patterns:")
	assert.Contains(t, out, "1× start → resolve")
}

func TestAnalyzeJSON(t *testing.T) {
	db, id := seedStore(t)

	out, err := execute(t, NewRootCommand(), "--format", "json", "analyze", db, id)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, id, data["instance_id"])
	assert.Len(t, data["activity_frequency"], 2)
	assert.Len(t, data["process_variants"], 1)
}
