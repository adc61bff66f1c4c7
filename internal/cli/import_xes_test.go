package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/oced/internal/store"
)

const incidentLog = `<?xml version="1.0" encoding="UTF-8"?>
<log xes.version="1.0" xmlns="http://www.xes-standard.org/">
  <trace>
    <string key="concept:name" value="A"/>
    <event>
      <string key="concept:name" value="start"/>
      <date key="time:timestamp" value="2024-05-01T09:00:00Z"/>
      <int key="priority" value="2"/>
    </event>
    <event>
      <string key="concept:name" value="resolve"/>
      <date key="time:timestamp" value="2024-05-01T11:30:00Z"/>
    </event>
  </trace>
  <trace>
    <string key="concept:name" value="B"/>
    <event>
      <string key="concept:name" value="start"/>
      <date key="time:timestamp" value="2024-05-01T10:00:00Z"/>
    </event>
  </trace>
</log>
`

func writeLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "incidents.xes")
	writeFile(t, path, incidentLog)
	return path
}

func TestImportXES(t *testing.T) {
	out, err := execute(t, NewRootCommand(), "import-xes", "--case-type", "incident", fixtureModel, writeLog(t))
	require.NoError(t, err)

	var doc struct {
		Time    []string         `yaml:"time"`
		Objects []map[string]any `yaml:"objects"`
		Events  []map[string]any `yaml:"events"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, []string{"origin", "2024-05-01T09:00:00Z", "2024-05-01T10:00:00Z", "2024-05-01T11:30:00Z"}, doc.Time)
	require.Len(t, doc.Objects, 2)
	assert.Equal(t, "case_A", doc.Objects[0]["id"])
	assert.Equal(t, "incident", doc.Objects[0]["type"])
	require.Len(t, doc.Events, 3)
	assert.Equal(t, "start", doc.Events[0]["type"])
	assert.Equal(t, "resolve", doc.Events[1]["type"])
}

func TestImportXESJSON(t *testing.T) {
	out, err := execute(t, NewRootCommand(), "--format", "json", "import-xes", "--case-type", "incident", fixtureModel, writeLog(t))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Len(t, doc["observes"], 3)
}

func TestImportXESThenValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imported.yaml")
	_, err := execute(t, NewRootCommand(), "import-xes", "--case-type", "incident", "-o", path, fixtureModel, writeLog(t))
	require.NoError(t, err)
	require.FileExists(t, path)

	// Case B starts but never resolves.
	out, err := execute(t, NewRootCommand(), "validate", fixtureModel, path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "V007")
	assert.Contains(t, out, "case_B")
}

func TestImportXESPersists(t *testing.T) {
	db := filepath.Join(t.TempDir(), "oced.db")
	_, err := execute(t, NewRootCommand(), "--db", db, "import-xes", "--case-type", "incident", fixtureModel, writeLog(t))
	require.NoError(t, err)

	st, err := store.Open(db)
	require.NoError(t, err)
	infos, err := st.ListInstances(context.Background())
	require.NoError(t, err)
	require.NoError(t, st.Close())
	require.Len(t, infos, 1)
	assert.Equal(t, store.SourceXES, infos[0].Source)
	assert.Equal(t, 2, infos[0].Objects)
	assert.Equal(t, 3, infos[0].Events)

	out, err := execute(t, NewRootCommand(), "analyze", db, infos[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "1× start → resolve")
	assert.Contains(t, out, "1× start\n")
}

func TestImportXESErrors(t *testing.T) {
	log := writeLog(t)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"undeclared default case type", []string{"import-xes", fixtureModel, log}, ErrCodeSchemaMismatch},
		{"undeclared relation", []string{"import-xes", "--case-type", "incident", "--relation", "owns", fixtureModel, log}, ErrCodeSchemaMismatch},
		{"missing log", []string{"import-xes", "--case-type", "incident", fixtureModel, filepath.Join(t.TempDir(), "absent.xes")}, ErrCodeNotFound},
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
