package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var (
	fixtureModels    = filepath.Join("..", "..", "testdata", "models")
	fixtureModel     = filepath.Join(fixtureModels, "incident")
	fixtureScenarios = filepath.Join("..", "..", "testdata", "scenarios")
)

func fixtureInstance(name string) string {
	return filepath.Join("..", "..", "testdata", "instances", name)
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeModel writes a single-file CUE model and returns its directory.
func writeModel(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.cue"), []byte(src), 0644))
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}
