package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// smallHashingConfig keeps test vectors short: 4 tables of 1 min-hash.
const smallHashingConfig = `hashing:
  number_of_lsh_tables: 4
  number_of_min_hashes_per_table: 1
`

// isolate points HOME and XDG_CONFIG_HOME at a temp dir and returns a
// project directory holding a small-hashing project config.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, name := range []string{"FPSEARCH_BACKEND", "FPSEARCH_INDEX_PATH", "FPSEARCH_TRACKS_DB", "FPSEARCH_LOG_LEVEL"} {
		t.Setenv(name, "")
	}

	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, ".fpsearch.yaml"), []byte(smallHashingConfig), 0644))
	return project
}

// runCLI executes the root command with JSON output against project.
func runCLI(t *testing.T, project string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--format", "json", "--config-dir", project}, args...))
	err := cmd.Execute()
	return buf.String(), err
}
