package cli

import (
	"bytes"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// testEnv is a temporary directory holding a sqlite source, a config file,
// an output file and a state database.
type testEnv struct {
	dir    string
	source string
	config string
	output string
	state  string
}

func newTestEnv(t *testing.T, rows int) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:    dir,
		source: filepath.Join(dir, "source.db"),
		config: filepath.Join(dir, "sqlpoll.yaml"),
		output: filepath.Join(dir, "out.jsonl"),
		state:  filepath.Join(dir, "state.db"),
	}

	db, err := sql.Open("sqlite3", env.source)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`CREATE TABLE items (ID INTEGER PRIMARY KEY, Name TEXT)`)
	require.NoError(t, err)
	env.insert(t, db, 1, rows)
	return env
}

func (e *testEnv) insert(t *testing.T, db *sql.DB, from, to int) {
	t.Helper()
	for i := from; i <= to; i++ {
		_, err := db.Exec(`INSERT INTO items (ID, Name) VALUES (?, ?)`, i, fmt.Sprintf("item-%d", i))
		require.NoError(t, err)
	}
}

func (e *testEnv) addRows(t *testing.T, from, to int) {
	t.Helper()
	db, err := sql.Open("sqlite3", e.source)
	require.NoError(t, err)
	defer db.Close()
	e.insert(t, db, from, to)
}

// writeConfig writes a config polling items; extra is appended verbatim.
func (e *testEnv) writeConfig(t *testing.T, statement, extra string) {
	t.Helper()
	content := fmt.Sprintf(`instance: items
statement: %q
parameters:
  last_max_id: 0
connection:
  driver: sqlite3
  dsn: %s
output:
  path: %s
state:
  path: %s
log:
  level: debug
%s`, statement, e.source, e.output, e.state, extra)
	require.NoError(t, os.WriteFile(e.config, []byte(content), 0o644))
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	return executeCommand(cmd, args...)
}

func executeCommand(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
