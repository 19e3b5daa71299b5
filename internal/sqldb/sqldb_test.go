package sqldb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlpoll/internal/query"
)

func TestOpenSQLite(t *testing.T) {
	opt := DefaultOptions()
	opt.Driver = "sqlite3"
	opt.DSN = filepath.Join(t.TempDir(), "src.db")

	db, err := Open(context.Background(), opt)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	assert.Equal(t, query.DialectQuestion, db.Dialect())
	assert.Equal(t, "sqlite3", db.Driver())
	require.NoError(t, db.Ping(context.Background()))

	rows, err := db.QueryContext(context.Background(), "SELECT 1")
	require.NoError(t, err)
	require.NoError(t, rows.Close())
}

func TestOpenValidation(t *testing.T) {
	tests := []struct {
		name string
		opt  Options
		msg  string
	}{
		{"no driver", Options{DSN: "x"}, "driver is required"},
		{"no dsn", Options{Driver: "sqlite3"}, "dsn is required"},
		{"unknown driver", Options{Driver: "oracle", DSN: "x"}, "no placeholder dialect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.opt)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestOpenPingFailure(t *testing.T) {
	opt := DefaultOptions()
	opt.Driver = "sqlite3"
	// mode=ro on a file that does not exist fails at first connect.
	opt.DSN = "file:" + filepath.Join(t.TempDir(), "missing.db") + "?mode=ro"

	_, err := Open(context.Background(), opt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping sqlite3")
}

func TestWrap(t *testing.T) {
	raw, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "w.db"))
	require.NoError(t, err)

	db, err := Wrap(raw, "pgx")
	require.NoError(t, err)
	assert.Equal(t, query.DialectDollar, db.Dialect())
	require.NoError(t, db.Close())

	_, err = Wrap(raw, "nope")
	assert.Error(t, err)
}
