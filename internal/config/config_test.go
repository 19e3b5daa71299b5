package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlpoll/internal/emit"
	"github.com/roach88/sqlpoll/internal/value"
)

const sampleConfig = `
instance: orders
statement: "SELECT id, updated_at FROM orders WHERE id > :last_max_id"
parameters:
  last_max_id: 0
  minAmount: 12.5
  region: eu
schedule: "*/5 * * * *"
page_size: 500
connection:
  driver: pgx
  dsn: postgres://localhost/shop
  ping_timeout: 2s
  validate_connection: true
state:
  path: state.db
decorate:
  type: order
  tags: [poll, orders]
  add_fields:
    source: shop
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sqlpoll.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "orders", cfg.Instance)
	assert.Equal(t, "*/5 * * * *", cfg.Schedule)
	assert.Equal(t, 500, cfg.PageSize)
	assert.Equal(t, "pgx", cfg.Connection.Driver)
	assert.Equal(t, 2*time.Second, cfg.Connection.PingTimeout)
	assert.True(t, cfg.Connection.ValidateConnection)
	assert.Equal(t, "state.db", cfg.State.Path)
	assert.Equal(t, []string{"poll", "orders"}, cfg.Decorate.Tags)
	assert.Equal(t, map[string]string{"source": "shop"}, cfg.Decorate.AddFields)
	require.NoError(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "statement: SELECT 1\n"))
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.Instance)
	assert.True(t, cfg.LowercaseColumnNames)
	assert.Equal(t, 4, cfg.Connection.MaxOpenConns)
	assert.Equal(t, 5*time.Second, cfg.Connection.PingTimeout)
	assert.True(t, cfg.State.RecordLastRun)
	assert.True(t, cfg.State.History)
	assert.False(t, cfg.State.CleanRun)
	assert.False(t, cfg.State.Persistent())
	assert.Equal(t, "-", cfg.Output.Path)
	assert.Equal(t, 256, cfg.Output.QueueSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Schedule)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)

	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SQLPOLL_CONNECTION_DSN", "file:env.db")
	t.Setenv("SQLPOLL_SCHEDULE", "@hourly")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "file:env.db", cfg.Connection.DSN)
	assert.Equal(t, "@hourly", cfg.Schedule)
}

func TestParamsKeepCase(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	params, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, value.Int(0), params["last_max_id"])
	assert.Equal(t, value.Float(12.5), params["minAmount"])
	assert.Equal(t, value.String("eu"), params["region"])
	assert.NotContains(t, params, "minamount")
}

func TestParamsRejectNested(t *testing.T) {
	cfg := &Config{Parameters: map[string]any{"bad": map[string]any{"x": 1}}}
	_, err := cfg.Params()
	require.Error(t, err)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "parameters.bad", ce.Field)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Instance:   "x",
			Statement:  "SELECT 1",
			Connection: Connection{Driver: "sqlite3", DSN: "file:x.db"},
			Output:     Output{Path: "-", QueueSize: 1},
			Log:        Log{Level: "info", Format: "text"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing statement", func(c *Config) { c.Statement = "  " }, "statement"},
		{"bad schedule", func(c *Config) { c.Schedule = "every tuesday" }, "schedule"},
		{"negative page size", func(c *Config) { c.PageSize = -1 }, "page_size"},
		{"missing driver", func(c *Config) { c.Connection.Driver = "" }, "connection.driver"},
		{"unknown driver", func(c *Config) { c.Connection.Driver = "oracle" }, "connection.driver"},
		{"missing dsn", func(c *Config) { c.Connection.DSN = "" }, "connection.dsn"},
		{"zero queue", func(c *Config) { c.Output.QueueSize = 0 }, "output.queue_size"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"missing instance", func(c *Config) { c.Instance = "" }, "instance"},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := &Config{Output: Output{QueueSize: 1, Path: "-"}, Log: Log{Level: "info", Format: "text"}}
	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "instance")
	assert.Contains(t, msg, "statement")
	assert.Contains(t, msg, "connection.driver")
	assert.Contains(t, msg, "connection.dsn")
}

func TestValidateRejectsUnregisteredDriver(t *testing.T) {
	for _, driver := range []string{"postgres", "sqlite", "mysql"} {
		t.Run(driver, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, sampleConfig))
			require.NoError(t, err)
			cfg.Connection.Driver = driver

			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "connection.driver")
			assert.Contains(t, err.Error(), "unsupported driver")
		})
	}
}

func TestParseStatementUsesDriverDialect(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	cfg.Statement = "SELECT * FROM t WHERE id = ANY(ARRAY[:a, :b]) AND [x] = :c"

	stmt, err := cfg.ParseStatement()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, stmt.Names(), "pgx brackets are arrays")

	cfg.Connection.Driver = "sqlserver"
	stmt, err = cfg.ParseStatement()
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, stmt.Names(), "sqlserver brackets quote identifiers")
}

func TestResolveStatementFromFile(t *testing.T) {
	path := writeConfig(t, "statement: query.sql\n")
	sql := filepath.Join(filepath.Dir(path), "query.sql")
	require.NoError(t, os.WriteFile(sql, []byte("\n  SELECT * FROM t WHERE id > :last_max_id\n\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	text, err := cfg.ResolveStatement()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE id > :last_max_id", text)
}

func TestResolveStatementLiteral(t *testing.T) {
	cfg := &Config{Statement: "  SELECT 1  "}
	text, err := cfg.ResolveStatement()
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", text)
}

func TestResolveStatementEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.sql")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))

	cfg := &Config{Statement: path}
	_, err := cfg.ResolveStatement()

	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "statement", ce.Field)
}

func TestShow(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, cfg.Show(&buf))

	out := buf.String()
	assert.Contains(t, out, "instance: orders")
	assert.Contains(t, out, "ping_timeout: 2s")
	assert.Contains(t, out, "driver: pgx")
	assert.Contains(t, out, "minAmount: 12.5")
}

func TestConnectionOptions(t *testing.T) {
	opts := Connection{Driver: "sqlite3", DSN: "file:x.db", MaxOpenConns: 9}.Options()
	assert.Equal(t, "sqlite3", opts.Driver)
	assert.Equal(t, 9, opts.MaxOpenConns)
	assert.Equal(t, 5*time.Second, opts.PingTimeout)
}

func TestDecorator(t *testing.T) {
	assert.Nil(t, Decorate{}.Decorator())

	d := Decorate{Type: "order", Tags: []string{"poll"}}.Decorator()
	require.NotNil(t, d)

	r := emit.Record{}
	d.Decorate(&r)
	assert.Equal(t, "order", r.Type)
	assert.Equal(t, []string{"poll"}, r.Tags)
}
