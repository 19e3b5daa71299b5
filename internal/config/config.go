// Package config loads and validates the poller configuration.
//
// Configuration is read from a YAML file with viper and may be overridden by
// SQLPOLL_* environment variables (SQLPOLL_CONNECTION_DSN overrides
// connection.dsn). It is fixed at startup.
package config

import (
	"fmt"
	"time"

	"github.com/roach88/sqlpoll/internal/emit"
	"github.com/roach88/sqlpoll/internal/query"
	"github.com/roach88/sqlpoll/internal/sqldb"
	"github.com/roach88/sqlpoll/internal/value"
)

// Config is the complete configuration of one poller instance.
type Config struct {
	// Instance names the poller in logs and persisted state.
	Instance string `mapstructure:"instance" yaml:"instance"`

	// Statement is the SQL text, or the path of a file holding it.
	Statement string `mapstructure:"statement" yaml:"statement"`

	// Parameters are the user-supplied named parameters.
	Parameters map[string]any `mapstructure:"parameters" yaml:"parameters,omitempty"`

	// Schedule is a cron expression. Empty means run exactly once.
	Schedule string `mapstructure:"schedule" yaml:"schedule"`

	LowercaseColumnNames bool `mapstructure:"lowercase_column_names" yaml:"lowercase_column_names"`
	PageSize             int  `mapstructure:"page_size" yaml:"page_size"`

	Connection Connection `mapstructure:"connection" yaml:"connection"`
	State      State      `mapstructure:"state" yaml:"state"`
	Output     Output     `mapstructure:"output" yaml:"output"`
	Decorate   Decorate   `mapstructure:"decorate" yaml:"decorate"`
	Log        Log        `mapstructure:"log" yaml:"log"`

	// dir is the directory of the loaded file, used to resolve relative
	// statement paths.
	dir string
}

// Connection describes the source database.
type Connection struct {
	Driver             string        `mapstructure:"driver" yaml:"driver"`
	DSN                string        `mapstructure:"dsn" yaml:"dsn"`
	MaxOpenConns       int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	PingTimeout        time.Duration `mapstructure:"ping_timeout" yaml:"ping_timeout"`
	ValidateConnection bool          `mapstructure:"validate_connection" yaml:"validate_connection"`
}

// State controls persisted watermarks and cycle history.
type State struct {
	// Path of the sqlite state database. Empty disables persistence.
	Path string `mapstructure:"path" yaml:"path"`

	// RecordLastRun persists sql_last_start and the watermarks after every
	// cycle and restores them at start.
	RecordLastRun bool `mapstructure:"record_last_run" yaml:"record_last_run"`

	// CleanRun discards persisted parameters at start.
	CleanRun bool `mapstructure:"clean_run" yaml:"clean_run"`

	// History records every cycle.
	History bool `mapstructure:"history" yaml:"history"`
}

// Output selects where records go.
type Output struct {
	// Path is a file to append JSON lines to, or "-" for stdout.
	Path      string `mapstructure:"path" yaml:"path"`
	QueueSize int    `mapstructure:"queue_size" yaml:"queue_size"`
}

// Decorate holds instance-wide record metadata.
type Decorate struct {
	Type      string            `mapstructure:"type" yaml:"type,omitempty"`
	Tags      []string          `mapstructure:"tags" yaml:"tags,omitempty"`
	AddFields map[string]string `mapstructure:"add_fields" yaml:"add_fields,omitempty"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Params converts the configured parameters into a value map.
func (c *Config) Params() (value.Params, error) {
	out := make(value.Params, len(c.Parameters))
	for name, raw := range c.Parameters {
		v, err := value.FromNative(raw)
		if err != nil {
			return nil, &ConfigError{Field: "parameters." + name, Message: err.Error()}
		}
		out[name] = v
	}
	return out, nil
}

// ParseStatement resolves and parses the statement for the configured
// driver's dialect. With an unknown driver the statement is parsed with the
// default bracket rules.
func (c *Config) ParseStatement() (*query.Statement, error) {
	text, err := c.ResolveStatement()
	if err != nil {
		return nil, err
	}
	d, derr := query.DialectForDriver(c.Connection.Driver)
	if derr != nil {
		return query.Parse(text)
	}
	return query.ParseDialect(text, d)
}

// Options returns the pool settings for the connection.
func (c Connection) Options() sqldb.Options {
	opts := sqldb.DefaultOptions()
	opts.Driver = c.Driver
	opts.DSN = c.DSN
	if c.MaxOpenConns > 0 {
		opts.MaxOpenConns = c.MaxOpenConns
	}
	if c.PingTimeout > 0 {
		opts.PingTimeout = c.PingTimeout
	}
	return opts
}

// MarshalYAML renders the ping timeout as a duration string.
func (c Connection) MarshalYAML() (any, error) {
	return struct {
		Driver             string `yaml:"driver"`
		DSN                string `yaml:"dsn"`
		MaxOpenConns       int    `yaml:"max_open_conns"`
		PingTimeout        string `yaml:"ping_timeout"`
		ValidateConnection bool   `yaml:"validate_connection"`
	}{c.Driver, c.DSN, c.MaxOpenConns, c.PingTimeout.String(), c.ValidateConnection}, nil
}

// Decorator returns the record decorator, or nil when nothing is configured.
func (d Decorate) Decorator() emit.Decorator {
	if d.Type == "" && len(d.Tags) == 0 && len(d.AddFields) == 0 {
		return nil
	}
	return emit.Fields{Type: d.Type, Tags: d.Tags, AddFields: d.AddFields}
}

// Persistent reports whether a state database is configured.
func (s State) Persistent() bool {
	return s.Path != ""
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %s", e.Message)
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}
