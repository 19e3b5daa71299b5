package config

import (
	"errors"
	"strings"

	"github.com/roach88/sqlpoll/internal/query"
	"github.com/roach88/sqlpoll/internal/schedule"
)

// Validate checks the configuration and returns every problem found, joined.
// Each problem is a *ConfigError.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, msg string, err error) {
		errs = append(errs, &ConfigError{Field: field, Message: msg, Err: err})
	}

	if strings.TrimSpace(c.Instance) == "" {
		add("instance", "is required", nil)
	}

	if _, err := c.ParseStatement(); err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) {
			errs = append(errs, err)
		} else {
			add("statement", err.Error(), err)
		}
	}

	if _, err := schedule.ParseSchedule(c.Schedule); err != nil {
		add("schedule", err.Error(), err)
	}

	if c.PageSize < 0 {
		add("page_size", "must not be negative", nil)
	}

	switch {
	case c.Connection.Driver == "":
		add("connection.driver", "is required", nil)
	default:
		if _, err := query.DialectForDriver(c.Connection.Driver); err != nil {
			add("connection.driver", err.Error(), err)
		}
	}
	if c.Connection.DSN == "" {
		add("connection.dsn", "is required", nil)
	}
	if c.Connection.PingTimeout < 0 {
		add("connection.ping_timeout", "must not be negative", nil)
	}

	if c.Output.QueueSize <= 0 {
		add("output.queue_size", "must be positive", nil)
	}
	if c.Output.Path == "" {
		add("output.path", `is required ("-" for stdout)`, nil)
	}

	if _, err := c.Params(); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("log.level", "must be one of debug, info, warn, error", nil)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		add("log.format", "must be text or json", nil)
	}

	return errors.Join(errs...)
}
