// Package sqldb opens the source database the poller reads from.
//
// It registers the sqlite3, pgx (postgres) and sqlserver database/sql
// drivers and wraps the resulting pool with the placeholder dialect the
// driver expects.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/roach88/sqlpoll/internal/query"
)

// Options configures the connection pool.
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// DefaultOptions returns pool settings suitable for a single poller.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		PingTimeout:     5 * time.Second,
	}
}

// DB is an open source database.
type DB struct {
	db      *sql.DB
	driver  string
	dialect query.Dialect
	timeout time.Duration
}

// Open connects to the database and verifies the connection with a ping.
func Open(ctx context.Context, opt Options) (*DB, error) {
	if opt.Driver == "" {
		return nil, errors.New("driver is required")
	}
	if opt.DSN == "" {
		return nil, errors.New("dsn is required")
	}

	dialect, err := query.DialectForDriver(opt.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(opt.Driver, opt.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opt.Driver, err)
	}

	if opt.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opt.MaxOpenConns)
	}
	if opt.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opt.MaxIdleConns)
	}
	if opt.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opt.ConnMaxLifetime)
	}
	if opt.PingTimeout <= 0 {
		opt.PingTimeout = 5 * time.Second
	}

	d := &DB{db: db, driver: opt.Driver, dialect: dialect, timeout: opt.PingTimeout}
	if err := d.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	slog.Debug("source database connected", "driver", opt.Driver)
	return d, nil
}

// Wrap adapts an already open pool. Used by tests and embedders that manage
// their own *sql.DB.
func Wrap(db *sql.DB, driver string) (*DB, error) {
	dialect, err := query.DialectForDriver(driver)
	if err != nil {
		return nil, err
	}
	return &DB{db: db, driver: driver, dialect: dialect, timeout: 5 * time.Second}, nil
}

// QueryContext implements query.Querier.
func (d *DB) QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, q, args...)
}

// Ping checks the connection, bounded by the configured ping timeout.
func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", d.driver, err)
	}
	return nil
}

// Dialect returns the placeholder dialect of the driver.
func (d *DB) Dialect() query.Dialect {
	return d.dialect
}

// Driver returns the database/sql driver name.
func (d *DB) Driver() string {
	return d.driver
}

// Close closes the pool.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}
