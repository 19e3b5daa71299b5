package query

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/roach88/sqlpoll/internal/value"
)

// Querier is the part of the connection the executor needs. *sql.DB,
// *sql.Conn and *sql.Tx satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Options controls how statements are bound and read.
type Options struct {
	// Dialect selects the placeholder syntax. Defaults to DialectQuestion.
	Dialect Dialect

	// LowercaseColumns lowercases every column name in returned rows.
	LowercaseColumns bool

	// PageSize, when positive, fetches the result set in pages of this many
	// rows. Each page is a separate query wrapping the statement with
	// LIMIT/OFFSET, issued when the previous page is exhausted. The
	// statement should have a stable ORDER BY for paging to be meaningful.
	PageSize int
}

// Executor runs statements against a Querier.
type Executor struct {
	db   Querier
	opts Options
}

// NewExecutor creates an Executor over db.
func NewExecutor(db Querier, opts Options) *Executor {
	if opts.Dialect == "" {
		opts.Dialect = DialectQuestion
	}
	return &Executor{db: db, opts: opts}
}

// Execute binds params into stmt and runs it.
//
// Binding failures return *BindingError before anything is sent to the
// database. Driver failures return *QueryError. The first page is fetched
// before Execute returns, so connection and syntax errors surface here rather
// than from Rows.Next.
func (e *Executor) Execute(ctx context.Context, stmt *Statement, params value.Params) (*Rows, error) {
	bound, args, err := stmt.Bind(e.opts.Dialect, params)
	if err != nil {
		return nil, err
	}

	slog.Debug("executing statement",
		"sql", bound,
		"args", len(args),
		"page_size", e.opts.PageSize,
	)

	rows := &Rows{
		ctx:       ctx,
		lowercase: e.opts.LowercaseColumns,
		pageSize:  e.opts.PageSize,
	}
	rows.fetch = func(ctx context.Context, page int) (*sql.Rows, error) {
		query := bound
		if e.opts.PageSize > 0 {
			query = e.opts.Dialect.page(bound, e.opts.PageSize, page*e.opts.PageSize)
			slog.Debug("fetching page", "page", page, "size", e.opts.PageSize)
		}
		return e.db.QueryContext(ctx, query, args...)
	}

	if !rows.openPage() {
		return nil, rows.Err()
	}
	return rows, nil
}
