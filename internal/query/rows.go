package query

import (
	"context"
	"database/sql"
	"strings"

	"github.com/roach88/sqlpoll/internal/value"
)

// Rows is a forward-only cursor over one execution's result set.
//
// Use it like sql.Rows:
//
//	for rows.Next() {
//	    row := rows.Row()
//	}
//	if err := rows.Err(); err != nil { ... }
//
// Rows closes itself when the result set is exhausted or an error occurs;
// Close is still safe to call and should be deferred. A Rows cannot be
// rewound: once Next returns false it keeps returning false.
type Rows struct {
	ctx       context.Context
	fetch     func(ctx context.Context, page int) (*sql.Rows, error)
	lowercase bool
	pageSize  int

	cur     *sql.Rows
	page    int
	inPage  int
	columns []string
	types   []string
	row     value.Row
	err     error
	done    bool
}

// Next advances to the next row. It returns false when the result set is
// exhausted or reading failed; check Err to tell them apart.
func (r *Rows) Next() bool {
	if r.done {
		return false
	}

	for {
		if r.cur == nil {
			if !r.openPage() {
				return false
			}
		}

		if r.cur.Next() {
			return r.scan()
		}

		if err := r.cur.Err(); err != nil {
			r.fail(&QueryError{Op: "read", Cause: err})
			return false
		}
		_ = r.cur.Close()
		r.cur = nil

		// A short page means there is nothing more to fetch.
		if r.pageSize <= 0 || r.inPage < r.pageSize {
			r.finish()
			return false
		}
		r.page++
	}
}

// Row returns the current row. It is valid until the next call to Next.
func (r *Rows) Row() value.Row {
	return r.row
}

// Columns returns the column names of the result set once the first page has
// been opened.
func (r *Rows) Columns() []string {
	return r.columns
}

// Err returns the error, if any, that stopped iteration.
func (r *Rows) Err() error {
	return r.err
}

// Close releases the underlying cursor. It is idempotent.
func (r *Rows) Close() error {
	var err error
	if r.cur != nil {
		err = r.cur.Close()
		r.cur = nil
	}
	r.row = nil
	r.done = true
	return err
}

func (r *Rows) openPage() bool {
	rs, err := r.fetch(r.ctx, r.page)
	if err != nil {
		r.fail(&QueryError{Op: "execute", Cause: err})
		return false
	}
	r.cur = rs
	r.inPage = 0

	if r.columns == nil {
		cols, err := rs.ColumnTypes()
		if err != nil {
			r.fail(&QueryError{Op: "describe", Cause: err})
			return false
		}
		r.columns = make([]string, len(cols))
		r.types = make([]string, len(cols))
		for i, c := range cols {
			name := c.Name()
			if r.lowercase {
				name = strings.ToLower(name)
			}
			r.columns[i] = name
			r.types[i] = c.DatabaseTypeName()
		}
	}
	return true
}

func (r *Rows) scan() bool {
	raw := make([]any, len(r.columns))
	ptrs := make([]any, len(raw))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := r.cur.Scan(ptrs...); err != nil {
		r.fail(&QueryError{Op: "scan", Cause: err})
		return false
	}

	row := make(value.Row, len(raw))
	for i, v := range raw {
		converted, err := value.FromDriver(v, r.types[i])
		if err != nil {
			r.fail(&QueryError{Op: "scan", Cause: err})
			return false
		}
		row[r.columns[i]] = converted
	}

	r.row = row
	r.inPage++
	return true
}

func (r *Rows) fail(err error) {
	r.err = err
	r.finish()
}

func (r *Rows) finish() {
	if r.cur != nil {
		_ = r.cur.Close()
		r.cur = nil
	}
	r.row = nil
	r.done = true
}
