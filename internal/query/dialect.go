package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/sqlpoll/internal/value"
)

// Dialect decides how placeholders and paging clauses are written for a
// database.
type Dialect string

const (
	// DialectQuestion writes every placeholder as ?. Used by sqlite3.
	DialectQuestion Dialect = "question"
	// DialectDollar writes $1, $2, ... Used by postgres.
	DialectDollar Dialect = "dollar"
	// DialectAtP writes @p1, @p2, ... Used by sqlserver.
	DialectAtP Dialect = "atp"
)

// Drivers lists the database/sql driver names sqlpoll registers.
var Drivers = []string{"sqlite3", "pgx", "sqlserver", "mssql"}

// DialectForDriver returns the dialect of a registered database/sql driver
// name. Names are matched exactly, as sql.Open does.
func DialectForDriver(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3":
		return DialectQuestion, nil
	case "pgx":
		return DialectDollar, nil
	case "sqlserver", "mssql":
		return DialectAtP, nil
	default:
		return "", fmt.Errorf("unsupported driver %q: must be one of %s", driver, strings.Join(Drivers, ", "))
	}
}

// reusesIndex reports whether a repeated name may refer to one positional
// argument.
func (d Dialect) reusesIndex() bool {
	return d == DialectDollar || d == DialectAtP
}

func (d Dialect) placeholder(n int) string {
	switch d {
	case DialectDollar:
		return "$" + strconv.Itoa(n)
	case DialectAtP:
		return "@p" + strconv.Itoa(n)
	default:
		return "?"
	}
}

// page wraps sql so that it returns at most limit rows starting at offset.
func (d Dialect) page(sql string, limit, offset int) string {
	sql = strings.TrimRight(strings.TrimSpace(sql), ";")
	if d == DialectAtP {
		return fmt.Sprintf("SELECT * FROM (%s) AS sqlpoll_page ORDER BY (SELECT NULL) OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", sql, offset, limit)
	}
	return fmt.Sprintf("SELECT * FROM (%s) AS sqlpoll_page LIMIT %d OFFSET %d", sql, limit, offset)
}

// Bind rewrites the statement for dialect d and resolves every placeholder
// against params. The returned args are positional driver values.
//
// A placeholder with no entry in params fails with *BindingError naming the
// first such placeholder.
func (s *Statement) Bind(d Dialect, params value.Params) (string, []any, error) {
	var (
		sql   strings.Builder
		args  []any
		index = make(map[string]int)
	)

	for _, seg := range s.segments {
		sql.WriteString(seg.text)
		if seg.param == "" {
			continue
		}

		v, ok := params.Lookup(seg.param)
		if !ok {
			return "", nil, &BindingError{Name: seg.param}
		}

		if d.reusesIndex() {
			if n, ok := index[seg.param]; ok {
				sql.WriteString(d.placeholder(n))
				continue
			}
		}

		args = append(args, value.Driver(v))
		index[seg.param] = len(args)
		sql.WriteString(d.placeholder(len(args)))
	}

	return sql.String(), args, nil
}
