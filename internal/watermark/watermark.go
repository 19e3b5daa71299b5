// Package watermark folds result rows into per-column low/high watermarks.
//
// For a column named k the tracker maintains two parameters, last_min_k and
// last_max_k, holding the smallest and largest non-null value seen for k.
// Statements reference them as :last_max_k to select only rows past the
// previous run.
package watermark

import (
	"fmt"

	"github.com/roach88/sqlpoll/internal/value"
)

const (
	minPrefix = "last_min_"
	maxPrefix = "last_max_"
)

// MinKey returns the parameter name holding the low watermark for column.
func MinKey(column string) string {
	return minPrefix + column
}

// MaxKey returns the parameter name holding the high watermark for column.
func MaxKey(column string) string {
	return maxPrefix + column
}

// IsKey reports whether name follows the watermark naming rule.
func IsKey(name string) bool {
	return len(name) > len(minPrefix) && (name[:len(minPrefix)] == minPrefix || name[:len(maxPrefix)] == maxPrefix)
}

// ColumnError wraps a comparison failure with the column that caused it.
type ColumnError struct {
	Column string
	Err    error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("watermark %q: %v", e.Column, e.Err)
}

func (e *ColumnError) Unwrap() error {
	return e.Err
}

// Update returns a copy of params with row folded into the watermarks.
//
// A missing watermark takes the row's value. Null values never move a
// watermark. If any column holds a value that cannot be ordered against its
// existing watermark, Update returns params unchanged together with a
// *ColumnError wrapping *value.TypeMismatchError: a row is folded completely
// or not at all.
//
// params is never modified.
func Update(params value.Params, row value.Row) (value.Params, error) {
	next := params.Clone()

	for _, col := range row.SortedKeys() {
		v := row[col]
		if value.IsNull(v) {
			continue
		}

		if err := fold(next, MinKey(col), v, value.Min); err != nil {
			return params, &ColumnError{Column: col, Err: err}
		}
		if err := fold(next, MaxKey(col), v, value.Max); err != nil {
			return params, &ColumnError{Column: col, Err: err}
		}
	}

	return next, nil
}

func fold(params value.Params, key string, v value.Value, pick func(a, b value.Value) (value.Value, error)) error {
	existing, ok := params[key]
	if !ok || value.IsNull(existing) {
		params[key] = v
		return nil
	}

	chosen, err := pick(existing, v)
	if err != nil {
		return err
	}
	params[key] = chosen
	return nil
}
