package value

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind names the family of a Value.
type Kind string

const (
	KindNull    Kind = "null"
	KindString  Kind = "string"
	KindInt     Kind = "int"
	KindFloat   Kind = "float"
	KindDecimal Kind = "decimal"
	KindBool    Kind = "bool"
	KindTime    Kind = "time"
	KindBytes   Kind = "bytes"
)

// Value is a sealed interface over the scalar types a column or parameter can
// hold. Only the types in this package implement it.
type Value interface {
	Kind() Kind
	sealed()
}

// Null is an SQL NULL.
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) sealed()    {}

// String is a text value.
type String string

func (String) Kind() Kind { return KindString }
func (String) sealed()    {}

// Int is a signed 64-bit integer.
type Int int64

func (Int) Kind() Kind { return KindInt }
func (Int) sealed()    {}

// Float is a 64-bit floating point number.
type Float float64

func (Float) Kind() Kind { return KindFloat }
func (Float) sealed()    {}

// Decimal is an arbitrary precision number, used for NUMERIC/DECIMAL columns.
type Decimal struct {
	decimal.Decimal
}

func (Decimal) Kind() Kind { return KindDecimal }
func (Decimal) sealed()    {}

// Bool is a boolean.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) sealed()    {}

// Time is a point in time.
type Time struct {
	time.Time
}

func (Time) Kind() Kind { return KindTime }
func (Time) sealed()    {}

// Bytes is a binary value.
type Bytes []byte

func (Bytes) Kind() Kind { return KindBytes }
func (Bytes) sealed()    {}

// NewDecimal parses s as a Decimal.
func NewDecimal(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return Decimal{d}, nil
}

// MustDecimal is NewDecimal for literals; it panics on malformed input.
func MustDecimal(s string) Decimal {
	d, err := NewDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewTime wraps t.
func NewTime(t time.Time) Time {
	return Time{t}
}

// IsNull reports whether v is absent or an SQL NULL.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Format renders v for logs and text output.
func Format(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "NULL"
	case String:
		return string(val)
	case Int:
		return fmt.Sprintf("%d", int64(val))
	case Float:
		return formatFloat(float64(val))
	case Decimal:
		return val.Decimal.String()
	case Bool:
		if val {
			return "true"
		}
		return "false"
	case Time:
		return val.Time.Format(time.RFC3339Nano)
	case Bytes:
		return fmt.Sprintf("%x", []byte(val))
	default:
		return fmt.Sprintf("%v", v)
	}
}
