package value

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// TypeMismatchError reports two values that have no common ordering.
type TypeMismatchError struct {
	Left  Kind
	Right Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("cannot compare %s with %s", e.Left, e.Right)
}

// Compare returns -1, 0 or 1 as a is less than, equal to or greater than b.
// Neither argument may be null. Values of incompatible families yield a
// *TypeMismatchError.
func Compare(a, b Value) (int, error) {
	if IsNull(a) || IsNull(b) {
		return 0, fmt.Errorf("compare: null operand")
	}

	if isNumeric(a) && isNumeric(b) {
		return compareNumeric(a, b), nil
	}

	switch x := a.(type) {
	case String:
		if y, ok := b.(String); ok {
			return strings.Compare(string(x), string(y)), nil
		}
	case Time:
		if y, ok := b.(Time); ok {
			return x.Time.Compare(y.Time), nil
		}
	case Bool:
		if y, ok := b.(Bool); ok {
			return compareBool(bool(x), bool(y)), nil
		}
	case Bytes:
		if y, ok := b.(Bytes); ok {
			return bytes.Compare(x, y), nil
		}
	}

	return 0, &TypeMismatchError{Left: a.Kind(), Right: b.Kind()}
}

// Min returns the smaller of a and b. See Compare.
func Min(a, b Value) (Value, error) {
	c, err := Compare(a, b)
	if err != nil {
		return nil, err
	}
	if c <= 0 {
		return a, nil
	}
	return b, nil
}

// Max returns the larger of a and b. See Compare.
func Max(a, b Value) (Value, error) {
	c, err := Compare(a, b)
	if err != nil {
		return nil, err
	}
	if c >= 0 {
		return a, nil
	}
	return b, nil
}

func isNumeric(v Value) bool {
	switch v.(type) {
	case Int, Float, Decimal:
		return true
	}
	return false
}

// compareNumeric orders Int, Float and Decimal by magnitude. Int/Int and
// Float/Float stay in their native representation; mixed pairs go through
// decimal so large integers keep full precision.
func compareNumeric(a, b Value) int {
	switch x := a.(type) {
	case Int:
		if y, ok := b.(Int); ok {
			return cmp.Compare(x, y)
		}
	case Float:
		if y, ok := b.(Float); ok {
			return cmp.Compare(x, y)
		}
	}

	// NaN and infinities have no decimal form; cmp.Compare orders NaN first.
	if f, ok := a.(Float); ok && !isFinite(float64(f)) {
		return cmp.Compare(float64(f), toFloat(b))
	}
	if f, ok := b.(Float); ok && !isFinite(float64(f)) {
		return cmp.Compare(toFloat(a), float64(f))
	}
	return toDecimal(a).Cmp(toDecimal(b))
}

func toDecimal(v Value) decimal.Decimal {
	switch x := v.(type) {
	case Int:
		return decimal.NewFromInt(int64(x))
	case Float:
		return decimal.NewFromFloat(float64(x))
	case Decimal:
		return x.Decimal
	}
	return decimal.Zero
}

func toFloat(v Value) float64 {
	switch x := v.(type) {
	case Int:
		return float64(x)
	case Float:
		return float64(x)
	case Decimal:
		return x.InexactFloat64()
	}
	return 0
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
