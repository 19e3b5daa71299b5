package value

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareSameFamily(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b Value
		want int
	}{
		{"int less", Int(1), Int(2), -1},
		{"int equal", Int(7), Int(7), 0},
		{"int greater", Int(-1), Int(-5), 1},
		{"float", Float(1.5), Float(1.25), 1},
		{"decimal", MustDecimal("10.01"), MustDecimal("10.1"), -1},
		{"int vs float", Int(2), Float(2.5), -1},
		{"float vs int equal", Float(3), Int(3), 0},
		{"int vs decimal", Int(10), MustDecimal("9.99"), 1},
		{"large int vs decimal", Int(math.MaxInt64), MustDecimal("9223372036854775806.5"), 1},
		{"string lexicographic", String("apple"), String("banana"), -1},
		{"string prefix", String("ab"), String("abc"), -1},
		{"string case", String("Z"), String("a"), -1},
		{"time", NewTime(t0), NewTime(t0.Add(time.Second)), -1},
		{"time equal across zones", NewTime(t0), NewTime(t0.In(time.FixedZone("X", 3600))), 0},
		{"bool", Bool(false), Bool(true), -1},
		{"bytes", Bytes{0x01, 0x02}, Bytes{0x01, 0x01}, 1},
		{"nan first", Float(math.NaN()), Int(0), -1},
		{"inf last", Float(math.Inf(1)), MustDecimal("1e300"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompareTypeMismatch(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
	}{
		{"int vs string", Int(1), String("1")},
		{"string vs time", String("2024-01-01"), NewTime(time.Now())},
		{"bool vs int", Bool(true), Int(1)},
		{"bytes vs string", Bytes("a"), String("a")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compare(tt.a, tt.b)
			require.Error(t, err)

			var mismatch *TypeMismatchError
			require.ErrorAs(t, err, &mismatch)
			assert.Equal(t, tt.a.Kind(), mismatch.Left)
			assert.Equal(t, tt.b.Kind(), mismatch.Right)
		})
	}
}

func TestCompareRejectsNull(t *testing.T) {
	_, err := Compare(Null{}, Int(1))
	assert.Error(t, err)

	_, err = Compare(Int(1), nil)
	assert.Error(t, err)
}

func TestMinMax(t *testing.T) {
	lo, err := Min(Int(3), Int(1))
	require.NoError(t, err)
	assert.Equal(t, Int(1), lo)

	hi, err := Max(Int(3), Float(3.5))
	require.NoError(t, err)
	assert.Equal(t, Float(3.5), hi)

	// Ties keep the existing (left) value.
	lo, err = Min(Int(2), Float(2))
	require.NoError(t, err)
	assert.Equal(t, Int(2), lo)
}
