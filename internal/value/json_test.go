package value

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalJSONScalars(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 500, time.UTC)

	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"null", Null{}, "null"},
		{"nil", nil, "null"},
		{"string", String("hello"), `"hello"`},
		{"html not escaped", String("<a&b>"), `"<a&b>"`},
		{"int", Int(-42), "-42"},
		{"float", Float(1.5), "1.5"},
		{"decimal keeps precision", MustDecimal("12345678901234567890.123"), "12345678901234567890.123"},
		{"bool", Bool(true), "true"},
		{"time", NewTime(ts), `"2024-03-01T12:30:00.0000005Z"`},
		{"bytes", Bytes("hi"), `"aGk="`},
		{"strings", []string{"b", "a"}, `["b","a"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalJSON(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalJSONSortsKeys(t *testing.T) {
	row := Row{"zebra": Int(1), "alpha": Int(2), "beta": Null{}}

	got, err := MarshalJSON(row)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":null,"zebra":1}`, string(got))
}

func TestMarshalJSONNested(t *testing.T) {
	obj := map[string]any{
		"fields": Row{"b": String("x"), "a": Int(1)},
		"tags":   []string{"t1"},
		"id":     "r-1",
	}

	got, err := MarshalJSON(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"fields":{"a":1,"b":"x"},"id":"r-1","tags":["t1"]}`, string(got))
}

func TestMarshalJSONNormalizesNFC(t *testing.T) {
	// "e" + combining acute accent normalizes to U+00E9.
	got, err := MarshalJSON(String("cafe\u0301"))
	require.NoError(t, err)
	assert.Equal(t, "\"caf\u00e9\"", string(got))
}

func TestMarshalJSONRejects(t *testing.T) {
	_, err := MarshalJSON(Float(math.NaN()))
	assert.Error(t, err)

	_, err = MarshalJSON(struct{}{})
	assert.Error(t, err)
}
