package value

import (
	"maps"
	"slices"
	"unicode/utf16"
)

// Row maps column names to the values of one result tuple.
type Row map[string]Value

// Params maps parameter names to values. It is the state carried from one
// cycle to the next.
type Params map[string]Value

// Clone returns a shallow copy of p. Values are immutable so a shallow copy is
// independent of the original.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	maps.Copy(out, p)
	return out
}

// Lookup returns the value bound to name and whether it was present.
func (p Params) Lookup(name string) (Value, bool) {
	v, ok := p[name]
	return v, ok
}

// SortedKeys returns the parameter names in canonical order.
func (p Params) SortedKeys() []string {
	return sortedKeys(p)
}

// SortedKeys returns the column names in canonical order.
func (r Row) SortedKeys() []string {
	return sortedKeys(r)
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

// compareKeys orders strings by UTF-16 code units, matching the key order of
// canonical JSON (RFC 8785). Go's native string order is by UTF-8 bytes and
// differs for characters outside the BMP.
func compareKeys(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

func sortStrings(keys []string) {
	slices.SortFunc(keys, compareKeys)
}
