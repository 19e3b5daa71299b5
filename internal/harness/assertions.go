package harness

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/sqlpoll/internal/value"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

func assertRecordCount(result *Result, a Assertion) error {
	got := len(result.Records())
	if got == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertRecordCount,
		Expected: fmt.Sprintf("%d records", a.Count),
		Actual:   fmt.Sprintf("%d records", got),
	}
}

// assertRecordContains passes if any record's fields contain every expected
// field (subset match).
func assertRecordContains(result *Result, a Assertion) error {
	for _, r := range result.Records() {
		if matchFields(r.Fields, a.Fields) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertRecordContains,
		Expected: fmt.Sprintf("a record with fields %v", a.Fields),
		Actual:   "not found among published records",
	}
}

func assertParamEquals(result *Result, a Assertion) error {
	got, ok := result.Params[a.Name]
	if !ok {
		return &AssertionError{
			Type:     AssertParamEquals,
			Expected: fmt.Sprintf("%s = %v", a.Name, a.Value),
			Actual:   "parameter not set",
		}
	}
	if !valueMatches(got, a.Value) {
		return &AssertionError{
			Type:     AssertParamEquals,
			Expected: fmt.Sprintf("%s = %v", a.Name, a.Value),
			Actual:   fmt.Sprintf("%s = %s", a.Name, value.Format(got)),
		}
	}
	return nil
}

func assertParamAbsent(result *Result, a Assertion) error {
	if got, ok := result.Params[a.Name]; ok {
		return &AssertionError{
			Type:     AssertParamAbsent,
			Expected: fmt.Sprintf("no parameter %s", a.Name),
			Actual:   fmt.Sprintf("%s = %s", a.Name, value.Format(got)),
		}
	}
	return nil
}

func matchFields(actual value.Row, expected map[string]any) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok || !valueMatches(got, want) {
			return false
		}
	}
	return true
}

// valueMatches compares a runtime value against a YAML-decoded expectation
// using natural ordering, so 3, 3.0 and a NUMERIC 3 all match. Strings
// expected against a time are parsed as RFC 3339.
func valueMatches(actual value.Value, expected any) bool {
	if s, ok := expected.(string); ok {
		if t, isTime := actual.(value.Time); isTime {
			parsed, err := time.Parse(time.RFC3339Nano, s)
			return err == nil && parsed.Equal(t.Time)
		}
	}

	want, err := value.FromNative(expected)
	if err != nil {
		return false
	}
	if value.IsNull(want) || value.IsNull(actual) {
		return value.IsNull(want) && value.IsNull(actual)
	}
	c, err := value.Compare(actual, want)
	return err == nil && c == 0
}

// EvaluateAssertions evaluates all assertions against the result and
// returns the messages of those that failed.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertRecordCount:
			err = assertRecordCount(result, a)
		case AssertRecordContains:
			err = assertRecordContains(result, a)
		case AssertParamEquals:
			err = assertParamEquals(result, a)
		case AssertParamAbsent:
			err = assertParamAbsent(result, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}
