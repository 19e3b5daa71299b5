package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlpoll/internal/query"
	"github.com/roach88/sqlpoll/internal/schedule"
)

// Scenario defines a poller test: a source database, a statement, and the
// cycles to run against it.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup holds SQL statements run against the fresh source database.
	Setup []string `yaml:"setup,omitempty"`

	// Statement is the polled statement.
	Statement string `yaml:"statement"`

	// Parameters are the initial user parameters.
	Parameters map[string]any `yaml:"parameters,omitempty"`

	// LowercaseColumnNames defaults to true.
	LowercaseColumnNames *bool `yaml:"lowercase_column_names,omitempty"`

	PageSize int `yaml:"page_size,omitempty"`

	Decorate *Decorate `yaml:"decorate,omitempty"`

	// StartTime is the clock reading of the first cycle. Defaults to
	// testutil.Epoch.
	StartTime time.Time `yaml:"start_time,omitempty"`

	// Cycles run in order, one RunCycle each.
	Cycles []CycleStep `yaml:"cycles"`

	// Assertions validate the final trace and parameters.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Decorate mirrors the decorate configuration block.
type Decorate struct {
	Type      string            `yaml:"type,omitempty"`
	Tags      []string          `yaml:"tags,omitempty"`
	AddFields map[string]string `yaml:"add_fields,omitempty"`
}

// CycleStep is one cycle of a scenario.
type CycleStep struct {
	// Before holds SQL statements run against the source before the cycle.
	Before []string `yaml:"before,omitempty"`

	// Expect, if set, is checked against the cycle's outcome.
	Expect *CycleExpect `yaml:"expect,omitempty"`
}

// CycleExpect specifies the expected outcome of a cycle.
type CycleExpect struct {
	// Rows is the expected number of published rows, if set.
	Rows *int64 `yaml:"rows,omitempty"`

	// Error is the expected failure code (BINDING, QUERY, TYPE_MISMATCH,
	// PUBLISH). Empty expects success.
	Error string `yaml:"error,omitempty"`
}

// Assertion types.
const (
	AssertRecordCount    = "record_count"
	AssertRecordContains = "record_contains"
	AssertParamEquals    = "param_equals"
	AssertParamAbsent    = "param_absent"
)

// Assertion validates the final state of a scenario run.
type Assertion struct {
	Type string `yaml:"type"`

	// Count is used by record_count.
	Count int `yaml:"count,omitempty"`

	// Fields is used by record_contains.
	Fields map[string]any `yaml:"fields,omitempty"`

	// Name and Value are used by param_equals and param_absent.
	Name  string `yaml:"name,omitempty"`
	Value any    `yaml:"value,omitempty"`
}

// LoadScenario loads and validates a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario. Unknown fields are
// rejected to catch typos.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if _, err := query.Parse(s.Statement); err != nil {
		return fmt.Errorf("statement: %w", err)
	}
	if len(s.Cycles) == 0 {
		return fmt.Errorf("cycles list is required and must be non-empty")
	}
	if s.PageSize < 0 {
		return fmt.Errorf("page_size must be non-negative")
	}

	for i, c := range s.Cycles {
		if c.Expect == nil || c.Expect.Error == "" {
			continue
		}
		switch schedule.ErrorCode(c.Expect.Error) {
		case schedule.CodeBinding, schedule.CodeQuery, schedule.CodeTypeMismatch, schedule.CodePublish, schedule.CodeInternal:
		default:
			return fmt.Errorf("cycles[%d].expect: unknown error code %q", i, c.Expect.Error)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertRecordCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for record_count", index)
		}
	case AssertRecordContains:
		if len(a.Fields) == 0 {
			return fmt.Errorf("assertions[%d]: fields is required for record_contains", index)
		}
	case AssertParamEquals:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for param_equals", index)
		}
	case AssertParamAbsent:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for param_absent", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
