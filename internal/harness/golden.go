package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sqlpoll/internal/value"
)

// GoldenDir is where golden traces live, relative to the test's package.
const GoldenDir = "testdata/golden"

// Snapshot renders a result's trace as deterministic JSON. Equal traces
// always produce equal bytes, so snapshots can be compared byte-for-byte.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, event := range result.Trace {
		m := map[string]any{
			"type":  event.Type,
			"cycle": event.Cycle,
		}
		switch event.Type {
		case EventRecord:
			m["seq"] = event.Seq
			m["fields"] = event.Fields
		case EventCycle:
			m["rows"] = event.Rows
			m["params"] = event.Params
			if event.ErrorCode != "" {
				m["error"] = event.ErrorCode
			}
		}
		trace[i] = m
	}

	data, err := value.MarshalJSON(map[string]any{
		"scenario_name": scenarioName,
		"trace":         trace,
	})
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
