// Package harness runs poller scenarios against a throwaway sqlite source.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: incremental_orders
//	description: "Second cycle only sees rows past the high watermark"
//	setup:
//	  - CREATE TABLE orders (id INTEGER, total NUMERIC)
//	  - INSERT INTO orders VALUES (1, 10), (2, 20)
//	statement: SELECT id, total FROM orders WHERE id > :last_max_id ORDER BY id
//	parameters: { last_max_id: 0 }
//	cycles:
//	  - expect: { rows: 2 }
//	  - before:
//	      - INSERT INTO orders VALUES (3, 5)
//	    expect: { rows: 1 }
//	assertions:
//	  - type: param_equals
//	    name: last_max_id
//	    value: 3
//	  - type: record_count
//	    count: 3
//
// # Assertion Types
//
//   - record_count: exactly count records were published
//   - record_contains: some record's fields contain fields (subset match)
//   - param_equals: the final parameter name equals value
//   - param_absent: the final parameter map has no entry name
//
// # Deterministic Testing
//
// Cycle and record IDs come from counters, the wall clock is a
// testutil.ManualClock starting at the scenario's start_time and advancing one
// minute per cycle, and the source is a fresh sqlite database per run. The
// same scenario therefore always yields a byte-identical trace, which
// RunWithGolden compares against testdata/golden/<name>.golden.
package harness
