package harness

import (
	"github.com/roach88/sqlpoll/internal/value"
)

// Trace event types.
const (
	EventCycle  = "cycle"
	EventRecord = "record"
)

// TraceEvent is one step of a scenario run: a finished cycle or a published
// record.
type TraceEvent struct {
	Type string

	// Cycle is the 1-based cycle sequence number.
	Cycle int64

	// Seq is the record's position in its cycle. Zero for cycle events.
	Seq int64

	// Rows and ErrorCode describe a cycle event.
	Rows      int64
	ErrorCode string

	// Fields are a record's fields; Params the parameter map after a cycle.
	Fields value.Row
	Params value.Params
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expectation and assertion held.
	Pass bool

	// Trace contains cycle and record events in order.
	Trace []TraceEvent

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string

	// Params is the final parameter map.
	Params value.Params
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Records returns the record events of the trace.
func (r *Result) Records() []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Type == EventRecord {
			out = append(out, e)
		}
	}
	return out
}
