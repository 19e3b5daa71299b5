package harness

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/sqlpoll/internal/emit"
	"github.com/roach88/sqlpoll/internal/ident"
	"github.com/roach88/sqlpoll/internal/query"
	"github.com/roach88/sqlpoll/internal/schedule"
	"github.com/roach88/sqlpoll/internal/testutil"
	"github.com/roach88/sqlpoll/internal/value"
)

// CycleInterval is how far the scenario clock advances between cycles.
const CycleInterval = time.Minute

// Harness holds the per-run state of a scenario execution.
type Harness struct {
	db         *sql.DB
	clock      *testutil.ManualClock
	controller *schedule.Controller
	result     *Result

	// cycle is the sequence number of the cycle in progress.
	cycle int64
}

// Run executes a scenario and returns the result.
//
// Each run uses a fresh sqlite source in a temporary directory, counter IDs
// and a manual clock, so results are reproducible.
//
// Execution flow:
//  1. Create the source database and run setup
//  2. Build a controller with no schedule
//  3. For each cycle: run its before statements, RunCycle, check expect
//  4. Stop the controller and evaluate assertions
//
// An error is returned only when the scenario cannot be executed at all;
// failed expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "sqlpoll-harness-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create source directory: %w", err)
	}
	defer os.RemoveAll(dir)

	db, err := sql.Open("sqlite3", filepath.Join(dir, "source.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open source database: %w", err)
	}
	defer db.Close()

	h := &Harness{
		db:     db,
		clock:  testutil.NewManualClock(scenario.StartTime),
		result: NewResult(),
	}

	ctx := context.Background()

	if err := h.exec(ctx, "setup", scenario.Setup); err != nil {
		return nil, err
	}

	if err := h.build(scenario); err != nil {
		return nil, err
	}
	defer h.controller.Stop()

	for i, step := range scenario.Cycles {
		if err := h.exec(ctx, fmt.Sprintf("cycles[%d].before", i), step.Before); err != nil {
			return nil, err
		}
		h.runCycle(ctx, i, step)
		h.clock.Advance(CycleInterval)
	}

	h.result.Params = h.controller.Params()

	for _, errMsg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(errMsg)
	}
	return h.result, nil
}

func (h *Harness) exec(ctx context.Context, label string, stmts []string) error {
	for i, stmt := range stmts {
		if _, err := h.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute %s[%d]: %w", label, i, err)
		}
	}
	return nil
}

func (h *Harness) build(scenario *Scenario) error {
	stmt, err := query.Parse(scenario.Statement)
	if err != nil {
		return fmt.Errorf("failed to parse statement: %w", err)
	}

	params := make(value.Params, len(scenario.Parameters))
	for name, raw := range scenario.Parameters {
		v, err := value.FromNative(raw)
		if err != nil {
			return fmt.Errorf("parameter %s: %w", name, err)
		}
		params[name] = v
	}

	lowercase := true
	if scenario.LowercaseColumnNames != nil {
		lowercase = *scenario.LowercaseColumnNames
	}

	opts := []emit.Option{
		emit.WithIDs(ident.NewCounter("rec")),
		emit.WithNow(h.clock.Now),
	}
	if d := scenario.Decorate; d != nil {
		opts = append(opts, emit.WithDecorator(emit.Fields{Type: d.Type, Tags: d.Tags, AddFields: d.AddFields}))
	}

	c, err := schedule.New(schedule.Options{
		Instance:  scenario.Name,
		Statement: stmt,
		Params:    params,
		Executor: query.NewExecutor(h.db, query.Options{
			Dialect:          query.DialectQuestion,
			LowercaseColumns: lowercase,
			PageSize:         scenario.PageSize,
		}),
		Emitter: emit.NewEmitter(emit.PublisherFunc(h.publish), opts...),
		Clock:   h.clock,
		IDs:     ident.NewCounter("cycle"),
	})
	if err != nil {
		return fmt.Errorf("failed to build controller: %w", err)
	}
	h.controller = c
	return nil
}

func (h *Harness) publish(_ context.Context, r emit.Record) error {
	h.result.Trace = append(h.result.Trace, TraceEvent{
		Type:   EventRecord,
		Cycle:  h.cycle,
		Seq:    r.Seq,
		Fields: r.Fields,
	})
	return nil
}

func (h *Harness) runCycle(ctx context.Context, index int, step CycleStep) {
	h.cycle = int64(index + 1)

	report, err := h.controller.RunCycle(ctx)

	code := ""
	var ce *schedule.CycleError
	if errors.As(err, &ce) {
		code = string(ce.Code)
	} else if err != nil {
		h.result.AddError(fmt.Sprintf("cycles[%d]: %v", index, err))
		return
	}

	h.result.Trace = append(h.result.Trace, TraceEvent{
		Type:      EventCycle,
		Cycle:     h.cycle,
		Rows:      report.Rows,
		ErrorCode: code,
		Params:    h.controller.Params(),
	})

	if step.Expect == nil {
		return
	}
	if step.Expect.Error != code {
		h.result.AddError(fmt.Sprintf("cycles[%d]: expected error %q, got %q (%v)", index, step.Expect.Error, code, err))
	}
	if step.Expect.Rows != nil && *step.Expect.Rows != report.Rows {
		h.result.AddError(fmt.Sprintf("cycles[%d]: expected %d rows, got %d", index, *step.Expect.Rows, report.Rows))
	}
}
