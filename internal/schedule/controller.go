package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/roach88/sqlpoll/internal/emit"
	"github.com/roach88/sqlpoll/internal/ident"
	"github.com/roach88/sqlpoll/internal/query"
	"github.com/roach88/sqlpoll/internal/store"
	"github.com/roach88/sqlpoll/internal/value"
	"github.com/roach88/sqlpoll/internal/watermark"
)

// SQLLastStart is the reserved parameter holding the start time of the
// current cycle.
const SQLLastStart = "sql_last_start"

// Executor runs a statement with parameters. Implemented by *query.Executor.
type Executor interface {
	Execute(ctx context.Context, stmt *query.Statement, params value.Params) (*query.Rows, error)
}

// Emitter publishes one row. Implemented by *emit.Emitter.
//
// An Emitter that also implements emit.Flusher is flushed at the end of
// every cycle. If the flush fails the cycle fails with a publish error and
// the watermarks return to their values at the start of the cycle.
type Emitter interface {
	Emit(ctx context.Context, cycle emit.Cycle, seq int64, row value.Row) error
}

// Pinger checks the source connection before a cycle.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StateStore persists runtime parameters and cycle history.
// Implemented by *store.Store.
type StateStore interface {
	SaveParams(ctx context.Context, instance string, params value.Params) error
	RecordCycle(ctx context.Context, c store.Cycle) error
}

// State is the controller's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateArmed
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options wires a Controller. Statement, Executor and Emitter are required.
type Options struct {
	// Instance names the poller in logs and persisted state.
	Instance string

	Statement *query.Statement

	// Params is the initial parameter map. It is copied.
	Params value.Params

	Executor Executor
	Emitter  Emitter

	// Schedule decides when cycles fire. Nil means run exactly once.
	Schedule cron.Schedule

	// Clock defaults to SystemClock.
	Clock Clock

	// IDs generates cycle IDs. Defaults to ident.UUIDv7.
	IDs ident.Generator

	// State, when set, receives the runtime parameters and a history entry
	// after every cycle.
	State StateStore

	// Pinger, when set, is pinged before every cycle. A failed ping fails
	// the cycle with CodeQuery.
	Pinger Pinger

	// StartSeq resumes cycle numbering after a restart.
	StartSeq int64
}

// CycleReport summarizes one cycle.
type CycleReport struct {
	ID         string
	Seq        int64
	StartedAt  time.Time
	FinishedAt time.Time
	Rows       int64
	Err        error
}

// Stats counts cycle outcomes since the controller was created.
type Stats struct {
	Cycles   int64
	Failures int64
	Dropped  int64
	Rows     int64
}

// Controller runs cycles on a schedule with single-flight semantics.
//
// Thread-safety model:
//   - Run: called once, from one goroutine
//   - Stop, RunCycle, Params, State, Stats: safe from any goroutine
//
// INVARIANTS:
//   - at most one cycle executes at a time (running flag + cycleMu)
//   - params is written only by a running cycle, under paramsMu
//   - after Stop returns no cycle starts
type Controller struct {
	instance string
	stmt     *query.Statement
	exec     Executor
	emitter  Emitter
	schedule cron.Schedule
	clock    Clock
	ids      ident.Generator
	state    StateStore
	pinger   Pinger
	seq      *Sequence

	paramsMu sync.RWMutex
	params   value.Params

	cycleMu sync.Mutex
	running atomic.Bool

	lifecycle atomic.Int32
	resting   State // state to return to after a cycle, guarded by cycleMu

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
	started  atomic.Bool

	cycles   atomic.Int64
	failures atomic.Int64
	dropped  atomic.Int64
	rows     atomic.Int64
}

// New creates a Controller in the Idle state.
func New(opts Options) (*Controller, error) {
	if opts.Statement == nil {
		return nil, errors.New("schedule: statement is required")
	}
	if opts.Executor == nil {
		return nil, errors.New("schedule: executor is required")
	}
	if opts.Emitter == nil {
		return nil, errors.New("schedule: emitter is required")
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.IDs == nil {
		opts.IDs = ident.UUIDv7{}
	}

	params := opts.Params.Clone()

	return &Controller{
		instance: opts.Instance,
		stmt:     opts.Statement,
		exec:     opts.Executor,
		emitter:  opts.Emitter,
		schedule: opts.Schedule,
		clock:    opts.Clock,
		ids:      opts.IDs,
		state:    opts.State,
		pinger:   opts.Pinger,
		seq:      NewSequenceAt(opts.StartSeq),
		params:   params,
		resting:  StateIdle,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Run starts the controller.
//
// Without a schedule it runs one cycle, moves to Stopped and returns that
// cycle's error. With a schedule it arms the timer and blocks until ctx is
// cancelled or Stop is called; it then waits for any running cycle and
// returns nil. Failures of scheduled cycles are logged, not returned.
//
// Cancelling ctx stops future fires but never cancels a running query.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	cycleCtx := context.WithoutCancel(ctx)

	if c.schedule == nil {
		slog.Info("running single cycle", "instance", c.instance)
		_, err := c.RunCycle(cycleCtx)
		c.finish()
		return err
	}

	c.cycleMu.Lock()
	if c.State() == StateStopped {
		c.cycleMu.Unlock()
		return ErrStopped
	}
	timer := cron.New()
	timer.Schedule(c.schedule, cron.FuncJob(func() { c.fire(cycleCtx) }))
	c.resting = StateArmed
	c.setState(StateArmed)
	timer.Start()
	c.cycleMu.Unlock()

	slog.Info("schedule armed", "instance", c.instance, "next", c.schedule.Next(time.Now()))

	select {
	case <-ctx.Done():
		slog.Info("controller stopping: context cancelled", "instance", c.instance)
	case <-c.stopCh:
		slog.Info("controller stopping", "instance", c.instance)
	}

	// cron.Stop prevents new fires; its context is done once running jobs
	// have returned.
	<-timer.Stop().Done()
	c.finish()
	return nil
}

// Stop cancels the timer and blocks until any running cycle has completed.
// After Stop returns the controller is Stopped and no further cycles run.
// Stop is idempotent and may be called before Run.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })

	if !c.started.Load() {
		// Never started: there is no Run goroutine to finish for us.
		c.finish()
		return
	}
	<-c.done
}

// Done is closed once the controller reaches Stopped.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.lifecycle.Load())
}

// Params returns a copy of the current parameter map.
func (c *Controller) Params() value.Params {
	c.paramsMu.RLock()
	defer c.paramsMu.RUnlock()
	return c.params.Clone()
}

// Stats returns cycle counters.
func (c *Controller) Stats() Stats {
	return Stats{
		Cycles:   c.cycles.Load(),
		Failures: c.failures.Load(),
		Dropped:  c.dropped.Load(),
		Rows:     c.rows.Load(),
	}
}

// RunCycle runs one cycle now, synchronously. If a cycle is already running
// the request is dropped and ErrCycleInProgress is returned. After Stop it
// returns ErrStopped.
func (c *Controller) RunCycle(ctx context.Context) (CycleReport, error) {
	if !c.running.CompareAndSwap(false, true) {
		c.dropped.Add(1)
		slog.Warn("cycle dropped: previous cycle still running", "instance", c.instance)
		return CycleReport{}, ErrCycleInProgress
	}
	defer c.running.Store(false)

	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	if c.State() == StateStopped {
		return CycleReport{}, ErrStopped
	}

	c.setState(StateRunning)
	defer c.setState(c.resting)

	return c.cycle(ctx)
}

func (c *Controller) fire(ctx context.Context) {
	report, err := c.RunCycle(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrCycleInProgress), errors.Is(err, ErrStopped):
		// Already logged, or shutting down.
	default:
		slog.Error("cycle failed",
			"instance", c.instance,
			"cycle", report.ID,
			"seq", report.Seq,
			"rows", report.Rows,
			"error", err,
		)
	}
}

// cycle executes the statement once. Must hold cycleMu.
func (c *Controller) cycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{
		ID:        c.ids.Generate(),
		Seq:       c.seq.Next(),
		StartedAt: c.clock.Now(),
	}

	// Overwritten before the statement is bound and kept even if the cycle
	// fails.
	c.paramsMu.Lock()
	c.params[SQLLastStart] = value.NewTime(report.StartedAt)
	c.paramsMu.Unlock()

	start := c.Params()

	log := slog.With("instance", c.instance, "cycle", report.ID, "seq", report.Seq)
	log.Debug("cycle started")

	err := c.execute(ctx, &report)
	if ferr := c.flush(ctx); ferr != nil {
		// Delivery is unknown past the failure, so no row of this cycle
		// may move a watermark.
		c.paramsMu.Lock()
		c.params = start
		c.paramsMu.Unlock()
		log.Warn("output failed, watermarks rolled back", "error", ferr)
		if err == nil {
			err = ferr
		}
	}
	if err != nil {
		err = &CycleError{
			Code:    codeOf(err),
			CycleID: report.ID,
			Seq:     report.Seq,
			Rows:    report.Rows,
			Err:     err,
		}
		c.failures.Add(1)
	}
	report.FinishedAt = c.clock.Now()
	report.Err = err

	c.cycles.Add(1)
	c.rows.Add(report.Rows)
	c.persist(ctx, report)

	if err == nil {
		log.Info("cycle completed", "rows", report.Rows, "duration", report.FinishedAt.Sub(report.StartedAt))
	}
	return report, err
}

func (c *Controller) execute(ctx context.Context, report *CycleReport) error {
	if c.pinger != nil {
		if err := c.pinger.Ping(ctx); err != nil {
			return &query.QueryError{Op: "ping", Cause: err}
		}
	}

	rows, err := c.exec.Execute(ctx, c.stmt, c.Params())
	if err != nil {
		return err
	}
	defer rows.Close()

	cycle := emit.Cycle{ID: report.ID}
	for rows.Next() {
		row := rows.Row()

		if err := c.emitter.Emit(ctx, cycle, report.Rows+1, row); err != nil {
			return err
		}
		report.Rows++

		c.paramsMu.Lock()
		next, err := watermark.Update(c.params, row)
		if err == nil {
			c.params = next
		}
		c.paramsMu.Unlock()
		if err != nil {
			return err
		}
	}
	return rows.Err()
}

// flush waits for asynchronously published records to be delivered.
func (c *Controller) flush(ctx context.Context) error {
	f, ok := c.emitter.(emit.Flusher)
	if !ok {
		return nil
	}
	return f.Flush(ctx)
}

// persist writes runtime parameters and the history entry. Failures are
// logged; they do not change the cycle's outcome.
func (c *Controller) persist(ctx context.Context, report CycleReport) {
	if c.state == nil {
		return
	}

	if err := c.state.SaveParams(ctx, c.instance, RuntimeParams(c.Params())); err != nil {
		slog.Error("failed to persist parameters", "instance", c.instance, "cycle", report.ID, "error", err)
	}

	entry := store.Cycle{
		ID:         report.ID,
		Instance:   c.instance,
		Seq:        report.Seq,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Rows:       report.Rows,
		Status:     store.StatusOK,
	}
	if report.Err != nil {
		entry.Status = store.StatusFailed
		entry.ErrorCode = string(codeOf(report.Err))
		var ce *CycleError
		if errors.As(report.Err, &ce) {
			entry.ErrorCode = string(ce.Code)
			entry.Error = ce.Err.Error()
		} else {
			entry.Error = report.Err.Error()
		}
	}
	if err := c.state.RecordCycle(ctx, entry); err != nil {
		slog.Error("failed to record cycle", "instance", c.instance, "cycle", report.ID, "error", err)
	}
}

func (c *Controller) setState(s State) {
	c.lifecycle.Store(int32(s))
}

// finish moves to Stopped, waiting for any running cycle, and closes done.
func (c *Controller) finish() {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	if c.State() == StateStopped {
		return
	}
	c.resting = StateStopped
	c.setState(StateStopped)
	close(c.done)
	slog.Info("controller stopped", "instance", c.instance, "cycles", c.cycles.Load())
}

// RuntimeParams returns the entries of params that the controller derives at
// runtime: sql_last_start and the watermarks. These are what is persisted;
// user parameters always come from configuration.
func RuntimeParams(params value.Params) value.Params {
	out := value.Params{}
	for k, v := range params {
		if k == SQLLastStart || watermark.IsKey(k) {
			out[k] = v
		}
	}
	return out
}
