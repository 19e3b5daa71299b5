// Package schedule drives execution cycles for one polling instance.
//
// A Controller owns the statement, the parameter map carried between cycles,
// the executor and the emitter. It decides when cycles run and guarantees they
// never overlap.
//
// # Lifecycle
//
//	Idle ──Run──▶ Armed ──fire──▶ Running ──▶ Armed ... ──Stop──▶ Stopped
//
// Without a schedule, Run performs a single cycle and the controller moves
// straight to Stopped.
//
// # Single-flight
//
// At most one cycle runs at a time. A timer fire (or RunCycle call) that
// arrives while a cycle is running is dropped, counted in Stats().Dropped
// and logged; it is not queued. Under a slow query this keeps the backlog
// bounded at zero.
//
// # Cycles
//
// A cycle captures its start time once, writes it to sql_last_start, runs
// the statement, and for each row publishes a record and then folds the row
// into the watermarks. Watermarks therefore never advance past a row that was
// not published. Failures end the cycle and are returned as *CycleError;
// scheduled cycles log the failure and the next fire is the retry.
//
// Stop never cancels a running query. It waits for the cycle to finish.
package schedule
