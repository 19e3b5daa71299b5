package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlpoll/internal/config"
	"github.com/roach88/sqlpoll/internal/emit"
	"github.com/roach88/sqlpoll/internal/ident"
	"github.com/roach88/sqlpoll/internal/query"
	"github.com/roach88/sqlpoll/internal/schedule"
	"github.com/roach88/sqlpoll/internal/sqldb"
	"github.com/roach88/sqlpoll/internal/store"
	"github.com/roach88/sqlpoll/internal/value"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	// Once runs a single cycle even when a schedule is configured.
	Once bool

	// IDs allows overriding the cycle and record ID generator (for testing).
	// If nil, defaults to ident.UUIDv7.
	IDs ident.Generator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start polling",
		Long: `Start polling the configured database.

Without a schedule, one cycle runs and the command exits with that cycle's
outcome. With a schedule, cycles run until SIGINT or SIGTERM; a running cycle
always completes before the command exits. Records are written as JSON lines
to output.path (stdout by default).

Examples:
  sqlpoll run -c orders.yaml
  sqlpoll run -c orders.yaml --once --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPoller(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Once, "once", false, "run a single cycle and exit, ignoring the schedule")

	return cmd
}

func runPoller(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	setupLogging(cmd.ErrOrStderr(), opts.RootOptions, cfg.Log)

	stmt, err := cfg.ParseStatement()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read statement", err)
	}
	sched, err := schedule.ParseSchedule(cfg.Schedule)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid schedule", err)
	}
	if opts.Once {
		sched = nil
	}
	params, err := cfg.Params()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid parameters", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	slog.Info("connecting to source", "driver", cfg.Connection.Driver)
	db, err := sqldb.Open(ctx, cfg.Connection.Options())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to connect to database", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing source database", "error", closeErr)
		}
	}()

	var (
		state    schedule.StateStore
		startSeq int64
	)
	if cfg.State.Persistent() {
		st, err := openState(ctx, cfg, params)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing state database", "error", closeErr)
			}
		}()

		if startSeq, err = st.LastSeq(ctx, cfg.Instance); err != nil {
			return WrapExitError(ExitCommandError, "failed to read cycle history", err)
		}
		state = &stateSink{store: st, params: cfg.State.RecordLastRun, history: cfg.State.History}
	}

	out, closeOut, err := openOutput(cfg.Output.Path, cmd.OutOrStdout())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open output", err)
	}
	defer closeOut()

	queue := emit.NewQueue(cfg.Output.QueueSize)
	drained := make(chan error, 1)
	go func() {
		drained <- emit.Drain(context.Background(), queue, emit.NewLineWriter(out))
	}()

	ids := opts.IDs
	if ids == nil {
		ids = ident.UUIDv7{}
	}
	emitOpts := []emit.Option{emit.WithIDs(ids)}
	if d := cfg.Decorate.Decorator(); d != nil {
		emitOpts = append(emitOpts, emit.WithDecorator(d))
	}

	controllerOpts := schedule.Options{
		Instance:  cfg.Instance,
		Statement: stmt,
		Params:    params,
		Executor: query.NewExecutor(db, query.Options{
			Dialect:          db.Dialect(),
			LowercaseColumns: cfg.LowercaseColumnNames,
			PageSize:         cfg.PageSize,
		}),
		Emitter:  emit.NewEmitter(queue, emitOpts...),
		Schedule: sched,
		IDs:      ids,
		State:    state,
		StartSeq: startSeq,
	}
	if cfg.Connection.ValidateConnection {
		controllerOpts.Pinger = db
	}

	controller, err := schedule.New(controllerOpts)
	if err != nil {
		queue.Close()
		<-drained
		return WrapExitError(ExitCommandError, "failed to create controller", err)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-queue.Failed():
			slog.Error("output failed, shutting down", "error", queue.Err())
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	slog.Info("poller starting", "instance", cfg.Instance, "schedule", cfg.Schedule, "once", sched == nil)
	runErr := controller.Run(ctx)

	queue.Close()
	if err := <-drained; err != nil && runErr == nil {
		return WrapExitError(ExitFailure, "failed to write records", err)
	}

	if runErr != nil {
		if errors.Is(runErr, schedule.ErrStopped) {
			return nil
		}
		return WrapExitError(ExitFailure, "cycle failed", runErr)
	}

	stats := controller.Stats()
	slog.Info("poller stopped", "cycles", stats.Cycles, "failures", stats.Failures, "dropped", stats.Dropped, "rows", stats.Rows)
	return nil
}

// openState opens the state database, applies clean_run, and merges the
// persisted runtime parameters into params. Persisted values win over
// configured ones so a restart resumes from the last watermark.
func openState(ctx context.Context, cfg *config.Config, params value.Params) (*store.Store, error) {
	st, err := store.Open(cfg.State.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open state database", err)
	}

	if cfg.State.CleanRun {
		slog.Info("clean run: discarding persisted parameters", "instance", cfg.Instance)
		if err := st.ClearParams(ctx, cfg.Instance); err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to clear state", err)
		}
	}

	if cfg.State.RecordLastRun {
		saved, err := st.LoadParams(ctx, cfg.Instance)
		if err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to load state", err)
		}
		for k, v := range schedule.RuntimeParams(saved) {
			params[k] = v
		}
		slog.Debug("restored parameters", "instance", cfg.Instance, "count", len(saved))
	}
	return st, nil
}

// stateSink applies the state.record_last_run and state.history switches.
type stateSink struct {
	store   *store.Store
	params  bool
	history bool
}

func (s *stateSink) SaveParams(ctx context.Context, instance string, params value.Params) error {
	if !s.params {
		return nil
	}
	return s.store.SaveParams(ctx, instance, params)
}

func (s *stateSink) RecordCycle(ctx context.Context, c store.Cycle) error {
	if !s.history {
		return nil
	}
	return s.store.RecordCycle(ctx, c)
}

// openOutput returns the record destination: stdout for "-", otherwise the
// file at path opened for appending.
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, func() {
		if err := f.Close(); err != nil {
			slog.Error("error closing output", "path", path, "error", err)
		}
	}, nil
}
