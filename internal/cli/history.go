package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// CycleEntry is one history row in command output.
type CycleEntry struct {
	ID         string  `json:"id"`
	Seq        int64   `json:"seq"`
	StartedAt  string  `json:"started_at"`
	DurationMS float64 `json:"duration_ms"`
	Rows       int64   `json:"rows"`
	Status     string  `json:"status"`
	ErrorCode  string  `json:"error_code,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent cycles",
		Long: `List the most recent cycles of an instance, newest first.

Examples:
  sqlpoll history -c orders.yaml
  sqlpoll history --state ./state.db --instance orders --limit 50 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	addStateFlags(cmd, opts)
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "number of cycles to show (0 for all)")

	return cmd
}

func runHistory(opts *StateOptions, cmd *cobra.Command) error {
	st, instance, err := openStateStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	cycles, err := st.ListCycles(cmd.Context(), instance, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read history", err)
	}

	entries := make([]CycleEntry, len(cycles))
	for i, c := range cycles {
		entries[i] = CycleEntry{
			ID:         c.ID,
			Seq:        c.Seq,
			StartedAt:  c.StartedAt.UTC().Format(time.RFC3339),
			DurationMS: float64(c.Duration()) / float64(time.Millisecond),
			Rows:       c.Rows,
			Status:     c.Status,
			ErrorCode:  c.ErrorCode,
			Error:      c.Error,
		}
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if formatter.JSON() {
		return formatter.Success(map[string]any{"instance": instance, "cycles": entries})
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintf(w, "No cycles recorded for %s.\n", instance)
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tSTARTED\tDURATION\tROWS\tSTATUS\tERROR")
	for _, e := range entries {
		errText := e.ErrorCode
		if e.Error != "" {
			errText += ": " + e.Error
		}
		fmt.Fprintf(tw, "%d\t%s\t%.0fms\t%d\t%s\t%s\n", e.Seq, e.StartedAt, e.DurationMS, e.Rows, e.Status, errText)
	}
	return tw.Flush()
}
