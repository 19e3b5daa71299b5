package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlpoll/internal/config"
	"github.com/roach88/sqlpoll/internal/store"
	"github.com/roach88/sqlpoll/internal/value"
)

// StateOptions holds flags shared by the state and history commands.
type StateOptions struct {
	*RootOptions
	StatePath string
	Instance  string
	Clear     bool
	Limit     int
}

// ParamEntry is one persisted parameter in command output.
type ParamEntry struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show or clear persisted parameters",
		Long: `Show the parameters persisted for an instance: sql_last_start and the
last_min_*/last_max_* watermarks restored by the next run.

Examples:
  sqlpoll state -c orders.yaml
  sqlpoll state --state ./state.db --instance orders --clear`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runState(opts, cmd)
		},
	}

	addStateFlags(cmd, opts)
	cmd.Flags().BoolVar(&opts.Clear, "clear", false, "delete the persisted parameters")

	return cmd
}

func addStateFlags(cmd *cobra.Command, opts *StateOptions) {
	cmd.Flags().StringVar(&opts.StatePath, "state", "", "state database path (default state.path from config)")
	cmd.Flags().StringVar(&opts.Instance, "instance", "", "instance name (default instance from config)")
}

// openStateStore resolves the state path and instance from flags, falling
// back to the configuration.
func openStateStore(opts *StateOptions) (*store.Store, string, error) {
	path, instance := opts.StatePath, opts.Instance
	if path == "" || instance == "" {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, "", WrapExitError(ExitCommandError, "failed to load config", err)
		}
		if path == "" {
			path = cfg.State.Path
		}
		if instance == "" {
			instance = cfg.Instance
		}
	}
	if path == "" {
		return nil, "", NewExitError(ExitCommandError, "no state database: set state.path or --state")
	}

	st, err := store.Open(path)
	if err != nil {
		return nil, "", WrapExitError(ExitCommandError, "failed to open state database", err)
	}
	return st, instance, nil
}

func runState(opts *StateOptions, cmd *cobra.Command) error {
	st, instance, err := openStateStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	if opts.Clear {
		if err := st.ClearParams(ctx, instance); err != nil {
			return WrapExitError(ExitCommandError, "failed to clear state", err)
		}
		if formatter.JSON() {
			return formatter.Success(map[string]string{"instance": instance, "cleared": "true"})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared persisted parameters for %s\n", instance)
		return nil
	}

	params, err := st.LoadParams(ctx, instance)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load state", err)
	}

	entries := make([]ParamEntry, 0, len(params))
	for _, name := range params.SortedKeys() {
		v := params[name]
		entries = append(entries, ParamEntry{Name: name, Kind: string(v.Kind()), Value: value.Format(v)})
	}

	if formatter.JSON() {
		return formatter.Success(map[string]any{"instance": instance, "parameters": entries})
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintf(w, "No persisted parameters for %s.\n", instance)
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tVALUE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, e.Kind, e.Value)
	}
	return tw.Flush()
}
