package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlpoll/internal/config"
	"github.com/roach88/sqlpoll/internal/schedule"
	"github.com/roach88/sqlpoll/internal/sqldb"
	"github.com/roach88/sqlpoll/internal/watermark"
)

// Placeholder sources reported by validate.
const (
	SourceUser      = "user"
	SourceRuntime   = "runtime"
	SourceWatermark = "watermark"
	SourceMissing   = "missing"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid        bool          `json:"valid"`
	Errors       []string      `json:"errors,omitempty"`
	Warnings     []string      `json:"warnings,omitempty"`
	Placeholders []Placeholder `json:"placeholders,omitempty"`
}

// Placeholder describes where a statement placeholder gets its value.
type Placeholder struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Connect bool
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and statement without polling",
		Long: `Validate the configuration, parse the statement, and check that every
placeholder has a value.

Placeholders are resolved from the configured parameters (user), from
sql_last_start (runtime) or from watermarks (last_min_*/last_max_*). A
watermark placeholder without an initial parameter has no value until the
first row is seen, so the first cycle fails with a binding error; this is
reported as a warning.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Connect, "connect", false, "also connect to the database and ping it")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		_ = formatter.Error("E_CONFIG", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	result := validateConfig(cfg)

	if opts.Connect && result.Valid {
		if err := pingSource(cmd.Context(), cfg); err != nil {
			result.Errors = append(result.Errors, err.Error())
			result.Valid = false
		}
	}

	if formatter.JSON() {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		printValidation(cmd, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(result.Errors)))
	}
	return nil
}

func validateConfig(cfg *config.Config) ValidationResult {
	result := ValidationResult{Valid: true}

	if err := cfg.Validate(); err != nil {
		for _, e := range unjoin(err) {
			result.Errors = append(result.Errors, e.Error())
		}
	}

	// Problems with these were already reported by Validate.
	stmt, err := cfg.ParseStatement()
	if err != nil {
		return finish(result)
	}
	params, err := cfg.Params()
	if err != nil {
		return finish(result)
	}

	for _, name := range stmt.Names() {
		p := Placeholder{Name: name}
		_, configured := params[name]
		switch {
		case name == schedule.SQLLastStart:
			p.Source = SourceRuntime
		case configured:
			p.Source = SourceUser
		case watermark.IsKey(name):
			p.Source = SourceWatermark
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s has no initial value: the first cycle fails until it is seeded or restored from state", name))
		default:
			p.Source = SourceMissing
			result.Errors = append(result.Errors, fmt.Sprintf("unresolved parameter :%s", name))
		}
		result.Placeholders = append(result.Placeholders, p)
	}

	return finish(result)
}

func finish(result ValidationResult) ValidationResult {
	result.Valid = len(result.Errors) == 0
	return result
}

// unjoin splits an errors.Join result into its parts.
func unjoin(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

func pingSource(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := sqldb.Open(ctx, cfg.Connection.Options())
	if err != nil {
		return fmt.Errorf("connection: %w", err)
	}
	return db.Close()
}

func printValidation(cmd *cobra.Command, result ValidationResult) {
	w := cmd.OutOrStdout()

	for _, p := range result.Placeholders {
		fmt.Fprintf(w, "  :%s (%s)\n", p.Name, p.Source)
	}
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠ %s\n", warn)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(w, "✗ %s\n", e)
	}

	if result.Valid {
		fmt.Fprintln(w, "✓ Configuration valid")
	}
}
