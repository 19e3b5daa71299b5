package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/sqlpoll/internal/config"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults and SQLPOLL_* environment
overrides have been applied.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			if rootOpts.Format == "json" {
				return (&OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}).Success(cfg)
			}
			return cfg.Show(cmd.OutOrStdout())
		},
	})

	return cmd
}
