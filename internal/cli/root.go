// Package cli wires the harness commands.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/guruthechosen/openclaw-harness/internal/logger"
)

var (
	flagConfig   string
	flagLogLevel string
	flagNoColor  bool
)

// NewRootCommand builds the root command with all subcommands attached.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "openclaw-harness",
		Short: "Pre-execution rule enforcement for autonomous coding agents",
		Long: `openclaw-harness intercepts agent tool calls before they execute and
evaluates them against centrally managed rules, a local overlay, and a
compiled-in self-protection set. Matched rules alert or block; the
harness itself cannot be disabled by the agent it guards.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagLogLevel != "" {
				logger.SetGlobalLevelFromString(flagLogLevel)
			}
			if flagNoColor {
				logger.SetColored(false)
			}
		},
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file path")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored log output")

	root.AddCommand(
		newStartCommand(),
		newCheckCommand(),
		newRulesCommand(),
		newStatusCommand(),
		newVersionCommand(),
	)
	return root
}
