package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guruthechosen/openclaw-harness/internal/config"
	"github.com/guruthechosen/openclaw-harness/internal/engine"
	"github.com/guruthechosen/openclaw-harness/internal/event"
)

func newCheckCommand() *cobra.Command {
	var toolName string
	var paramsJSON string

	cmd := &cobra.Command{
		Use:   "check [command]",
		Short: "Evaluate a tool call against the current rules without executing it",
		Long: `Evaluates a tool call the same way the hook API would and prints the
verdict. With a positional argument the call is treated as an exec
command; --tool and --params evaluate an arbitrary tool payload.

The exit code is 0 for allow and 1 for block, so check works in scripts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			applyLogConfig(cfg)

			var params json.RawMessage
			switch {
			case len(args) == 1:
				toolName = "exec"
				encoded, _ := json.Marshal(map[string]string{"command": args[0]})
				params = encoded
			case toolName != "" && paramsJSON != "":
				params = json.RawMessage(paramsJSON)
			default:
				return fmt.Errorf("provide a command argument or --tool with --params")
			}

			prov := buildProvider(cfg)
			prov.WatchOverlay(cmd.Context(), cfg.Rules.OverlayPath)
			eng := engine.New(prov, engineOptions(cfg)...)

			ev := event.Extract(toolName, params)
			verdict := eng.Evaluate(cmd.Context(), ev)

			out, _ := json.MarshalIndent(verdict, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if verdict.Blocked() {
				return fmt.Errorf("blocked: %s", verdict.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&toolName, "tool", "", "tool name to evaluate")
	cmd.Flags().StringVar(&paramsJSON, "params", "", "tool params as JSON")
	return cmd
}
