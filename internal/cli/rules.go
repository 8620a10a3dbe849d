package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/guruthechosen/openclaw-harness/internal/config"
)

func newRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the currently effective rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			applyLogConfig(cfg)

			prov := buildProvider(cfg)
			prov.WatchOverlay(cmd.Context(), cfg.Rules.OverlayPath)
			set, tier := prov.Effective(cmd.Context())

			fmt.Fprintf(cmd.OutOrStdout(), "tier: %s (%d rules)\n\n", tier, set.Len())

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tRISK\tACTION\tPROTECTED")
			for _, cr := range set.Rules() {
				protected := ""
				if cr.Protected {
					protected = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					cr.Name, cr.GetMatchType(), cr.GetRiskLevel(), cr.GetAction(), protected)
			}
			return w.Flush()
		},
	}
}
