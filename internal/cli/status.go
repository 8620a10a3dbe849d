package cli

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/guruthechosen/openclaw-harness/internal/config"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Query a running harness for its status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}

			client := &http.Client{Timeout: 3 * time.Second}
			url := fmt.Sprintf("http://%s/api/status", cfg.Server.Addr())
			resp, err := client.Get(url)
			if err != nil {
				return fmt.Errorf("harness not reachable at %s: %w", cfg.Server.Addr(), err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(body))
			return nil
		},
	}
}
