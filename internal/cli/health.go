package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long: `Print the server's health. Exits non-zero when the server is reachable but
degraded (for example, no topics are loaded), so it can be used as a probe.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult
			if err := client.Get(cmd.Context(), "/api/v1/health", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			if result.Status != "ok" {
				return fmt.Errorf("server is %s", result.Status)
			}
			return nil
		},
	}
}
