package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd builds the blendin command tree
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "blendin",
		Short: "CLI client for the Blend In game server",
		Long: `blendin is a CLI client for a Blend In server.

It can create and inspect lobbies over the JSON API, watch a lobby's
broadcasts as a spectator, and play a full game over the WebSocket endpoint.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			client = NewClient(cfg.ServerURL)
			if cfg.Verbose {
				client.trace = cmd.ErrOrStderr()
			}
			return nil
		},
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: BLENDIN_SERVER)")
	flags.StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Print each API request to stderr")

	rootCmd.AddCommand(
		newLobbyCmd(),
		newWatchCmd(),
		newPlayCmd(),
		newHealthCmd(),
	)

	return rootCmd
}

// Execute runs the CLI, exiting non-zero on failure
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
