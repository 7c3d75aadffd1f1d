package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newLobbyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lobby",
		Short: "Lobby management commands",
	}

	cmd.AddCommand(newLobbyCreateCmd())
	cmd.AddCommand(newLobbyGetCmd())
	cmd.AddCommand(newLobbyListCmd())
	cmd.AddCommand(newLobbyCloseCmd())
	cmd.AddCommand(newLobbyQRCmd())

	return cmd
}

func newLobbyCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a new lobby",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result CreateResult

			if err := client.Post(cmd.Context(), "/api/v1/lobbies", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}

func newLobbyGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Get lobby details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Lobby

			if err := client.Get(cmd.Context(), lobbyPath(args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}

func newLobbyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open lobbies",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result LobbyList

			if err := client.Get(cmd.Context(), "/api/v1/lobbies", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}

func newLobbyCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <code>",
		Short: "Close a lobby, disconnecting everyone in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.ToUpper(args[0])

			if err := client.Delete(cmd.Context(), lobbyPath(code)); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.PrintMessage(fmt.Sprintf("Closed lobby %s", code))
			return nil
		},
	}
}

func newLobbyQRCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "qr <code>",
		Short: "Save a QR code of the lobby's join link as a PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.ToUpper(args[0])
			png, err := client.QR(cmd.Context(), code)
			if err != nil {
				return err
			}

			if file == "" {
				file = code + ".png"
			}
			if err := os.WriteFile(file, png, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", file, err)
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).PrintMessage(fmt.Sprintf("Wrote %s", file))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Output file (default <code>.png)")

	return cmd
}

func lobbyPath(code string) string {
	return fmt.Sprintf("/api/v1/lobbies/%s", strings.ToUpper(strings.TrimSpace(code)))
}
