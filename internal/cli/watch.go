package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/blendin/internal/model"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <code>",
		Short: "Spectate a lobby's events",
		Long: `Connect to the lobby's SSE endpoint and print its broadcasts as they happen.

Spectators see everything the players see except private messages, so the
topic and the faker stay hidden until the results are revealed.

Exits when the lobby closes. Press Ctrl+C to disconnect early.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return streamEvents(ctx, strings.ToUpper(args[0]), NewOutput(cfg.Output, cmd.OutOrStdout()))
		},
	}
}

func streamEvents(ctx context.Context, lobbyCode string, out *Output) error {
	url := strings.TrimSuffix(cfg.ServerURL, "/") + lobbyPath(lobbyCode) + "/events"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// No timeout for SSE
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return decodeError(resp.StatusCode, body)
	}

	err = readEvents(resp.Body, out)
	if ctx.Err() != nil {
		out.PrintMessage("Disconnected")
		return nil
	}
	return err
}

// readEvents prints SSE frames until the lobby closes or the stream ends
func readEvents(r io.Reader, out *Output) error {
	names := roster{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var currentEvent string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			currentEvent = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			if currentEvent == "" || currentEvent == "connected" {
				currentEvent, dataLines = "", nil
				continue
			}

			var ev WireEvent
			if err := json.Unmarshal([]byte(strings.Join(dataLines, "\n")), &ev); err != nil {
				return fmt.Errorf("malformed event %q: %w", currentEvent, err)
			}
			printEvent(out, ev, names)
			if ev.Type == model.EventLobbyClosed {
				return nil
			}
			currentEvent, dataLines = "", nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream error: %w", err)
	}
	return nil
}

// printEvent writes an event as a JSON line or a readable sentence
func printEvent(out *Output, ev WireEvent, names roster) {
	if out.format == "json" {
		data, _ := json.Marshal(ev)
		_, _ = fmt.Fprintln(out.w, string(data))
		return
	}
	timestamp := ev.Timestamp.Local().Format("15:04:05")
	_, _ = fmt.Fprintf(out.w, "[%s] %s\n", timestamp, describe(ev, names))
}
