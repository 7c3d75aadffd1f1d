package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mcoot/blendin/internal/model"
	"github.com/mcoot/blendin/internal/transport/ws"
)

const playHelp = `Commands:
  start [topic]   start a round (host only)
  next [topic]    start the next round from the results screen (host only)
  word <word>     submit your word when it is your turn
  vote <name>     vote for who you think the faker is
  help            show this message
  quit            leave the lobby`

func newPlayCmd() *cobra.Command {
	var (
		name   string
		create bool
	)

	cmd := &cobra.Command{
		Use:   "play [code]",
		Short: "Join a lobby and play interactively",
		Long: `Connect to the game server over WebSocket, join a lobby and play from the terminal.

Pass --create instead of a code to open a new lobby and join it as host.

` + playHelp,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return errors.New("--name is required")
			}
			code := ""
			if len(args) == 1 {
				code = args[0]
			}
			if (code == "") == !create {
				return errors.New("give exactly one of a lobby code or --create")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.WebSocketURL(), nil)
			if err != nil {
				return fmt.Errorf("connection failed: %w", err)
			}

			session := newPlaySession(conn, NewOutput(cfg.Output, cmd.OutOrStdout()))
			return session.run(ctx, os.Stdin, code, name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	cmd.Flags().BoolVar(&create, "create", false, "Create a new lobby and join it as host")

	return cmd
}

// playSession drives one player's connection. Only the input goroutine
// writes to the socket once the lobby has been joined.
type playSession struct {
	conn    *websocket.Conn
	out     *Output
	leaving atomic.Bool

	mu    sync.Mutex // guards names and output
	names roster
}

func newPlaySession(conn *websocket.Conn, out *Output) *playSession {
	return &playSession{
		conn:  conn,
		out:   out,
		names: roster{},
	}
}

// run joins code (creating a lobby first when code is empty) and then plays
// until the lobby closes, input ends or ctx is cancelled
func (p *playSession) run(ctx context.Context, in io.Reader, code, name string) error {
	defer func() { _ = p.conn.Close() }()

	// Unblock reads on cancellation
	stop := context.AfterFunc(ctx, p.leave)
	defer stop()

	if code == "" {
		if err := p.conn.WriteJSON(ws.Inbound{Action: ws.ActionCreateLobby}); err != nil {
			return fmt.Errorf("create lobby: %w", err)
		}
		ev, err := p.await(model.EventLobbyCreated)
		if err != nil {
			return err
		}
		var created model.LobbyCreatedPayload
		if err := decodePayload(ev, &created); err != nil {
			return err
		}
		code = string(created.Code)
	}

	if err := p.conn.WriteJSON(ws.Inbound{Action: ws.ActionJoinLobby, Code: code, Name: name}); err != nil {
		return fmt.Errorf("join lobby: %w", err)
	}
	if _, err := p.await(model.EventJoined); err != nil {
		return err
	}
	if p.out.format != "json" {
		p.print(playHelp)
	}

	go p.readInput(in)

	for {
		ev, err := p.next()
		if err != nil {
			if p.leaving.Load() {
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		}
		if ev.Type == model.EventLobbyClosed {
			return nil
		}
	}
}

// await prints events until one of type t arrives. An error event fails the wait.
func (p *playSession) await(t model.EventType) (WireEvent, error) {
	for {
		ev, err := p.next()
		if err != nil {
			return WireEvent{}, fmt.Errorf("connection lost: %w", err)
		}
		switch ev.Type {
		case t:
			return ev, nil
		case model.EventError:
			var e model.ErrorPayload
			_ = decodePayload(ev, &e)
			return WireEvent{}, fmt.Errorf("%s (%s)", e.Message, e.Kind)
		}
	}
}

// next reads and prints one event
func (p *playSession) next() (WireEvent, error) {
	var ev WireEvent
	if err := p.conn.ReadJSON(&ev); err != nil {
		return WireEvent{}, err
	}
	p.mu.Lock()
	printEvent(p.out, ev, p.names)
	p.mu.Unlock()
	return ev, nil
}

func (p *playSession) readInput(in io.Reader) {
	defer p.leave()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		p.mu.Lock()
		msg, err := parseCommand(line, p.names)
		p.mu.Unlock()
		switch {
		case errors.Is(err, errQuit):
			return
		case errors.Is(err, errHelp):
			p.print(playHelp)
			continue
		case err != nil:
			p.print(err.Error())
			continue
		}

		_ = p.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := p.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (p *playSession) print(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out.PrintMessage(msg)
}

// leave closes the socket; the server treats that as leaving the lobby
func (p *playSession) leave() {
	if p.leaving.Swap(true) {
		return
	}
	_ = p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = p.conn.Close()
}

var (
	errQuit = errors.New("quit")
	errHelp = errors.New("help")
)

// parseCommand turns one line of input into an action
func parseCommand(line string, names roster) (ws.Inbound, error) {
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(verb) {
	case "start":
		return ws.Inbound{Action: ws.ActionStartRound, Topic: arg}, nil
	case "next":
		return ws.Inbound{Action: ws.ActionNextRound, Topic: arg}, nil
	case "word", "say":
		if arg == "" {
			return ws.Inbound{}, errors.New("usage: word <word>")
		}
		return ws.Inbound{Action: ws.ActionSubmitWord, Word: arg}, nil
	case "vote":
		if arg == "" {
			return ws.Inbound{}, errors.New("usage: vote <name>")
		}
		id, ok := names.find(arg)
		if !ok {
			return ws.Inbound{}, fmt.Errorf("no player called %q", arg)
		}
		return ws.Inbound{Action: ws.ActionSubmitVote, TargetID: id}, nil
	case "help", "?":
		return ws.Inbound{}, errHelp
	case "quit", "exit", "leave":
		return ws.Inbound{}, errQuit
	default:
		return ws.Inbound{}, fmt.Errorf("unknown command %q, try help", verb)
	}
}

func decodePayload(ev WireEvent, into any) error {
	if err := json.Unmarshal(ev.Payload, into); err != nil {
		return fmt.Errorf("malformed %s event: %w", ev.Type, err)
	}
	return nil
}
