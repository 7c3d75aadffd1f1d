package e2e_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/blendin/internal/api"
	"github.com/mcoot/blendin/internal/factory"
	"github.com/mcoot/blendin/internal/model"
	"github.com/mcoot/blendin/internal/services/lobby"
	"github.com/mcoot/blendin/internal/transport/ws"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(t.TempDir(), "blendin-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/blendin")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
	}
}

func (r *cliRunner) command(args ...string) *exec.Cmd {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--output", "json",
	}, args...)
	return exec.Command(r.binaryPath, fullArgs...)
}

func (r *cliRunner) run(args ...string) (string, error) {
	output, err := r.command(args...).CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	app      *factory.App
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	lobbyCfg := lobby.DefaultConfig()
	lobbyCfg.Session.DiscussionTicks = 2
	lobbyCfg.Session.TickInterval = 20 * time.Millisecond

	// Create application
	app, err := factory.New(context.Background(), factory.Config{
		Logger: logger,
		Lobby:  lobbyCfg,
	})
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := api.NewServer(app.Router(""), api.DefaultServerConfig(), logger)
	server.RegisterOnShutdown(func() {
		app.Registry.Close(context.Background())
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.Run(ctx, listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	serverURL := "http://" + listener.Addr().String()
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		app:  app,
		addr: serverURL,
		shutdown: func() {
			cancel()
			<-done
			_ = app.Close(context.Background())
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type healthResponse struct {
	Status  string `json:"status"`
	Lobbies int    `json:"lobbies"`
	Topics  int    `json:"topics"`
}

type createResponse struct {
	Code string `json:"code"`
}

type lobbyResponse struct {
	Code    string `json:"code"`
	Phase   string `json:"phase"`
	Round   int    `json:"round"`
	Players []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Score int    `json:"score"`
	} `json:"players"`
}

type listResponse struct {
	Lobbies []string `json:"lobbies"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// event is a server event as printed by the CLI or read off a socket
type event struct {
	Type    string          `json:"type"`
	Code    string          `json:"code"`
	Payload json.RawMessage `json:"payload"`
}

func (e event) decode(t *testing.T, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(e.Payload, into))
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)

	var resp healthResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Zero(t, resp.Lobbies)
	assert.Positive(t, resp.Topics)
}

func TestCLI_LobbyCommands(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Create lobby
	output, err := cli.run("lobby", "create")
	require.NoError(t, err, "output: %s", output)

	var created createResponse
	require.NoError(t, json.Unmarshal([]byte(output), &created))
	require.Len(t, created.Code, 4)

	// Get lobby with a lowercase code
	output, err = cli.run("lobby", "get", strings.ToLower(created.Code))
	require.NoError(t, err, "output: %s", output)

	var lobbyResp lobbyResponse
	require.NoError(t, json.Unmarshal([]byte(output), &lobbyResp))
	assert.Equal(t, created.Code, lobbyResp.Code)
	assert.Equal(t, "waiting", lobbyResp.Phase)
	assert.Empty(t, lobbyResp.Players)

	// List lobbies
	output, err = cli.run("lobby", "list")
	require.NoError(t, err, "output: %s", output)

	var list listResponse
	require.NoError(t, json.Unmarshal([]byte(output), &list))
	assert.Equal(t, []string{created.Code}, list.Lobbies)

	// Close lobby
	output, err = cli.run("lobby", "close", created.Code)
	require.NoError(t, err, "output: %s", output)

	var msg messageResponse
	require.NoError(t, json.Unmarshal([]byte(output), &msg))
	assert.Equal(t, "Closed lobby "+created.Code, msg.Message)

	// Gone now
	output, err = cli.run("lobby", "get", created.Code)
	assert.Error(t, err)
	assert.Contains(t, output, "LOBBY_NOT_FOUND")
}

// playProcess is a `blendin play` process driven through its stdin
type playProcess struct {
	t      *testing.T
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	events chan event
}

func startPlay(t *testing.T, cli *cliRunner, args ...string) *playProcess {
	t.Helper()

	cmd := cli.command(append([]string{"play"}, args...)...)
	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	cmd.Stderr = os.Stderr
	require.NoError(t, cmd.Start())

	p := &playProcess{t: t, cmd: cmd, stdin: stdin, events: make(chan event, 256)}
	go func() {
		defer close(p.events)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			var ev event
			if err := json.Unmarshal(scanner.Bytes(), &ev); err == nil && ev.Type != "" {
				p.events <- ev
			}
		}
	}()
	t.Cleanup(func() { _ = cmd.Process.Kill() })
	return p
}

func (p *playProcess) send(line string) {
	_, err := io.WriteString(p.stdin, line+"\n")
	require.NoError(p.t, err)
}

func (p *playProcess) await(typ string) event {
	p.t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-p.events:
			require.True(p.t, ok, "play exited while waiting for %s", typ)
			require.NotEqual(p.t, "error", ev.Type, "unexpected error: %s", string(ev.Payload))
			if ev.Type == typ {
				return ev
			}
		case <-timeout:
			p.t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

// wsPlayer is a player talking to the server directly
type wsPlayer struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialPlayer(t *testing.T, serverURL string) *wsPlayer {
	t.Helper()
	url := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &wsPlayer{t: t, conn: conn}
}

func (p *wsPlayer) send(msg ws.Inbound) {
	require.NoError(p.t, p.conn.WriteJSON(msg))
}

func (p *wsPlayer) await(typ string) event {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var ev event
		require.NoError(p.t, p.conn.ReadJSON(&ev))
		require.NotEqual(p.t, "error", ev.Type, "unexpected error: %s", string(ev.Payload))
		if ev.Type == typ {
			return ev
		}
	}
}

func TestCLI_FullGameFlow(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Host plays through the CLI
	host := startPlay(t, cli, "--create", "--name", "Host")
	var hostJoined struct {
		PlayerID string `json:"playerId"`
	}
	joinedEv := host.await("joined")
	joinedEv.decode(t, &hostJoined)
	code := joinedEv.Code
	require.Len(t, code, 4)

	// Guest joins over a raw socket
	guest := dialPlayer(t, ts.addr)
	guest.send(ws.Inbound{Action: ws.ActionJoinLobby, Code: strings.ToLower(code), Name: "Guest"})
	var guestJoined struct {
		PlayerID string `json:"playerId"`
		HostID   string `json:"hostId"`
	}
	guest.await("joined").decode(t, &guestJoined)
	assert.Equal(t, hostJoined.PlayerID, guestJoined.HostID)

	// Start the round
	host.send("start")

	// Roles are dealt privately before the round is announced
	var hostRole, guestRole struct {
		Role   string   `json:"role"`
		Topic  string   `json:"topic"`
		Decoys []string `json:"decoys"`
	}
	host.await("roleAssignment").decode(t, &hostRole)
	guest.await("roleAssignment").decode(t, &guestRole)

	var round struct {
		TurnPlayerID string `json:"turnPlayerId"`
	}
	host.await("roundStarted").decode(t, &round)
	require.ElementsMatch(t, []string{"faker", "truth"}, []string{hostRole.Role, guestRole.Role})

	fakerID := hostJoined.PlayerID
	if guestRole.Role == "faker" {
		fakerID = guestJoined.PlayerID
	}

	// Words in turn order
	if round.TurnPlayerID == hostJoined.PlayerID {
		host.send("word first")
		guest.await("wordSubmitted")
		guest.send(ws.Inbound{Action: ws.ActionSubmitWord, Word: "second"})
	} else {
		guest.send(ws.Inbound{Action: ws.ActionSubmitWord, Word: "first"})
		host.await("wordSubmitted")
		host.send("word second")
	}

	// Discussion counts down on its own
	var discussion struct {
		DurationRemaining int `json:"durationRemaining"`
	}
	guest.await("discussionStart").decode(t, &discussion)
	assert.Equal(t, 2, discussion.DurationRemaining)
	guest.await("startVoting")
	host.await("startVoting")

	// Each votes for the other: a tie, so the faker escapes
	host.send("vote Guest")
	guest.send(ws.Inbound{Action: ws.ActionSubmitVote, TargetID: model.PlayerID(hostJoined.PlayerID)})

	var results struct {
		FakerID string         `json:"fakerId"`
		Caught  bool           `json:"caught"`
		Scores  map[string]int `json:"scores"`
	}
	host.await("roundResults").decode(t, &results)
	assert.Equal(t, fakerID, results.FakerID)
	assert.False(t, results.Caught)
	assert.Equal(t, 3, results.Scores[fakerID])
	assert.Equal(t, 3, results.Scores[hostJoined.PlayerID]+results.Scores[guestJoined.PlayerID])

	// Host quits, which closes the lobby for everyone
	host.send("quit")
	var closed struct {
		Reason string `json:"reason"`
	}
	guest.await("lobbyClosed").decode(t, &closed)
	assert.Equal(t, "host left", closed.Reason)
	require.NoError(t, host.cmd.Wait())

	assert.Eventually(t, func() bool {
		return ts.app.Registry.Count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCLI_WatchSeesRound(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	host := dialPlayer(t, ts.addr)
	host.send(ws.Inbound{Action: ws.ActionCreateLobby})
	var created struct {
		Code string `json:"code"`
	}
	host.await("lobbyCreated").decode(t, &created)
	host.send(ws.Inbound{Action: ws.ActionJoinLobby, Code: created.Code, Name: "Host"})
	host.await("joined")

	watch := cli.command("watch", created.Code)
	stdout, err := watch.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, watch.Start())
	t.Cleanup(func() { _ = watch.Process.Kill() })

	lines := make(chan event, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			var ev event
			if json.Unmarshal(scanner.Bytes(), &ev) == nil {
				lines <- ev
			}
		}
	}()

	require.Eventually(t, func() bool {
		session, err := ts.app.Registry.GetLobby(lobby.NormalizeCode(created.Code))
		if err != nil {
			return false
		}
		snap, err := session.Snapshot()
		return err == nil && snap.Spectators == 1
	}, 5*time.Second, 20*time.Millisecond)

	host.send(ws.Inbound{Action: ws.ActionStartRound, Topic: "Volcano"})
	host.await("roleAssignment")
	require.NoError(t, host.conn.Close())

	var seen []string
	for ev := range lines {
		seen = append(seen, ev.Type)
		assert.NotContains(t, string(ev.Payload), "Volcano", "spectators never see the topic")
	}
	require.NoError(t, watch.Wait())

	assert.Equal(t, []string{"roundStarted", "lobbyClosed"}, seen)
}
