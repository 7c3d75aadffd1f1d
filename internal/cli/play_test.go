package cli

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/blendin/internal/factory"
	"github.com/mcoot/blendin/internal/services/lobby"
)

// syncBuffer is a bytes.Buffer safe to read while a session writes to it
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type PlaySuite struct {
	suite.Suite
	app    *factory.TestApp
	server *httptest.Server
}

func TestPlaySuite(t *testing.T) {
	suite.Run(t, new(PlaySuite))
}

func (s *PlaySuite) SetupTest() {
	lobbyCfg := lobby.DefaultConfig()
	lobbyCfg.Session.DiscussionTicks = 0

	s.app = factory.NewTestAppWithConfig(factory.Config{Lobby: lobbyCfg})
	s.Require().NoError(s.app.LoadTestTopics())
	s.server = httptest.NewServer(s.app.Router(""))
}

func (s *PlaySuite) TearDownTest() {
	s.server.Close()
}

func (s *PlaySuite) dial() *websocket.Conn {
	c := &Config{ServerURL: s.server.URL}
	conn, _, err := websocket.DefaultDialer.Dial(c.WebSocketURL(), nil)
	s.Require().NoError(err)
	return conn
}

func (s *PlaySuite) waitFor(out *syncBuffer, text string) {
	s.Eventually(func() bool {
		return strings.Contains(out.String(), text)
	}, 5*time.Second, 10*time.Millisecond, "never saw %q in:\n%s", text, out)
}

func (s *PlaySuite) TestSoloRound() {
	s.app.MockRandom.QueueString("SLAY")
	out := &syncBuffer{}
	in, input := io.Pipe()
	session := newPlaySession(s.dial(), NewOutput("text", out))

	done := make(chan error, 1)
	go func() { done <- session.run(context.Background(), in, "", "Host") }()

	s.waitFor(out, "Joined lobby SLAY as Host")
	s.waitFor(out, "quit            leave the lobby")

	_, err := io.WriteString(input, "start Pizza\n")
	s.Require().NoError(err)
	s.waitFor(out, "You are the FAKER")

	_, err = io.WriteString(input, "word cheese\n")
	s.Require().NoError(err)
	s.waitFor(out, "Time to vote")

	_, err = io.WriteString(input, "vote host\n")
	s.Require().NoError(err)
	s.waitFor(out, "Round 1: Host was caught! The topic was Pizza.")

	_, err = io.WriteString(input, "quit\n")
	s.Require().NoError(err)

	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(5 * time.Second):
		s.Fail("session did not end after quit")
	}
	s.Eventually(func() bool {
		return s.app.Registry.Count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func (s *PlaySuite) TestBadInputIsReportedLocally() {
	s.app.MockRandom.QueueString("BADX")
	out := &syncBuffer{}
	in, input := io.Pipe()
	session := newPlaySession(s.dial(), NewOutput("text", out))

	done := make(chan error, 1)
	go func() { done <- session.run(context.Background(), in, "", "Host") }()
	s.waitFor(out, "Joined lobby BADX as Host")

	_, err := io.WriteString(input, "vote nobody\n")
	s.Require().NoError(err)
	s.waitFor(out, `no player called "nobody"`)

	_, err = io.WriteString(input, "word early\n")
	s.Require().NoError(err)
	s.waitFor(out, "Error (WrongPhase)")

	s.Require().NoError(input.Close())
	s.NoError(<-done)
}

func (s *PlaySuite) TestJoinUnknownLobbyFails() {
	session := newPlaySession(s.dial(), NewOutput("text", &syncBuffer{}))

	err := session.run(context.Background(), strings.NewReader(""), "NONE", "Guest")

	s.ErrorContains(err, "LobbyNotFound")
}

func (s *PlaySuite) TestGuestSeesHostLeave() {
	s.app.MockRandom.QueueString("PAYS")
	hostOut, guestOut := &syncBuffer{}, &syncBuffer{}
	hostIn, hostInput := io.Pipe()
	guestIn, _ := io.Pipe()

	host := newPlaySession(s.dial(), NewOutput("text", hostOut))
	hostDone := make(chan error, 1)
	go func() { hostDone <- host.run(context.Background(), hostIn, "", "Host") }()
	s.waitFor(hostOut, "Joined lobby PAYS as Host")

	guest := newPlaySession(s.dial(), NewOutput("text", guestOut))
	guestDone := make(chan error, 1)
	go func() { guestDone <- guest.run(context.Background(), guestIn, "pays", "Guest") }()
	s.waitFor(guestOut, "Joined lobby PAYS as Guest")
	s.waitFor(hostOut, "Host*, Guest")

	s.Require().NoError(hostInput.Close())

	s.NoError(<-hostDone)
	s.NoError(<-guestDone)
	s.Contains(guestOut.String(), "Lobby closed: host left")
}

func (s *PlaySuite) TestCancelLeaves() {
	s.app.MockRandom.QueueString("HALT")
	out := &syncBuffer{}
	in, _ := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	session := newPlaySession(s.dial(), NewOutput("text", out))

	done := make(chan error, 1)
	go func() { done <- session.run(ctx, in, "", "Host") }()
	s.waitFor(out, "Joined lobby HALT as Host")

	cancel()

	s.NoError(<-done)
}
