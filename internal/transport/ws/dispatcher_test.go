package ws

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/blendin/internal/dependencies/mocks"
	"github.com/mcoot/blendin/internal/model"
	"github.com/mcoot/blendin/internal/services/game"
	"github.com/mcoot/blendin/internal/services/lobby"
	"github.com/mcoot/blendin/internal/services/scoring"
	"github.com/mcoot/blendin/internal/services/topic"
	"github.com/mcoot/blendin/internal/storage/memory"
	"github.com/mcoot/blendin/internal/testutil"
)

type actionRecord struct {
	action string
	err    error
}

type recordingRecorder struct {
	NopRecorder
	actions []actionRecord
}

func (r *recordingRecorder) ObserveAction(action string, err error, _ time.Duration) {
	r.actions = append(r.actions, actionRecord{action: action, err: err})
}

type DispatcherSuite struct {
	suite.Suite
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	registry   *lobby.Registry
	recorder   *recordingRecorder
	dispatcher *Dispatcher
	ctx        context.Context
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	logger := testutil.NopLogger()
	store := memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	topics := topic.New(store, s.random, logger)
	s.Require().NoError(topics.LoadTopics([]string{"Pizza", "Beach", "Zoo"}))

	s.registry = lobby.NewRegistry(store, game.Dependencies{
		Scoring: scoring.New(scoring.DefaultConfig()),
		Topics:  topics,
		Clock:   s.clock,
		Random:  s.random,
		Logger:  logger,
	}, nil, lobby.DefaultConfig())

	s.recorder = &recordingRecorder{}
	s.dispatcher = NewDispatcher(s.registry, s.clock, s.recorder, logger)
	s.ctx = context.Background()
}

func (s *DispatcherSuite) newPeer() (*Peer, *testutil.RecordingSink) {
	sink := testutil.NewRecordingSink()
	return &Peer{Sink: sink}, sink
}

func (s *DispatcherSuite) send(p *Peer, raw string) {
	s.dispatcher.Dispatch(s.ctx, p, []byte(raw))
}

func (s *DispatcherSuite) lastError(sink *testutil.RecordingSink) model.ErrorPayload {
	ev, ok := sink.Last(model.EventError)
	s.Require().True(ok, "expected an error event")
	return ev.Payload.(model.ErrorPayload)
}

func (s *DispatcherSuite) createAndJoin(name string) (*Peer, *testutil.RecordingSink, model.LobbyCode) {
	p, sink := s.newPeer()
	s.send(p, `{"action":"createLobby"}`)
	ev, ok := sink.Last(model.EventLobbyCreated)
	s.Require().True(ok)
	code := ev.Payload.(model.LobbyCreatedPayload).Code

	s.send(p, `{"action":"joinLobby","code":"`+string(code)+`","name":"`+name+`"}`)
	s.Require().NotEmpty(p.PlayerID)
	return p, sink, code
}

func (s *DispatcherSuite) joinPeer(code model.LobbyCode, name string) (*Peer, *testutil.RecordingSink) {
	p, sink := s.newPeer()
	s.send(p, `{"action":"joinLobby","code":"`+string(code)+`","name":"`+name+`"}`)
	s.Require().NotEmpty(p.PlayerID)
	return p, sink
}

func (s *DispatcherSuite) TestCreateLobbyRepliesWithCode() {
	p, sink := s.newPeer()
	s.random.QueueString("WXYZ")

	s.send(p, `{"action":"createLobby"}`)

	ev, ok := sink.Last(model.EventLobbyCreated)
	s.Require().True(ok)
	s.Equal(model.LobbyCode("WXYZ"), ev.Payload.(model.LobbyCreatedPayload).Code)
	s.Empty(p.PlayerID)
	s.Equal(1, s.registry.Count())
}

func (s *DispatcherSuite) TestJoinRecordsPeerIdentity() {
	p, sink, code := s.createAndJoin("Alice")

	s.Equal(code, p.Code)
	ack, ok := sink.Last(model.EventJoined)
	s.Require().True(ok)
	s.Equal(p.PlayerID, ack.Payload.(model.JoinedPayload).PlayerID)
}

func (s *DispatcherSuite) TestJoinAcceptsLowercaseCode() {
	s.random.QueueString("ABCD")
	s.createAndJoin("Host")

	p, _ := s.newPeer()
	s.send(p, `{"action":"joinLobby","code":" abcd ","name":"Bob"}`)

	s.Equal(model.LobbyCode("ABCD"), p.Code)
}

func (s *DispatcherSuite) TestJoinUnknownLobby() {
	p, sink := s.newPeer()

	s.send(p, `{"action":"joinLobby","code":"NOPE","name":"Bob"}`)

	s.Equal(model.KindLobbyNotFound, s.lastError(sink).Kind)
	s.Empty(p.PlayerID)
}

func (s *DispatcherSuite) TestJoinTwiceRejected() {
	p, sink, code := s.createAndJoin("Alice")

	s.send(p, `{"action":"joinLobby","code":"`+string(code)+`","name":"Again"}`)

	s.Equal(model.KindInvalidAction, s.lastError(sink).Kind)
	session, _ := s.registry.GetLobby(code)
	s.Equal(1, session.PlayerCount())
}

func (s *DispatcherSuite) TestRejoinAfterLobbyClosed() {
	host, _, code := s.createAndJoin("Host")
	guest, _ := s.joinPeer(code, "Guest")
	s.dispatcher.Disconnect(s.ctx, host)

	_, _, next := s.createAndJoin("Other host")
	s.send(guest, `{"action":"joinLobby","code":"`+string(next)+`","name":"Guest"}`)

	s.Equal(next, guest.Code)
}

func (s *DispatcherSuite) TestMalformedJSON() {
	p, sink := s.newPeer()

	s.send(p, `{"action":`)

	s.Equal(model.KindInvalidAction, s.lastError(sink).Kind)
	s.Equal("malformed", s.recorder.actions[0].action)
}

func (s *DispatcherSuite) TestUnknownAction() {
	p, sink := s.newPeer()

	s.send(p, `{"action":"dance"}`)

	s.Equal(model.KindInvalidAction, s.lastError(sink).Kind)
}

func (s *DispatcherSuite) TestUnknownActionsShareOneLabel() {
	p, _ := s.newPeer()

	for i := range 20 {
		s.send(p, fmt.Sprintf(`{"action":"junk-%d"}`, i))
	}

	s.Require().Len(s.recorder.actions, 20)
	for _, rec := range s.recorder.actions {
		s.Equal("unknown", rec.action)
		s.ErrorIs(rec.err, model.ErrInvalidAction)
	}
}

func (s *DispatcherSuite) TestActionBeforeJoin() {
	_, _, code := s.createAndJoin("Host")
	p, sink := s.newPeer()

	s.send(p, `{"action":"startRound","code":"`+string(code)+`"}`)

	s.Equal(model.KindUnknownPlayer, s.lastError(sink).Kind)
}

func (s *DispatcherSuite) TestVoteWithoutTarget() {
	p, sink, _ := s.createAndJoin("Host")

	s.send(p, `{"action":"submitVote"}`)

	s.Equal(model.KindInvalidAction, s.lastError(sink).Kind)
}

func (s *DispatcherSuite) TestErrorsOnlyReachOriginator() {
	host, hostSink, code := s.createAndJoin("Host")
	guest, guestSink := s.joinPeer(code, "Guest")
	hostSink.Reset()

	s.send(guest, `{"action":"startRound"}`)

	s.Equal(model.KindNotHost, s.lastError(guestSink).Kind)
	s.Empty(hostSink.OfType(model.EventError))
	s.NotEmpty(host.PlayerID)
}

func (s *DispatcherSuite) TestFullRound() {
	s.random.QueueString("GAME")
	host, hostSink, _ := s.createAndJoin("Host")
	guest, guestSink := s.joinPeer("GAME", "Guest")

	s.random.QueueIntn(1)
	s.send(host, `{"action":"startRound","topic":"Pizza"}`)
	role, ok := hostSink.Last(model.EventRoleAssignment)
	s.Require().True(ok)
	s.Equal("Pizza", role.Payload.(model.RoleAssignmentPayload).Topic)

	s.send(guest, `{"action":"submitWord","word":"early"}`)
	s.Equal(model.KindNotYourTurn, s.lastError(guestSink).Kind)

	s.send(host, `{"action":"submitWord","word":"cheese"}`)
	s.send(guest, `{"action":"submitWord","word":"round"}`)
	s.clock.Advance(30 * time.Second)

	s.send(host, `{"action":"submitVote","targetId":"`+string(guest.PlayerID)+`"}`)
	s.send(guest, `{"action":"submitVote","targetId":"`+string(host.PlayerID)+`"}`)

	ev, ok := hostSink.Last(model.EventRoundResults)
	s.Require().True(ok)
	s.Equal(guest.PlayerID, ev.Payload.(model.RoundResultsPayload).FakerID)

	s.send(host, `{"action":"nextRound","topic":"Zoo"}`)
	started := hostSink.OfType(model.EventRoundStarted)
	s.Len(started, 2)
}

func (s *DispatcherSuite) TestDisconnectHostClosesLobby() {
	host, _, code := s.createAndJoin("Host")
	_, guestSink := s.joinPeer(code, "Guest")

	s.dispatcher.Disconnect(s.ctx, host)

	_, ok := guestSink.Last(model.EventLobbyClosed)
	s.True(ok)
	s.Empty(host.PlayerID)
	_, err := s.registry.GetLobby(code)
	s.ErrorIs(err, model.ErrLobbyNotFound)
}

func (s *DispatcherSuite) TestDisconnectAfterLobbyGoneIsQuiet() {
	host, _, code := s.createAndJoin("Host")
	guest, _ := s.joinPeer(code, "Guest")
	s.dispatcher.Disconnect(s.ctx, host)

	s.NotPanics(func() {
		s.dispatcher.Disconnect(s.ctx, guest)
	})
	s.Empty(guest.PlayerID)
}

func (s *DispatcherSuite) TestDisconnectWithoutJoinIsNoop() {
	p, _ := s.newPeer()
	s.NotPanics(func() {
		s.dispatcher.Disconnect(s.ctx, p)
	})
}

func (s *DispatcherSuite) TestRecordsActions() {
	p, _, _ := s.createAndJoin("Host")
	s.send(p, `{"action":"submitWord","word":"x"}`)

	s.Require().Len(s.recorder.actions, 3)
	s.Equal(ActionCreateLobby, s.recorder.actions[0].action)
	s.NoError(s.recorder.actions[0].err)
	s.Equal(ActionSubmitWord, s.recorder.actions[2].action)
	s.ErrorIs(s.recorder.actions[2].err, model.ErrWrongPhase)
}
