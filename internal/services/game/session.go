package game

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/blendin/internal/dependencies/clock"
	"github.com/mcoot/blendin/internal/dependencies/random"
	"github.com/mcoot/blendin/internal/model"
	"github.com/mcoot/blendin/internal/services/scoring"
)

// Session runs the round state machine for a single lobby.
// Every action holds mu for its whole duration, so completion checks and the
// events they produce are applied atomically and delivered in action order.
type Session struct {
	cfg      Config
	scoring  *scoring.Service
	topics   TopicSource
	clock    clock.Clock
	random   random.Random
	recorder Recorder
	logger   *slog.Logger

	mu         sync.Mutex
	lobby      *model.Lobby
	sinks      map[model.PlayerID]Sink
	observers  map[int]Sink
	nextObs    int
	closed     bool
	emptySince time.Time

	// Discussion countdown. timerGen is bumped on every schedule and cancel;
	// a callback carrying an older generation does nothing.
	timer     clock.Timer
	timerGen  uint64
	ticksLeft int
}

// NewSession creates a session for a freshly created lobby in the waiting phase
func NewSession(code model.LobbyCode, cfg Config, deps Dependencies) *Session {
	recorder := deps.Recorder
	if recorder == nil {
		recorder = NopRecorder{}
	}
	now := deps.Clock.Now()
	return &Session{
		cfg:        cfg,
		scoring:    deps.Scoring,
		topics:     deps.Topics,
		clock:      deps.Clock,
		random:     deps.Random,
		recorder:   recorder,
		logger:     deps.Logger.With(slog.String("component", "session"), slog.String("lobby_code", string(code))),
		lobby:      model.NewLobby(code, now),
		sinks:      make(map[model.PlayerID]Sink),
		observers:  make(map[int]Sink),
		emptySince: now,
	}
}

// Code returns the lobby code
func (s *Session) Code() model.LobbyCode {
	return s.lobby.Code
}

// Join adds a player to the roster. The first player to join becomes the host.
// Joining is only possible between rounds.
func (s *Session) Join(id model.PlayerID, name string, sink Sink) error {
	name = strings.TrimSpace(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return model.ErrLobbyNotFound
	}
	if id == "" || name == "" || sink == nil {
		return model.ErrInvalidAction
	}
	if s.lobby.HasPlayer(id) {
		return model.ErrInvalidAction
	}
	if !s.lobby.Phase.CanStartRound() {
		return model.ErrWrongPhase
	}

	now := s.clock.Now()
	s.lobby.Players = append(s.lobby.Players, model.Player{ID: id, Name: name, JoinedAt: now})
	if s.lobby.HostID == "" {
		s.lobby.HostID = id
	}
	s.lobby.UpdatedAt = now
	s.sinks[id] = sink
	s.emptySince = time.Time{}

	s.logger.Info("player joined",
		slog.String("player_id", string(id)),
		slog.Bool("host", s.lobby.HostID == id),
		slog.Int("player_count", len(s.lobby.Players)),
	)

	s.sendTo(id, model.EventJoined, model.JoinedPayload{
		PlayerID: id,
		Name:     name,
		HostID:   s.lobby.HostID,
	})
	s.broadcastLobbyUpdate()
	return nil
}

// Leave removes a player. If the host leaves the whole lobby is closed and
// destroyed is true; the caller is then responsible for dropping the session.
func (s *Session) Leave(id model.PlayerID) (destroyed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, model.ErrLobbyNotFound
	}
	if !s.lobby.HasPlayer(id) {
		return false, model.ErrUnknownPlayer
	}

	if id == s.lobby.HostID {
		delete(s.sinks, id)
		s.closeLocked("host left")
		return true, nil
	}

	phase := s.lobby.Phase
	wasFaker := id == s.lobby.FakerID
	idx := s.lobby.RemovePlayer(id)
	delete(s.sinks, id)
	s.lobby.UpdatedAt = s.clock.Now()
	if len(s.lobby.Players) == 0 {
		s.emptySince = s.lobby.UpdatedAt
	}

	s.logger.Info("player left",
		slog.String("player_id", string(id)),
		slog.String("phase", string(phase)),
		slog.Int("player_count", len(s.lobby.Players)),
	)

	switch {
	case wasFaker && phase.InRound():
		s.abortRoundLocked("faker left")
		s.broadcastLobbyUpdate()
		return false, nil
	case wasFaker:
		// Results already revealed them; there is nobody left to point at
		s.lobby.FakerID = ""
	}

	if phase == model.PhaseSubmission && idx < s.lobby.TurnIndex {
		s.lobby.TurnIndex--
	}
	s.broadcastLobbyUpdate()

	// The roster shrank, so the round may now be complete
	switch {
	case phase == model.PhaseSubmission && s.lobby.AllSubmitted():
		s.enterDiscussionLocked()
	case phase == model.PhaseVoting && s.lobby.AllVoted():
		s.revealLocked()
	}
	return false, nil
}

// Close tears the lobby down, cancelling any pending countdown.
// Safe to call more than once.
func (s *Session) Close(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closeLocked(reason)
}

func (s *Session) closeLocked(reason string) {
	s.cancelTimerLocked()
	s.closed = true

	s.logger.Info("lobby closed",
		slog.String("reason", reason),
		slog.String("phase", string(s.lobby.Phase)),
		slog.Int("round", s.lobby.Round),
	)

	s.broadcast(model.EventLobbyClosed, model.LobbyClosedPayload{Reason: reason})
	s.sinks = make(map[model.PlayerID]Sink)
	s.observers = make(map[int]Sink)
}

// IsClosed returns whether the session has been torn down
func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// EmptySince reports when the roster last became empty.
// The bool is false while anyone is in the lobby.
func (s *Session) EmptySince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lobby.Players) > 0 {
		return time.Time{}, false
	}
	return s.emptySince, true
}

// Observe registers a sink that receives lobby-wide broadcasts but never
// private messages. The returned func unregisters it.
func (s *Session) Observe(sink Sink) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		sink.Send(s.event(model.EventLobbyClosed, model.LobbyClosedPayload{Reason: "lobby closed"}))
		return func() {}
	}

	id := s.nextObs
	s.nextObs++
	s.observers[id] = sink
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Snapshot returns the externally visible lobby state
func (s *Session) Snapshot() (model.LobbySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.LobbySnapshot{}, model.ErrLobbyNotFound
	}
	snap := s.lobby.Snapshot()
	snap.Spectators = len(s.observers)
	return snap, nil
}

// PlayerCount returns the current roster size
func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lobby.Players)
}

// Event delivery. All of these expect mu to be held.

func (s *Session) event(t model.EventType, payload any) model.Event {
	return model.Event{
		Type:      t,
		LobbyCode: s.lobby.Code,
		Timestamp: s.clock.Now(),
		Payload:   payload,
	}
}

func (s *Session) broadcast(t model.EventType, payload any) {
	ev := s.event(t, payload)
	for _, p := range s.lobby.Players {
		if sink, ok := s.sinks[p.ID]; ok {
			sink.Send(ev)
		}
	}
	for _, sink := range s.observers {
		sink.Send(ev)
	}
}

func (s *Session) sendTo(id model.PlayerID, t model.EventType, payload any) {
	if sink, ok := s.sinks[id]; ok {
		sink.Send(s.event(t, payload))
	}
}

func (s *Session) broadcastLobbyUpdate() {
	players := make([]model.Player, len(s.lobby.Players))
	copy(players, s.lobby.Players)
	s.broadcast(model.EventLobbyUpdate, model.LobbyUpdatePayload{
		Players:      players,
		HostID:       s.lobby.HostID,
		Phase:        s.lobby.Phase,
		Round:        s.lobby.Round,
		TurnPlayerID: s.lobby.TurnPlayer(),
	})
}
