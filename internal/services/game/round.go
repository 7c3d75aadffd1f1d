package game

import (
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/mcoot/blendin/internal/dependencies/random"
	"github.com/mcoot/blendin/internal/model"
)

// StartRound begins a round. Only the host may start one, and only between
// rounds. An empty topic is drawn from the topic source.
func (s *Session) StartRound(playerID model.PlayerID, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startRoundLocked(playerID, topic, model.PhaseWaiting, model.PhaseResults)
}

// NextRound begins the following round once results are showing
func (s *Session) NextRound(playerID model.PlayerID, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startRoundLocked(playerID, topic, model.PhaseResults)
}

func (s *Session) startRoundLocked(playerID model.PlayerID, topic string, from ...model.Phase) error {
	if s.closed {
		return model.ErrLobbyNotFound
	}
	if len(s.lobby.Players) == 0 {
		return model.ErrInsufficientPlayers
	}
	if !s.lobby.HasPlayer(playerID) {
		return model.ErrUnknownPlayer
	}
	if playerID != s.lobby.HostID {
		return model.ErrNotHost
	}
	if !slices.Contains(from, s.lobby.Phase) {
		return model.ErrWrongPhase
	}
	if len(s.lobby.Players) < s.cfg.MinPlayers {
		return model.ErrInsufficientPlayers
	}

	topic = strings.TrimSpace(topic)
	if topic == "" {
		picked, err := s.topics.Pick()
		if err != nil {
			return err
		}
		topic = picked
	}

	// Validation done; nothing below can fail
	s.lobby.Phase = model.PhaseRoleAssignment
	s.lobby.ResetRound()
	s.lobby.Round++
	s.lobby.Topic = topic
	faker, _ := random.Choice(s.random, s.lobby.Players)
	s.lobby.FakerID = faker.ID
	s.lobby.UpdatedAt = s.clock.Now()

	decoys := s.topics.Decoys(topic, s.cfg.DecoyCount)
	for _, p := range s.lobby.Players {
		if p.ID == s.lobby.FakerID {
			s.sendTo(p.ID, model.EventRoleAssignment, model.RoleAssignmentPayload{Role: model.RoleFaker, Decoys: decoys})
		} else {
			s.sendTo(p.ID, model.EventRoleAssignment, model.RoleAssignmentPayload{Role: model.RoleTruth, Topic: topic})
		}
	}

	s.lobby.Phase = model.PhaseSubmission
	s.recorder.RoundStarted()

	s.logger.Info("round started",
		slog.Int("round", s.lobby.Round),
		slog.Int("player_count", len(s.lobby.Players)),
	)

	s.broadcast(model.EventRoundStarted, model.RoundStartedPayload{
		Round:        s.lobby.Round,
		TurnPlayerID: s.lobby.TurnPlayer(),
		PlayerCount:  len(s.lobby.Players),
	})
	return nil
}

// SubmitWord records the current turn player's word and passes the turn on
func (s *Session) SubmitWord(playerID model.PlayerID, word string) error {
	word = strings.TrimSpace(word)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return model.ErrLobbyNotFound
	}
	player := s.lobby.GetPlayer(playerID)
	if player == nil {
		return model.ErrUnknownPlayer
	}
	if s.lobby.Phase != model.PhaseSubmission {
		return model.ErrWrongPhase
	}
	if s.lobby.TurnPlayer() != playerID {
		return model.ErrNotYourTurn
	}
	if word == "" {
		return model.ErrInvalidAction
	}

	s.lobby.SubmittedWords[playerID] = word
	s.lobby.TurnIndex++
	s.lobby.UpdatedAt = s.clock.Now()

	s.broadcast(model.EventWordSubmitted, model.WordSubmittedPayload{
		PlayerID:         playerID,
		Name:             player.Name,
		Word:             word,
		NextTurnPlayerID: s.lobby.TurnPlayer(),
	})

	if s.lobby.AllSubmitted() {
		s.enterDiscussionLocked()
	}
	return nil
}

// SubmitVote records a vote, replacing any earlier vote from the same voter
func (s *Session) SubmitVote(voterID, targetID model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return model.ErrLobbyNotFound
	}
	if !s.lobby.HasPlayer(voterID) {
		return model.ErrUnknownPlayer
	}
	if s.lobby.Phase != model.PhaseVoting {
		return model.ErrWrongPhase
	}
	if !s.lobby.HasPlayer(targetID) {
		return model.ErrUnknownPlayer
	}

	s.lobby.Votes[voterID] = targetID
	s.lobby.UpdatedAt = s.clock.Now()

	s.broadcast(model.EventVoteCast, model.VoteCastPayload{
		VoterID:     voterID,
		VotesIn:     len(s.lobby.Votes),
		VotesNeeded: len(s.lobby.Players),
	})

	if s.lobby.AllVoted() {
		s.revealLocked()
	}
	return nil
}

func (s *Session) enterDiscussionLocked() {
	s.lobby.Phase = model.PhaseDiscussion
	s.ticksLeft = s.cfg.DiscussionTicks

	s.logger.Debug("discussion started",
		slog.Int("round", s.lobby.Round),
		slog.Int("ticks", s.ticksLeft),
	)

	s.broadcast(model.EventDiscussionStart, model.DiscussionStartPayload{
		Words:             s.lobby.WordsInTurnOrder(),
		DurationRemaining: s.ticksLeft,
	})

	if s.ticksLeft <= 0 {
		s.enterVotingLocked()
		return
	}
	s.scheduleTickLocked()
}

func (s *Session) scheduleTickLocked() {
	s.timerGen++
	gen := s.timerGen
	s.timer = s.clock.AfterFunc(s.cfg.TickInterval, func() {
		s.onTick(gen)
	})
}

func (s *Session) onTick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Cancelled, superseded, or torn down since this was scheduled
	if s.closed || gen != s.timerGen || s.lobby.Phase != model.PhaseDiscussion {
		return
	}
	s.timer = nil

	s.ticksLeft--
	s.broadcast(model.EventDiscussionTick, model.DiscussionTickPayload{TimeLeft: s.ticksLeft})

	if s.ticksLeft <= 0 {
		s.enterVotingLocked()
		return
	}
	s.scheduleTickLocked()
}

func (s *Session) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
}

func (s *Session) enterVotingLocked() {
	s.cancelTimerLocked()
	s.lobby.Phase = model.PhaseVoting
	s.lobby.UpdatedAt = s.clock.Now()

	players := make([]model.Player, len(s.lobby.Players))
	copy(players, s.lobby.Players)
	s.broadcast(model.EventStartVoting, model.StartVotingPayload{Players: players})
}

func (s *Session) revealLocked() {
	result := s.scoring.ScoreRound(s.lobby.FakerID, s.lobby.Votes, s.lobby.PlayerIDs())
	result.Apply(s.lobby.Players)

	s.lobby.Phase = model.PhaseResults
	s.lobby.UpdatedAt = s.clock.Now()
	s.recorder.RoundCompleted(result.Caught)

	s.logger.Info("round revealed",
		slog.Int("round", s.lobby.Round),
		slog.Bool("caught", result.Caught),
		slog.Int("votes_for_faker", result.VotesForFaker),
		slog.Int("votes_cast", result.VotesCast),
	)

	s.broadcast(model.EventRoundResults, model.RoundResultsPayload{
		Round:   s.lobby.Round,
		FakerID: s.lobby.FakerID,
		Topic:   s.lobby.Topic,
		Caught:  result.Caught,
		Votes:   maps.Clone(s.lobby.Votes),
		Scores:  s.lobby.Scores(),
		Deltas:  result.Deltas,
	})
}

func (s *Session) abortRoundLocked(reason string) {
	s.cancelTimerLocked()
	round := s.lobby.Round
	s.lobby.ResetRound()
	s.lobby.Phase = model.PhaseWaiting
	s.recorder.RoundAborted()

	s.logger.Info("round aborted",
		slog.Int("round", round),
		slog.String("reason", reason),
	)

	s.broadcast(model.EventRoundAborted, model.RoundAbortedPayload{Round: round, Reason: reason})
}
