package model

import "time"

// LobbyCode is a short human-readable identifier for joining lobbies
type LobbyCode string

// Phase represents where a lobby is in the round state machine
type Phase string

const (
	PhaseWaiting        Phase = "waiting"         // No round has started yet
	PhaseRoleAssignment Phase = "role-assignment" // Roles being dealt (never observed at rest)
	PhaseSubmission     Phase = "submission"      // Players submitting words in turn order
	PhaseDiscussion     Phase = "discussion"      // Countdown running before voting opens
	PhaseVoting         Phase = "voting"          // Players voting for the suspected faker
	PhaseResults        Phase = "results"         // Round revealed, waiting for the next one
)

// InRound returns true if a round is actively being played
func (p Phase) InRound() bool {
	switch p {
	case PhaseRoleAssignment, PhaseSubmission, PhaseDiscussion, PhaseVoting:
		return true
	default:
		return false
	}
}

// CanStartRound returns true if a new round may begin from this phase
func (p Phase) CanStartRound() bool {
	return p == PhaseWaiting || p == PhaseResults
}

// Lobby is the complete state of one game instance.
// It is owned by a single session and must only be mutated under that session's lock.
type Lobby struct {
	Code    LobbyCode
	HostID  PlayerID
	Players []Player // Join order, which is also turn order
	Phase   Phase
	Round   int // 0 before the first round

	// Round state, reset at the start of every round
	Topic          string
	FakerID        PlayerID
	TurnIndex      int
	SubmittedWords map[PlayerID]string
	Votes          map[PlayerID]PlayerID // voter -> target

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewLobby creates an empty lobby in the waiting phase
func NewLobby(code LobbyCode, now time.Time) *Lobby {
	return &Lobby{
		Code:           code,
		Phase:          PhaseWaiting,
		SubmittedWords: make(map[PlayerID]string),
		Votes:          make(map[PlayerID]PlayerID),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IndexOf returns the roster position of a player, or -1 if absent
func (l *Lobby) IndexOf(id PlayerID) int {
	for i := range l.Players {
		if l.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// GetPlayer returns the player with the given ID, or nil if not found
func (l *Lobby) GetPlayer(id PlayerID) *Player {
	if i := l.IndexOf(id); i >= 0 {
		return &l.Players[i]
	}
	return nil
}

// HasPlayer returns true if the player is in the roster
func (l *Lobby) HasPlayer(id PlayerID) bool {
	return l.IndexOf(id) >= 0
}

// PlayerIDs returns the roster IDs in turn order
func (l *Lobby) PlayerIDs() []PlayerID {
	ids := make([]PlayerID, len(l.Players))
	for i, p := range l.Players {
		ids[i] = p.ID
	}
	return ids
}

// TurnPlayer returns whose turn it is to submit, or empty outside submission
func (l *Lobby) TurnPlayer() PlayerID {
	if l.Phase != PhaseSubmission || l.TurnIndex < 0 || l.TurnIndex >= len(l.Players) {
		return ""
	}
	return l.Players[l.TurnIndex].ID
}

// AllSubmitted returns true once the turn pointer has passed every player
func (l *Lobby) AllSubmitted() bool {
	return l.TurnIndex >= len(l.Players)
}

// AllVoted returns true once every player in the roster has a vote recorded
func (l *Lobby) AllVoted() bool {
	if len(l.Players) == 0 {
		return false
	}
	for _, p := range l.Players {
		if _, ok := l.Votes[p.ID]; !ok {
			return false
		}
	}
	return true
}

// ResetRound clears all per-round state
func (l *Lobby) ResetRound() {
	l.Topic = ""
	l.FakerID = ""
	l.TurnIndex = 0
	l.SubmittedWords = make(map[PlayerID]string)
	l.Votes = make(map[PlayerID]PlayerID)
}

// RemovePlayer drops a player from the roster and from all round state.
// Returns the roster index they occupied, or -1 if they were not present.
func (l *Lobby) RemovePlayer(id PlayerID) int {
	idx := l.IndexOf(id)
	if idx < 0 {
		return -1
	}
	l.Players = append(l.Players[:idx], l.Players[idx+1:]...)
	delete(l.SubmittedWords, id)
	delete(l.Votes, id)
	return idx
}

// SubmittedWord pairs a word with the player who gave it
type SubmittedWord struct {
	PlayerID PlayerID `json:"playerId"`
	Name     string   `json:"name"`
	Word     string   `json:"word"`
}

// WordsInTurnOrder returns the submitted words ordered by the roster
func (l *Lobby) WordsInTurnOrder() []SubmittedWord {
	words := make([]SubmittedWord, 0, len(l.SubmittedWords))
	for _, p := range l.Players {
		if w, ok := l.SubmittedWords[p.ID]; ok {
			words = append(words, SubmittedWord{PlayerID: p.ID, Name: p.Name, Word: w})
		}
	}
	return words
}

// Scores returns the current score of every player
func (l *Lobby) Scores() map[PlayerID]int {
	scores := make(map[PlayerID]int, len(l.Players))
	for _, p := range l.Players {
		scores[p.ID] = p.Score
	}
	return scores
}

// LobbySnapshot is the externally visible state of a lobby.
// It never carries the topic or faker while a round is in progress.
type LobbySnapshot struct {
	Code         LobbyCode       `json:"code"`
	HostID       PlayerID        `json:"hostId,omitempty"`
	Phase        Phase           `json:"phase"`
	Round        int             `json:"round"`
	Players      []Player        `json:"players"`
	TurnPlayerID PlayerID        `json:"turnPlayerId,omitempty"`
	Words        []SubmittedWord `json:"words,omitempty"`
	VotesIn      int             `json:"votesIn"`
	FakerID      PlayerID        `json:"fakerId,omitempty"`
	Topic        string          `json:"topic,omitempty"`
	Spectators   int             `json:"spectators"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Snapshot copies the public parts of the lobby
func (l *Lobby) Snapshot() LobbySnapshot {
	players := make([]Player, len(l.Players))
	copy(players, l.Players)

	snap := LobbySnapshot{
		Code:         l.Code,
		HostID:       l.HostID,
		Phase:        l.Phase,
		Round:        l.Round,
		Players:      players,
		TurnPlayerID: l.TurnPlayer(),
		Words:        l.WordsInTurnOrder(),
		VotesIn:      len(l.Votes),
		CreatedAt:    l.CreatedAt,
	}
	if l.Phase == PhaseResults {
		snap.FakerID = l.FakerID
		snap.Topic = l.Topic
	}
	return snap
}
