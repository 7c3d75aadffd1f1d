package model

import "time"

// EventType identifies the type of outbound event
type EventType string

const (
	// Lobby events
	EventLobbyCreated EventType = "lobbyCreated"
	EventJoined       EventType = "joined"
	EventLobbyUpdate  EventType = "lobbyUpdate"
	EventLobbyClosed  EventType = "lobbyClosed"

	// Round events
	EventRoleAssignment  EventType = "roleAssignment"
	EventRoundStarted    EventType = "roundStarted"
	EventWordSubmitted   EventType = "wordSubmitted"
	EventDiscussionStart EventType = "discussionStart"
	EventDiscussionTick  EventType = "discussionTick"
	EventStartVoting     EventType = "startVoting"
	EventVoteCast        EventType = "voteCast"
	EventRoundResults    EventType = "roundResults"
	EventRoundAborted    EventType = "roundAborted"

	// Sent only to the client whose action was rejected
	EventError EventType = "error"
)

// Event is the envelope for everything sent to clients
type Event struct {
	Type      EventType `json:"type"`
	LobbyCode LobbyCode `json:"code,omitempty"`
	Timestamp time.Time `json:"ts"`
	Payload   any       `json:"payload,omitempty"`
}

// LobbyCreatedPayload contains data for lobby created events
type LobbyCreatedPayload struct {
	Code LobbyCode `json:"code"`
}

// JoinedPayload acknowledges a successful join to the joining player
type JoinedPayload struct {
	PlayerID PlayerID `json:"playerId"`
	Name     string   `json:"name"`
	HostID   PlayerID `json:"hostId"`
}

// LobbyUpdatePayload describes the roster after any structural change
type LobbyUpdatePayload struct {
	Players      []Player `json:"players"`
	HostID       PlayerID `json:"hostId"`
	Phase        Phase    `json:"phase"`
	Round        int      `json:"round"`
	TurnPlayerID PlayerID `json:"turnPlayerId,omitempty"`
}

// LobbyClosedPayload contains data for lobby closed events
type LobbyClosedPayload struct {
	Reason string `json:"reason,omitempty"`
}

// RoleAssignmentPayload is sent privately to each player at round start.
// The faker receives decoys and never the topic.
type RoleAssignmentPayload struct {
	Role   Role     `json:"role"`
	Topic  string   `json:"topic,omitempty"`
	Decoys []string `json:"decoys,omitempty"`
}

// RoundStartedPayload contains data for round started events
type RoundStartedPayload struct {
	Round        int      `json:"round"`
	TurnPlayerID PlayerID `json:"turnPlayerId"`
	PlayerCount  int      `json:"playerCount"`
}

// WordSubmittedPayload contains data for word submitted events
type WordSubmittedPayload struct {
	PlayerID         PlayerID `json:"playerId"`
	Name             string   `json:"name"`
	Word             string   `json:"word"`
	NextTurnPlayerID PlayerID `json:"nextTurnPlayerId,omitempty"`
}

// DiscussionStartPayload contains data for discussion start events
type DiscussionStartPayload struct {
	Words             []SubmittedWord `json:"words"`
	DurationRemaining int             `json:"durationRemaining"`
}

// DiscussionTickPayload contains data for discussion tick events
type DiscussionTickPayload struct {
	TimeLeft int `json:"timeLeft"`
}

// StartVotingPayload lists the vote candidates
type StartVotingPayload struct {
	Players []Player `json:"players"`
}

// VoteCastPayload reports voting progress without revealing targets
type VoteCastPayload struct {
	VoterID     PlayerID `json:"voterId"`
	VotesIn     int      `json:"votesIn"`
	VotesNeeded int      `json:"votesNeeded"`
}

// RoundResultsPayload contains data for round results events
type RoundResultsPayload struct {
	Round   int                   `json:"round"`
	FakerID PlayerID              `json:"fakerId"`
	Topic   string                `json:"topic"`
	Caught  bool                  `json:"caught"`
	Votes   map[PlayerID]PlayerID `json:"votes"`
	Scores  map[PlayerID]int      `json:"scores"`
	Deltas  map[PlayerID]int      `json:"deltas"`
}

// RoundAbortedPayload contains data for round aborted events
type RoundAbortedPayload struct {
	Round  int    `json:"round"`
	Reason string `json:"reason"`
}

// ErrorPayload contains data for error events
type ErrorPayload struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// NewErrorEvent builds the event sent back to a client whose action failed
// Internal failures are reported without detail.
func NewErrorEvent(code LobbyCode, err error, now time.Time) Event {
	kind := KindOf(err)
	message := err.Error()
	if kind == KindInternal {
		message = "internal error"
	}
	return Event{
		Type:      EventError,
		LobbyCode: code,
		Timestamp: now,
		Payload: ErrorPayload{
			Kind:    kind,
			Message: message,
		},
	}
}
