package ws

import "github.com/mcoot/blendin/internal/model"

// Client actions
const (
	ActionCreateLobby = "createLobby"
	ActionJoinLobby   = "joinLobby"
	ActionStartRound  = "startRound"
	ActionSubmitWord  = "submitWord"
	ActionSubmitVote  = "submitVote"
	ActionNextRound   = "nextRound"

	// actionUnknown labels anything else a client sends
	actionUnknown = "unknown"
)

// actionLabel maps a client-supplied action name onto the fixed set above
func actionLabel(action string) string {
	switch action {
	case ActionCreateLobby, ActionJoinLobby, ActionStartRound,
		ActionSubmitWord, ActionSubmitVote, ActionNextRound:
		return action
	default:
		return actionUnknown
	}
}

// Inbound is a single client action. Fields not used by the action are ignored.
type Inbound struct {
	Action   string         `json:"action"`
	Code     string         `json:"code,omitempty"`
	Name     string         `json:"name,omitempty"`
	Word     string         `json:"word,omitempty"`
	TargetID model.PlayerID `json:"targetId,omitempty"`
	Topic    string         `json:"topic,omitempty"`
}
