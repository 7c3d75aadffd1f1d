package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mcoot/blendin/internal/model"
)

// WireEvent is a server event with its payload left encoded
type WireEvent struct {
	Type      model.EventType `json:"type"`
	Code      model.LobbyCode `json:"code"`
	Timestamp time.Time       `json:"ts"`
	Payload   json.RawMessage `json:"payload"`
}

// roster remembers player names so events can be shown by name
type roster map[model.PlayerID]string

func (r roster) name(id model.PlayerID) string {
	if n, ok := r[id]; ok {
		return n
	}
	return string(id)
}

// find resolves a case-insensitive name or a raw id
func (r roster) find(nameOrID string) (model.PlayerID, bool) {
	for id, n := range r {
		if strings.EqualFold(n, nameOrID) || string(id) == nameOrID {
			return id, true
		}
	}
	return "", false
}

func (r roster) learn(players []model.Player) {
	for _, p := range players {
		r[p.ID] = p.Name
	}
}

// describe renders an event as one human-readable line, updating names as
// rosters go past
func describe(ev WireEvent, names roster) string {
	switch ev.Type {
	case model.EventLobbyCreated:
		var p model.LobbyCreatedPayload
		_ = json.Unmarshal(ev.Payload, &p)
		return fmt.Sprintf("Lobby %s created", p.Code)

	case model.EventJoined:
		var p model.JoinedPayload
		_ = json.Unmarshal(ev.Payload, &p)
		names[p.PlayerID] = p.Name
		return fmt.Sprintf("Joined lobby %s as %s", ev.Code, p.Name)

	case model.EventLobbyUpdate:
		var p model.LobbyUpdatePayload
		_ = json.Unmarshal(ev.Payload, &p)
		names.learn(p.Players)
		list := make([]string, len(p.Players))
		for i, pl := range p.Players {
			list[i] = pl.Name
			if pl.ID == p.HostID {
				list[i] += "*"
			}
		}
		return fmt.Sprintf("Lobby %s (%s): %s", ev.Code, p.Phase, strings.Join(list, ", "))

	case model.EventLobbyClosed:
		var p model.LobbyClosedPayload
		_ = json.Unmarshal(ev.Payload, &p)
		return fmt.Sprintf("Lobby closed: %s", p.Reason)

	case model.EventRoleAssignment:
		var p model.RoleAssignmentPayload
		_ = json.Unmarshal(ev.Payload, &p)
		if p.Role == model.RoleFaker {
			return fmt.Sprintf("You are the FAKER. It might be one of: %s", strings.Join(p.Decoys, ", "))
		}
		return fmt.Sprintf("The topic is: %s", p.Topic)

	case model.EventRoundStarted:
		var p model.RoundStartedPayload
		_ = json.Unmarshal(ev.Payload, &p)
		return fmt.Sprintf("Round %d started, %s goes first", p.Round, names.name(p.TurnPlayerID))

	case model.EventWordSubmitted:
		var p model.WordSubmittedPayload
		_ = json.Unmarshal(ev.Payload, &p)
		line := fmt.Sprintf("%s said %q", p.Name, p.Word)
		if p.NextTurnPlayerID != "" {
			line += fmt.Sprintf(", %s is next", names.name(p.NextTurnPlayerID))
		}
		return line

	case model.EventDiscussionStart:
		var p model.DiscussionStartPayload
		_ = json.Unmarshal(ev.Payload, &p)
		words := make([]string, len(p.Words))
		for i, w := range p.Words {
			words[i] = fmt.Sprintf("%s=%s", w.Name, w.Word)
		}
		return fmt.Sprintf("Discuss! %ds on the clock. Words: %s", p.DurationRemaining, strings.Join(words, ", "))

	case model.EventDiscussionTick:
		var p model.DiscussionTickPayload
		_ = json.Unmarshal(ev.Payload, &p)
		return fmt.Sprintf("%d...", p.TimeLeft)

	case model.EventStartVoting:
		var p model.StartVotingPayload
		_ = json.Unmarshal(ev.Payload, &p)
		names.learn(p.Players)
		return "Time to vote: vote <name>"

	case model.EventVoteCast:
		var p model.VoteCastPayload
		_ = json.Unmarshal(ev.Payload, &p)
		return fmt.Sprintf("%s voted (%d/%d)", names.name(p.VoterID), p.VotesIn, p.VotesNeeded)

	case model.EventRoundResults:
		var p model.RoundResultsPayload
		_ = json.Unmarshal(ev.Payload, &p)
		return describeResults(p, names)

	case model.EventRoundAborted:
		var p model.RoundAbortedPayload
		_ = json.Unmarshal(ev.Payload, &p)
		return fmt.Sprintf("Round %d aborted: %s", p.Round, p.Reason)

	case model.EventError:
		var p model.ErrorPayload
		_ = json.Unmarshal(ev.Payload, &p)
		return fmt.Sprintf("Error (%s): %s", p.Kind, p.Message)

	default:
		return fmt.Sprintf("%s: %s", ev.Type, string(ev.Payload))
	}
}

func describeResults(p model.RoundResultsPayload, names roster) string {
	var b strings.Builder
	verdict := "got away with it"
	if p.Caught {
		verdict = "was caught"
	}
	fmt.Fprintf(&b, "Round %d: %s %s! The topic was %s.", p.Round, names.name(p.FakerID), verdict, p.Topic)

	ids := make([]model.PlayerID, 0, len(p.Scores))
	for id := range p.Scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if p.Scores[ids[i]] != p.Scores[ids[j]] {
			return p.Scores[ids[i]] > p.Scores[ids[j]]
		}
		return names.name(ids[i]) < names.name(ids[j])
	})
	for _, id := range ids {
		fmt.Fprintf(&b, "\n  %s: %d (+%d)", names.name(id), p.Scores[id], p.Deltas[id])
	}
	return b.String()
}
