package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Lobby:
		o.printLobby(v)
	case CreateResult:
		o.printf("Created lobby: %s\n", v.Code)
	case LobbyList:
		o.printLobbyList(v)
	case HealthResult:
		o.printf("Status: %s\nLobbies: %d\nTopics: %d\n", v.Status, v.Lobbies, v.Topics)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, format, args...)
}

// Player response type (matches API)
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Word response type
type Word struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Word     string `json:"word"`
}

// Lobby response type
type Lobby struct {
	Code         string   `json:"code"`
	Phase        string   `json:"phase"`
	Round        int      `json:"round"`
	HostID       string   `json:"host_id,omitempty"`
	Players      []Player `json:"players"`
	TurnPlayerID string   `json:"turn_player_id,omitempty"`
	Words        []Word   `json:"words,omitempty"`
	VotesIn      int      `json:"votes_in"`
	FakerID      string   `json:"faker_id,omitempty"`
	Topic        string   `json:"topic,omitempty"`
	Spectators   int      `json:"spectators"`
}

// CreateResult response type
type CreateResult struct {
	Code string `json:"code"`
}

// LobbyList response type
type LobbyList struct {
	Lobbies []string `json:"lobbies"`
}

// HealthResult response type
type HealthResult struct {
	Status  string `json:"status"`
	Lobbies int    `json:"lobbies"`
	Topics  int    `json:"topics"`
}

func (o *Output) printLobby(l Lobby) {
	o.printf("Lobby: %s\n", l.Code)
	o.printf("Phase: %s\n", l.Phase)
	o.printf("Round: %d\n", l.Round)
	if l.Topic != "" {
		o.printf("Topic: %s\n", l.Topic)
	}
	if l.Spectators > 0 {
		o.printf("Spectators: %d\n", l.Spectators)
	}
	o.printf("Players (%d):\n", len(l.Players))
	for _, p := range l.Players {
		var tags []string
		if p.ID == l.HostID {
			tags = append(tags, "host")
		}
		if p.ID == l.TurnPlayerID {
			tags = append(tags, "turn")
		}
		if p.ID == l.FakerID {
			tags = append(tags, "faker")
		}
		tagStr := ""
		if len(tags) > 0 {
			tagStr = " [" + strings.Join(tags, ", ") + "]"
		}
		o.printf("  - %s (%s) - %d pts%s\n", p.Name, p.ID, p.Score, tagStr)
	}
	if len(l.Words) > 0 {
		o.printf("Words:\n")
		for _, w := range l.Words {
			o.printf("  - %s: %s\n", w.Name, w.Word)
		}
	}
	if l.Phase == "voting" {
		o.printf("Votes in: %d/%d\n", l.VotesIn, len(l.Players))
	}
}

func (o *Output) printLobbyList(l LobbyList) {
	if len(l.Lobbies) == 0 {
		o.printf("No open lobbies\n")
		return
	}
	codes := append([]string(nil), l.Lobbies...)
	sort.Strings(codes)
	for _, code := range codes {
		o.printf("%s\n", code)
	}
}
