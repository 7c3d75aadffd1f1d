package response

import (
	"time"

	"github.com/mcoot/blendin/internal/model"
)

// Player represents a player in API responses
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p model.Player) Player {
	return Player{
		ID:    string(p.ID),
		Name:  p.Name,
		Score: p.Score,
	}
}

// Word is a submitted word in API responses
type Word struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Word     string `json:"word"`
}

// Lobby represents a lobby in API responses
type Lobby struct {
	Code         string    `json:"code"`
	Phase        string    `json:"phase"`
	Round        int       `json:"round"`
	HostID       string    `json:"host_id,omitempty"`
	Players      []Player  `json:"players"`
	TurnPlayerID string    `json:"turn_player_id,omitempty"`
	Words        []Word    `json:"words,omitempty"`
	VotesIn      int       `json:"votes_in"`
	FakerID      string    `json:"faker_id,omitempty"`
	Topic        string    `json:"topic,omitempty"`
	Spectators   int       `json:"spectators"`
	CreatedAt    time.Time `json:"created_at"`
}

// LobbyFromSnapshot converts model.LobbySnapshot
func LobbyFromSnapshot(s model.LobbySnapshot) Lobby {
	players := make([]Player, len(s.Players))
	for i, p := range s.Players {
		players[i] = PlayerFromModel(p)
	}

	var words []Word
	for _, w := range s.Words {
		words = append(words, Word{PlayerID: string(w.PlayerID), Name: w.Name, Word: w.Word})
	}

	return Lobby{
		Code:         string(s.Code),
		Phase:        string(s.Phase),
		Round:        s.Round,
		HostID:       string(s.HostID),
		Players:      players,
		TurnPlayerID: string(s.TurnPlayerID),
		Words:        words,
		VotesIn:      s.VotesIn,
		FakerID:      string(s.FakerID),
		Topic:        s.Topic,
		Spectators:   s.Spectators,
		CreatedAt:    s.CreatedAt,
	}
}

// CreateLobbyResponse is the response after creating a lobby
type CreateLobbyResponse struct {
	Code string `json:"code"`
}

// LobbyList lists the codes of all open lobbies
type LobbyList struct {
	Lobbies []string `json:"lobbies"`
}

// Health is the response for the health endpoint
type Health struct {
	Status  string `json:"status"`
	Lobbies int    `json:"lobbies"`
	Topics  int    `json:"topics"`
}
