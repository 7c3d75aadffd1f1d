package model

import "time"

// PlayerID identifies a player for the lifetime of their connection
type PlayerID string

// Player represents a participant in a lobby
type Player struct {
	ID       PlayerID  `json:"id"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"-"`
}

// Role is the secret part a player is dealt for a round
type Role string

const (
	RoleTruth Role = "truth" // Knows the topic
	RoleFaker Role = "faker" // Only sees decoys
)
