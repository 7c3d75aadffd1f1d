package storage

import (
	"context"

	"github.com/mcoot/blendin/internal/model"
)

// Storage defines the interface for the small amount of state kept outside a
// session: lobby code reservations and the topic catalog. Lobby state itself
// never leaves process memory.
type Storage interface {
	// Code reservation operations
	ReserveCode(ctx context.Context, code model.LobbyCode) (bool, error)
	ReleaseCode(ctx context.Context, code model.LobbyCode) error
	CodeReserved(ctx context.Context, code model.LobbyCode) (bool, error)

	// Topic catalog operations
	GetTopics(ctx context.Context) ([]string, error)
	SaveTopics(ctx context.Context, topics []string) error
}
