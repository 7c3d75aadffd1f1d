package redis

import (
	"fmt"

	"github.com/mcoot/blendin/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "blendin"

// codeKey returns the Redis key reserving a lobby code
func codeKey(code model.LobbyCode) string {
	return fmt.Sprintf("%s:code:%s", keyPrefix, code)
}

// topicsKey returns the Redis key for the topic catalog set
func topicsKey() string {
	return fmt.Sprintf("%s:topics", keyPrefix)
}
