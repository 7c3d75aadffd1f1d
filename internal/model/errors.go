package model

import "errors"

// Common errors used across the application
var (
	// Lobby errors
	ErrLobbyNotFound       = errors.New("lobby not found")
	ErrUnknownPlayer       = errors.New("player is not in lobby")
	ErrNotHost             = errors.New("player is not the host")
	ErrInsufficientPlayers = errors.New("insufficient players to start round")
	ErrDuplicateCode       = errors.New("lobby code already in use")
	ErrCodeSpaceExhausted  = errors.New("could not allocate a free lobby code")

	// Round errors
	ErrWrongPhase  = errors.New("action not valid in current phase")
	ErrNotYourTurn = errors.New("not this player's turn")

	// Payload errors
	ErrInvalidAction = errors.New("malformed action")

	// Topic errors
	ErrTopicsNotLoaded = errors.New("no topics loaded")
)

// ErrorKind is the name of an error as reported to clients
type ErrorKind string

const (
	KindLobbyNotFound       ErrorKind = "LobbyNotFound"
	KindUnknownPlayer       ErrorKind = "UnknownPlayer"
	KindNotYourTurn         ErrorKind = "NotYourTurn"
	KindWrongPhase          ErrorKind = "WrongPhase"
	KindInsufficientPlayers ErrorKind = "InsufficientPlayers"
	KindNotHost             ErrorKind = "NotHost"
	KindInvalidAction       ErrorKind = "InvalidAction"
	KindTopicUnavailable    ErrorKind = "TopicUnavailable"
	KindInternal            ErrorKind = "Internal"
)

// KindOf maps an error to the kind reported to clients
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrLobbyNotFound):
		return KindLobbyNotFound
	case errors.Is(err, ErrUnknownPlayer):
		return KindUnknownPlayer
	case errors.Is(err, ErrNotYourTurn):
		return KindNotYourTurn
	case errors.Is(err, ErrWrongPhase):
		return KindWrongPhase
	case errors.Is(err, ErrInsufficientPlayers):
		return KindInsufficientPlayers
	case errors.Is(err, ErrNotHost):
		return KindNotHost
	case errors.Is(err, ErrInvalidAction):
		return KindInvalidAction
	case errors.Is(err, ErrTopicsNotLoaded):
		return KindTopicUnavailable
	default:
		return KindInternal
	}
}
