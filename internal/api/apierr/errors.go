package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/blendin/internal/model"
)

// APIError is the body of every error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeLobbyNotFound       = "LOBBY_NOT_FOUND"
	CodeUnknownPlayer       = "UNKNOWN_PLAYER"
	CodeNotHost             = "NOT_HOST"
	CodeNotYourTurn         = "NOT_YOUR_TURN"
	CodeWrongPhase          = "WRONG_PHASE"
	CodeInsufficientPlayers = "INSUFFICIENT_PLAYERS"
	CodeCodeSpaceExhausted  = "CODE_SPACE_EXHAUSTED"
	CodeTopicUnavailable    = "TOPIC_UNAVAILABLE"
	CodeInternalError       = "INTERNAL_ERROR"
)

type mapping struct {
	target error
	status int
	body   APIError
}

// Checked in order with errors.Is; the first match wins
var mappings = []mapping{
	{model.ErrLobbyNotFound, http.StatusNotFound, APIError{CodeLobbyNotFound, "Lobby not found"}},
	{model.ErrUnknownPlayer, http.StatusNotFound, APIError{CodeUnknownPlayer, "Player is not in this lobby"}},
	{model.ErrNotHost, http.StatusForbidden, APIError{CodeNotHost, "Only the host can perform this action"}},
	{model.ErrNotYourTurn, http.StatusForbidden, APIError{CodeNotYourTurn, "Not your turn"}},
	{model.ErrWrongPhase, http.StatusConflict, APIError{CodeWrongPhase, "Action not valid in the current phase"}},
	{model.ErrInsufficientPlayers, http.StatusConflict, APIError{CodeInsufficientPlayers, "Not enough players to start"}},
	{model.ErrInvalidAction, http.StatusBadRequest, APIError{CodeInvalidRequest, "Malformed request"}},
	{model.ErrCodeSpaceExhausted, http.StatusServiceUnavailable, APIError{CodeCodeSpaceExhausted, "No free lobby codes, try again later"}},
	{model.ErrTopicsNotLoaded, http.StatusServiceUnavailable, APIError{CodeTopicUnavailable, "No topics are loaded"}},
}

var fallback = mapping{status: http.StatusInternalServerError, body: APIError{CodeInternalError, "Internal server error"}}

// ErrInternal is written for panics and anything unrecognised.
// Its message never carries the underlying cause.
var ErrInternal = errors.New("internal error")

func lookup(err error) mapping {
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return m
		}
	}
	return fallback
}

// WriteError writes err as a JSON error response
func WriteError(w http.ResponseWriter, err error) {
	m := lookup(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(m.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: m.body})
}

// Status returns the HTTP status err is written with
func Status(err error) int {
	return lookup(err).status
}
