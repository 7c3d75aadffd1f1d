package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/blendin/internal/model"
)

func TestWriteErrorMapsModelErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"lobby not found", model.ErrLobbyNotFound, http.StatusNotFound, CodeLobbyNotFound},
		{"wrapped lobby not found", fmt.Errorf("get: %w", model.ErrLobbyNotFound), http.StatusNotFound, CodeLobbyNotFound},
		{"unknown player", model.ErrUnknownPlayer, http.StatusNotFound, CodeUnknownPlayer},
		{"not host", model.ErrNotHost, http.StatusForbidden, CodeNotHost},
		{"not your turn", model.ErrNotYourTurn, http.StatusForbidden, CodeNotYourTurn},
		{"wrong phase", model.ErrWrongPhase, http.StatusConflict, CodeWrongPhase},
		{"insufficient players", model.ErrInsufficientPlayers, http.StatusConflict, CodeInsufficientPlayers},
		{"invalid action", model.ErrInvalidAction, http.StatusBadRequest, CodeInvalidRequest},
		{"code space", model.ErrCodeSpaceExhausted, http.StatusServiceUnavailable, CodeCodeSpaceExhausted},
		{"topics", model.ErrTopicsNotLoaded, http.StatusServiceUnavailable, CodeTopicUnavailable},
		{"internal", ErrInternal, http.StatusInternalServerError, CodeInternalError},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.status, Status(tt.err))
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, errors.New("redis: connection refused at 10.0.0.4"))

	assert.NotContains(t, rr.Body.String(), "10.0.0.4")
}
