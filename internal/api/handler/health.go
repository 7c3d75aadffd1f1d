package handler

import (
	"net/http"

	"github.com/mcoot/blendin/internal/api/response"
)

// LobbyCounter reports how many lobbies are open
type LobbyCounter interface {
	Count() int
}

// TopicCounter reports how many topics are loaded
type TopicCounter interface {
	Count() int
}

// HealthHandler serves the health endpoint
type HealthHandler struct {
	lobbies LobbyCounter
	topics  TopicCounter
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(lobbies LobbyCounter, topics TopicCounter) *HealthHandler {
	return &HealthHandler{lobbies: lobbies, topics: topics}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp := response.Health{
		Status:  "ok",
		Lobbies: h.lobbies.Count(),
		Topics:  h.topics.Count(),
	}
	if resp.Topics == 0 {
		resp.Status = "degraded"
	}

	response.JSON(w, http.StatusOK, resp)
}
