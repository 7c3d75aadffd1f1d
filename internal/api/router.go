package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/blendin/internal/api/apierr"
	"github.com/mcoot/blendin/internal/api/handler"
	"github.com/mcoot/blendin/internal/middleware"
	"github.com/mcoot/blendin/internal/services/lobby"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger    *slog.Logger
	Registry  *lobby.Registry
	Topics    handler.TopicCounter
	WebSocket http.Handler
	Metrics   http.Handler
	PublicURL string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	lobbyHandler := handler.NewLobbyHandler(cfg.Registry, cfg.PublicURL, cfg.Logger)
	healthHandler := handler.NewHealthHandler(cfg.Registry, cfg.Topics)

	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger, apiPanicHandler)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)

	lobbies := api.PathPrefix("/lobbies").Subrouter()
	lobbies.HandleFunc("", lobbyHandler.Create).Methods(http.MethodPost)
	lobbies.HandleFunc("", lobbyHandler.List).Methods(http.MethodGet)
	lobbies.HandleFunc("/{code}", lobbyHandler.Get).Methods(http.MethodGet)
	lobbies.HandleFunc("/{code}", lobbyHandler.Delete).Methods(http.MethodDelete)
	lobbies.HandleFunc("/{code}/events", lobbyHandler.Events).Methods(http.MethodGet)
	lobbies.HandleFunc("/{code}/qr", lobbyHandler.QR).Methods(http.MethodGet)

	// Game traffic. Recovery stays silent once the socket has been upgraded.
	if cfg.WebSocket != nil {
		ws := middleware.Recovery(cfg.Logger, middleware.DefaultPanicHandler)(loggingMiddleware(cfg.WebSocket))
		r.Handle("/ws", ws).Methods(http.MethodGet)
	}

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics).Methods(http.MethodGet)
	}

	return r
}

func apiPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.ErrInternal)
}
