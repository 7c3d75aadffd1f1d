package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP requests to WebSocket connections and pumps their
// actions through the dispatcher. Closing the socket is the disconnect notification.
type Handler struct {
	dispatcher *Dispatcher
	recorder   Recorder
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// NewHandler creates a new WebSocket Handler
func NewHandler(dispatcher *Dispatcher, recorder Recorder, logger *slog.Logger) *Handler {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Handler{
		dispatcher: dispatcher,
		recorder:   recorder,
		logger:     logger.With(slog.String("component", "websocket")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	connID := uuid.NewString()
	logger := h.logger.With(slog.String("conn_id", connID))
	conn := newConn(ws, logger)
	peer := &Peer{Sink: conn}

	h.recorder.ConnectionOpened()
	logger.Info("websocket connected", slog.String("remote_addr", r.RemoteAddr))
	connectedAt := time.Now()

	// Teardown below must run even once the request context is done
	ctx := context.WithoutCancel(r.Context())

	go conn.writePump()
	conn.readPump(func(data []byte) {
		h.dispatcher.Dispatch(ctx, peer, data)
	})

	h.dispatcher.Disconnect(ctx, peer)
	h.recorder.ConnectionClosed()
	logger.Info("websocket disconnected", slog.Duration("connection_duration", time.Since(connectedAt)))
}
