package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"

	"github.com/mcoot/blendin/internal/api/response"
	"github.com/mcoot/blendin/internal/services/lobby"
	"github.com/mcoot/blendin/internal/transport/sse"
)

// qrSize is the edge length of generated QR codes in pixels
const qrSize = 320

// LobbyHandler handles lobby-related endpoints
type LobbyHandler struct {
	registry  *lobby.Registry
	publicURL string
	logger    *slog.Logger
}

// NewLobbyHandler creates a new lobby handler. publicURL is the base of join
// links encoded into QR codes; when empty it is derived from each request.
func NewLobbyHandler(registry *lobby.Registry, publicURL string, logger *slog.Logger) *LobbyHandler {
	return &LobbyHandler{
		registry:  registry,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		logger:    logger.With(slog.String("component", "lobby-handler")),
	}
}

// Create handles POST /api/v1/lobbies
func (h *LobbyHandler) Create(w http.ResponseWriter, r *http.Request) {
	code, err := h.registry.CreateLobby(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.CreateLobbyResponse{Code: string(code)})
}

// List handles GET /api/v1/lobbies
func (h *LobbyHandler) List(w http.ResponseWriter, r *http.Request) {
	codes := h.registry.Codes()
	list := response.LobbyList{Lobbies: make([]string, len(codes))}
	for i, code := range codes {
		list.Lobbies[i] = string(code)
	}

	response.JSON(w, http.StatusOK, list)
}

// Get handles GET /api/v1/lobbies/{code}
func (h *LobbyHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.registry.GetLobby(lobby.NormalizeCode(mux.Vars(r)["code"]))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	snapshot, err := session.Snapshot()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LobbyFromSnapshot(snapshot))
}

// Delete handles DELETE /api/v1/lobbies/{code}
func (h *LobbyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	code := lobby.NormalizeCode(mux.Vars(r)["code"])
	if _, err := h.registry.GetLobby(code); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.registry.RemoveLobby(r.Context(), code, "closed by server")
	response.NoContent(w)
}

// Events handles GET /api/v1/lobbies/{code}/events
// Streams lobby broadcasts to a spectator over SSE
func (h *LobbyHandler) Events(w http.ResponseWriter, r *http.Request) {
	code := lobby.NormalizeCode(mux.Vars(r)["code"])
	session, err := h.registry.GetLobby(code)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	sse.ServeSSE(w, r, session, h.logger.With(slog.String("lobby_code", string(code))))
}

// QR handles GET /api/v1/lobbies/{code}/qr
// Renders a PNG QR code of the lobby's join link
func (h *LobbyHandler) QR(w http.ResponseWriter, r *http.Request) {
	code := lobby.NormalizeCode(mux.Vars(r)["code"])
	if _, err := h.registry.GetLobby(code); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	url := h.baseURL(r) + "/?lobby=" + string(code)
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		writeError(w, r, h.logger, fmt.Errorf("encode qr for %s: %w", code, err))
		return
	}

	response.PNG(w, png)
}

// baseURL respects TLS and X-Forwarded-Proto when no public URL is configured
func (h *LobbyHandler) baseURL(r *http.Request) string {
	if h.publicURL != "" {
		return h.publicURL
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
