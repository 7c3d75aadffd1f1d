package lobby

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/blendin/internal/model"
	"github.com/mcoot/blendin/internal/services/game"
	"github.com/mcoot/blendin/internal/storage"
)

const (
	// LobbyCodeLength is the length of generated lobby codes
	LobbyCodeLength = 4
	// LobbyCodeAlphabet is the characters used in lobby codes (avoid confusing chars)
	LobbyCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Recorder observes lobby lifecycle and round outcomes
type Recorder interface {
	game.Recorder
	LobbyOpened()
	LobbyClosed()
	PlayerJoined()
	PlayerLeft()
}

// NopRecorder discards everything
type NopRecorder struct {
	game.NopRecorder
}

func (NopRecorder) LobbyOpened()  {}
func (NopRecorder) LobbyClosed()  {}
func (NopRecorder) PlayerJoined() {}
func (NopRecorder) PlayerLeft()   {}

// Config holds registry settings
type Config struct {
	CodeLength      int
	CodeAlphabet    string
	MaxCodeAttempts int           // Collisions tolerated before giving up
	CodeBackoff     time.Duration // Pause after every 16 consecutive collisions
	EmptyLobbyTTL   time.Duration // How long a lobby may sit with nobody in it
	SweepInterval   time.Duration
	Session         game.Config
}

// DefaultConfig returns the standard registry settings
func DefaultConfig() Config {
	return Config{
		CodeLength:      LobbyCodeLength,
		CodeAlphabet:    LobbyCodeAlphabet,
		MaxCodeAttempts: 64,
		CodeBackoff:     10 * time.Millisecond,
		EmptyLobbyTTL:   5 * time.Minute,
		SweepInterval:   30 * time.Second,
		Session:         game.DefaultConfig(),
	}
}

// Registry maps lobby codes to live sessions.
// It owns creation and teardown; everything else is delegated to the session.
type Registry struct {
	storage  storage.Storage
	deps     game.Dependencies
	recorder Recorder
	cfg      Config
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[model.LobbyCode]*game.Session
}

// NewRegistry creates an empty registry
func NewRegistry(storage storage.Storage, deps game.Dependencies, recorder Recorder, cfg Config) *Registry {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	deps.Recorder = recorder
	return &Registry{
		storage:  storage,
		deps:     deps,
		recorder: recorder,
		cfg:      cfg,
		logger:   deps.Logger.With(slog.String("component", "registry")),
		sessions: make(map[model.LobbyCode]*game.Session),
	}
}

// NormalizeCode canonicalises user-entered lobby codes
func NormalizeCode(code string) model.LobbyCode {
	return model.LobbyCode(strings.ToUpper(strings.TrimSpace(code)))
}

// CreateLobby allocates a fresh code and opens an empty lobby under it
func (r *Registry) CreateLobby(ctx context.Context) (model.LobbyCode, error) {
	for attempt := 0; attempt < r.cfg.MaxCodeAttempts; attempt++ {
		if attempt > 0 && attempt%16 == 0 {
			if err := r.backoff(ctx); err != nil {
				return "", err
			}
		}

		code := model.LobbyCode(r.deps.Random.String(r.cfg.CodeLength, r.cfg.CodeAlphabet))
		err := r.register(ctx, code)
		if errors.Is(err, model.ErrDuplicateCode) {
			r.logger.Debug("lobby code collision", slog.String("lobby_code", string(code)), slog.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return "", err
		}

		r.recorder.LobbyOpened()
		r.logger.Info("lobby created", slog.String("lobby_code", string(code)))
		return code, nil
	}

	r.logger.Error("lobby code space exhausted", slog.Int("attempts", r.cfg.MaxCodeAttempts))
	return "", model.ErrCodeSpaceExhausted
}

func (r *Registry) backoff(ctx context.Context) error {
	if r.cfg.CodeBackoff <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(r.cfg.CodeBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// register claims code in both the shared store and the local map
func (r *Registry) register(ctx context.Context, code model.LobbyCode) error {
	if code == "" {
		return model.ErrDuplicateCode
	}

	r.mu.RLock()
	_, live := r.sessions[code]
	r.mu.RUnlock()
	if live {
		return model.ErrDuplicateCode
	}

	ok, err := r.storage.ReserveCode(ctx, code)
	if err != nil {
		return fmt.Errorf("reserve lobby code: %w", err)
	}
	if !ok {
		return model.ErrDuplicateCode
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, live := r.sessions[code]; live {
		return model.ErrDuplicateCode
	}
	r.sessions[code] = game.NewSession(code, r.cfg.Session, r.deps)
	return nil
}

// GetLobby returns the live session for code
func (r *Registry) GetLobby(code model.LobbyCode) (*game.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[code]
	if !ok {
		return nil, model.ErrLobbyNotFound
	}
	return session, nil
}

// Codes returns every live lobby code
func (r *Registry) Codes() []model.LobbyCode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]model.LobbyCode, 0, len(r.sessions))
	for code := range r.sessions {
		codes = append(codes, code)
	}
	return codes
}

// Count returns the number of live lobbies
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// JoinLobby adds a new player to the lobby and returns the id assigned to them
func (r *Registry) JoinLobby(ctx context.Context, code model.LobbyCode, name string, sink game.Sink) (model.PlayerID, error) {
	session, err := r.GetLobby(code)
	if err != nil {
		return "", err
	}

	id := model.PlayerID(uuid.NewString())
	if err := session.Join(id, name, sink); err != nil {
		return "", err
	}
	r.recorder.PlayerJoined()
	return id, nil
}

// StartRound starts a round on behalf of the host
func (r *Registry) StartRound(code model.LobbyCode, playerID model.PlayerID, topic string) error {
	session, err := r.GetLobby(code)
	if err != nil {
		return err
	}
	return session.StartRound(playerID, topic)
}

// NextRound starts the following round from the results phase
func (r *Registry) NextRound(code model.LobbyCode, playerID model.PlayerID, topic string) error {
	session, err := r.GetLobby(code)
	if err != nil {
		return err
	}
	return session.NextRound(playerID, topic)
}

// SubmitWord submits the player's word for the current turn
func (r *Registry) SubmitWord(code model.LobbyCode, playerID model.PlayerID, word string) error {
	session, err := r.GetLobby(code)
	if err != nil {
		return err
	}
	return session.SubmitWord(playerID, word)
}

// SubmitVote records the player's vote
func (r *Registry) SubmitVote(code model.LobbyCode, voterID, targetID model.PlayerID) error {
	session, err := r.GetLobby(code)
	if err != nil {
		return err
	}
	return session.SubmitVote(voterID, targetID)
}

// Disconnect handles a player's connection going away.
// A departing host takes the lobby with them.
func (r *Registry) Disconnect(ctx context.Context, code model.LobbyCode, playerID model.PlayerID) error {
	session, err := r.GetLobby(code)
	if err != nil {
		return err
	}

	destroyed, err := session.Leave(playerID)
	if err != nil {
		return err
	}

	if destroyed {
		r.drop(ctx, code, session)
		return nil
	}
	r.recorder.PlayerLeft()
	return nil
}

// RemoveLobby closes and forgets a lobby. Removing an unknown code is not an error.
func (r *Registry) RemoveLobby(ctx context.Context, code model.LobbyCode, reason string) {
	r.mu.RLock()
	session, ok := r.sessions[code]
	r.mu.RUnlock()
	if !ok {
		return
	}

	session.Close(reason)
	r.drop(ctx, code, session)
}

// drop forgets a closed session, if it is still the one registered under code
func (r *Registry) drop(ctx context.Context, code model.LobbyCode, session *game.Session) {
	r.mu.Lock()
	current, ok := r.sessions[code]
	if ok && current == session {
		delete(r.sessions, code)
	}
	r.mu.Unlock()
	if !ok || current != session {
		return
	}

	// Everyone still on the roster goes with the lobby
	for range session.PlayerCount() {
		r.recorder.PlayerLeft()
	}
	r.recorder.LobbyClosed()
	if err := r.storage.ReleaseCode(ctx, code); err != nil {
		r.logger.Warn("failed to release lobby code",
			slog.String("lobby_code", string(code)),
			slog.String("error", err.Error()),
		)
	}
	r.logger.Info("lobby removed", slog.String("lobby_code", string(code)))
}

// Sweep removes lobbies that have been empty for longer than EmptyLobbyTTL,
// plus any that were closed but not yet dropped. Returns the number removed.
func (r *Registry) Sweep(ctx context.Context) int {
	now := r.deps.Clock.Now()

	r.mu.RLock()
	candidates := make(map[model.LobbyCode]*game.Session, len(r.sessions))
	for code, session := range r.sessions {
		candidates[code] = session
	}
	r.mu.RUnlock()

	removed := 0
	for code, session := range candidates {
		if session.IsClosed() {
			r.drop(ctx, code, session)
			removed++
			continue
		}
		since, empty := session.EmptySince()
		if empty && now.Sub(since) > r.cfg.EmptyLobbyTTL {
			session.Close("lobby empty")
			r.drop(ctx, code, session)
			removed++
		}
	}

	if removed > 0 {
		r.logger.Info("swept lobbies", slog.Int("removed", removed), slog.Int("remaining", r.Count()))
	}
	return removed
}

// Run sweeps on an interval until ctx is cancelled
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Close tears down every lobby, for server shutdown
func (r *Registry) Close(ctx context.Context) {
	for _, code := range r.Codes() {
		r.RemoveLobby(ctx, code, "server shutting down")
	}
}
