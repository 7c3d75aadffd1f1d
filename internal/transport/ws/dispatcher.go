package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/mcoot/blendin/internal/dependencies/clock"
	"github.com/mcoot/blendin/internal/model"
	"github.com/mcoot/blendin/internal/services/game"
	"github.com/mcoot/blendin/internal/services/lobby"
)

// Registry is the subset of the lobby registry the transport drives
type Registry interface {
	CreateLobby(ctx context.Context) (model.LobbyCode, error)
	JoinLobby(ctx context.Context, code model.LobbyCode, name string, sink game.Sink) (model.PlayerID, error)
	GetLobby(code model.LobbyCode) (*game.Session, error)
	StartRound(code model.LobbyCode, playerID model.PlayerID, topic string) error
	NextRound(code model.LobbyCode, playerID model.PlayerID, topic string) error
	SubmitWord(code model.LobbyCode, playerID model.PlayerID, word string) error
	SubmitVote(code model.LobbyCode, voterID, targetID model.PlayerID) error
	Disconnect(ctx context.Context, code model.LobbyCode, playerID model.PlayerID) error
}

var _ Registry = (*lobby.Registry)(nil)

// Recorder observes connections and handled actions
type Recorder interface {
	ConnectionOpened()
	ConnectionClosed()
	ObserveAction(action string, err error, elapsed time.Duration)
}

// NopRecorder discards everything
type NopRecorder struct{}

func (NopRecorder) ConnectionOpened()                          {}
func (NopRecorder) ConnectionClosed()                          {}
func (NopRecorder) ObserveAction(string, error, time.Duration) {}

// Peer is the per-connection state: where to deliver events, and which
// lobby and player the connection became once it joined.
type Peer struct {
	Sink     game.Sink
	Code     model.LobbyCode
	PlayerID model.PlayerID
}

// Dispatcher decodes client actions and routes them into the registry.
// Failures go back to the originating peer as error events.
type Dispatcher struct {
	registry Registry
	clock    clock.Clock
	recorder Recorder
	logger   *slog.Logger
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(registry Registry, clock clock.Clock, recorder Recorder, logger *slog.Logger) *Dispatcher {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Dispatcher{
		registry: registry,
		clock:    clock,
		recorder: recorder,
		logger:   logger.With(slog.String("component", "dispatcher")),
	}
}

// Dispatch handles one raw inbound message from p
func (d *Dispatcher) Dispatch(ctx context.Context, p *Peer, data []byte) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		d.logger.Debug("malformed message", slog.String("error", err.Error()))
		d.reject(p, p.Code, model.ErrInvalidAction)
		d.recorder.ObserveAction("malformed", model.ErrInvalidAction, 0)
		return
	}

	start := time.Now()
	code, err := d.handle(ctx, p, msg)
	action := actionLabel(msg.Action)
	d.recorder.ObserveAction(action, err, time.Since(start))
	if err != nil {
		d.logger.Debug("action rejected",
			slog.String("action", action),
			slog.String("lobby_code", string(code)),
			slog.String("player_id", string(p.PlayerID)),
			slog.String("error", err.Error()),
		)
		d.reject(p, code, err)
	}
}

func (d *Dispatcher) handle(ctx context.Context, p *Peer, msg Inbound) (model.LobbyCode, error) {
	code := lobby.NormalizeCode(msg.Code)
	if code == "" {
		code = p.Code
	}

	switch msg.Action {
	case ActionCreateLobby:
		created, err := d.registry.CreateLobby(ctx)
		if err != nil {
			return "", err
		}
		p.Sink.Send(model.Event{
			Type:      model.EventLobbyCreated,
			LobbyCode: created,
			Timestamp: d.clock.Now(),
			Payload:   model.LobbyCreatedPayload{Code: created},
		})
		return created, nil

	case ActionJoinLobby:
		return code, d.join(ctx, p, code, msg.Name)

	case ActionStartRound:
		return code, d.registry.StartRound(code, p.PlayerID, msg.Topic)

	case ActionNextRound:
		return code, d.registry.NextRound(code, p.PlayerID, msg.Topic)

	case ActionSubmitWord:
		return code, d.registry.SubmitWord(code, p.PlayerID, msg.Word)

	case ActionSubmitVote:
		if msg.TargetID == "" {
			return code, model.ErrInvalidAction
		}
		return code, d.registry.SubmitVote(code, p.PlayerID, msg.TargetID)

	default:
		return code, model.ErrInvalidAction
	}
}

// join enrols the peer in a lobby. A connection is one player in at most
// one lobby; it may join again only once its previous lobby is gone.
func (d *Dispatcher) join(ctx context.Context, p *Peer, code model.LobbyCode, name string) error {
	if code == "" {
		return model.ErrInvalidAction
	}
	if p.PlayerID != "" {
		if _, err := d.registry.GetLobby(p.Code); err == nil {
			return model.ErrInvalidAction
		}
		p.Code, p.PlayerID = "", ""
	}

	id, err := d.registry.JoinLobby(ctx, code, name, p.Sink)
	if err != nil {
		return err
	}
	p.Code, p.PlayerID = code, id
	return nil
}

// Disconnect tells the registry the peer's connection has gone away
func (d *Dispatcher) Disconnect(ctx context.Context, p *Peer) {
	if p.PlayerID == "" {
		return
	}
	err := d.registry.Disconnect(ctx, p.Code, p.PlayerID)
	if err != nil && !errors.Is(err, model.ErrLobbyNotFound) && !errors.Is(err, model.ErrUnknownPlayer) {
		d.logger.Warn("disconnect failed",
			slog.String("lobby_code", string(p.Code)),
			slog.String("player_id", string(p.PlayerID)),
			slog.String("error", err.Error()),
		)
	}
	p.Code, p.PlayerID = "", ""
}

func (d *Dispatcher) reject(p *Peer, code model.LobbyCode, err error) {
	p.Sink.Send(model.NewErrorEvent(code, err, d.clock.Now()))
}
