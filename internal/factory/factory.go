package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/blendin/internal/api"
	"github.com/mcoot/blendin/internal/dependencies/clock"
	"github.com/mcoot/blendin/internal/dependencies/random"
	"github.com/mcoot/blendin/internal/metrics"
	"github.com/mcoot/blendin/internal/services/game"
	"github.com/mcoot/blendin/internal/services/lobby"
	"github.com/mcoot/blendin/internal/services/scoring"
	"github.com/mcoot/blendin/internal/services/topic"
	"github.com/mcoot/blendin/internal/storage"
	"github.com/mcoot/blendin/internal/storage/memory"
	redisstorage "github.com/mcoot/blendin/internal/storage/redis"
	"github.com/mcoot/blendin/internal/transport/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	TopicService   *topic.Service
	ScoringService *scoring.Service
	Registry       *lobby.Registry
	Metrics        *metrics.Metrics

	// Transport
	Dispatcher *ws.Dispatcher
	WebSocket  *ws.Handler

	logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// Lobby holds registry and session settings
	// If zero value, defaults to lobby.DefaultConfig()
	Lobby lobby.Config
	// Scoring holds the round rewards
	// If nil, defaults to scoring.DefaultConfig(); zero rewards are honoured
	Scoring *scoring.Config
	// TopicsFile is a newline-separated topic list (optional)
	// If empty, topics come from storage or the built-in defaults
	TopicsFile string
	// MetricsNamespace prefixes every exported metric (optional)
	MetricsNamespace string
}

// New creates a new application with all dependencies wired and its topic
// catalogue loaded
func New(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	app := newWithDependencies(store, clock.New(), random.New(), cfg, logger)

	if err := app.TopicService.Bootstrap(ctx, cfg.TopicsFile); err != nil {
		_ = app.closeStorage()
		return nil, fmt.Errorf("load topics: %w", err)
	}

	return app, nil
}

func newStorage(cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, cfg Config, logger *slog.Logger) *App {
	lobbyCfg := cfg.Lobby
	if lobbyCfg.CodeLength == 0 {
		lobbyCfg = lobby.DefaultConfig()
	}
	scoringCfg := scoring.DefaultConfig()
	if cfg.Scoring != nil {
		scoringCfg = *cfg.Scoring
	}

	m := metrics.New(cfg.MetricsNamespace)
	topicService := topic.New(store, rnd, logger)
	scoringService := scoring.New(scoringCfg)

	registry := lobby.NewRegistry(store, game.Dependencies{
		Scoring: scoringService,
		Topics:  topicService,
		Clock:   clk,
		Random:  rnd,
		Logger:  logger,
	}, m, lobbyCfg)

	dispatcher := ws.NewDispatcher(registry, clk, m, logger)

	return &App{
		Storage:        store,
		Clock:          clk,
		Random:         rnd,
		TopicService:   topicService,
		ScoringService: scoringService,
		Registry:       registry,
		Metrics:        m,
		Dispatcher:     dispatcher,
		WebSocket:      ws.NewHandler(dispatcher, m, logger),
		logger:         logger,
	}
}

// Router builds the HTTP handler serving the whole application
func (a *App) Router(publicURL string) http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:    a.logger,
		Registry:  a.Registry,
		Topics:    a.TopicService,
		WebSocket: a.WebSocket,
		Metrics:   a.Metrics.Handler(),
		PublicURL: publicURL,
	})
}

// Close tears down every open lobby and releases the storage connection
func (a *App) Close(ctx context.Context) error {
	a.Registry.Close(ctx)
	return a.closeStorage()
}

func (a *App) closeStorage() error {
	if closer, ok := a.Storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
