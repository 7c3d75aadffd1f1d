package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mcoot/blendin/internal/factory"
	"github.com/mcoot/blendin/internal/services/lobby"
	"github.com/mcoot/blendin/internal/services/scoring"
	redisstorage "github.com/mcoot/blendin/internal/storage/redis"
)

const releaseVersion = "0.3.0"

type Config struct {
	bind             string
	port             int
	publicURL        string
	discussionTicks  int
	tickInterval     time.Duration
	minPlayers       int
	decoys           int
	fakerReward      int
	catcherReward    int
	emptyLobbyTTL    time.Duration
	sweepInterval    time.Duration
	topicsFile       string
	storage          string
	redisURL         string
	metricsNamespace string
	verbose          bool
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.discussionTicks < 0 {
		return fmt.Errorf("invalid discussion ticks (must not be negative): %d", c.discussionTicks)
	}
	if c.tickInterval <= 0 {
		return fmt.Errorf("invalid tick interval (must be positive): %s", c.tickInterval)
	}
	if c.minPlayers < 1 {
		return fmt.Errorf("invalid min players (must be at least 1): %d", c.minPlayers)
	}
	if c.decoys < 0 {
		return fmt.Errorf("invalid decoys (must not be negative): %d", c.decoys)
	}
	if c.fakerReward < 0 || c.catcherReward < 0 {
		return fmt.Errorf("invalid rewards (must not be negative): faker %d, catcher %d", c.fakerReward, c.catcherReward)
	}
	switch c.storage {
	case factory.StorageTypeMemory:
	case factory.StorageTypeRedis:
		if c.redisURL == "" {
			return errors.New("--redis-url is required when --storage=redis")
		}
	default:
		return fmt.Errorf("invalid storage %q (must be memory or redis)", c.storage)
	}
	return nil
}

func (c *Config) level() slog.Level {
	if c.verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// factoryConfig translates flags into application settings
func (c *Config) factoryConfig(logger *slog.Logger) factory.Config {
	lobbyCfg := lobby.DefaultConfig()
	lobbyCfg.EmptyLobbyTTL = c.emptyLobbyTTL
	lobbyCfg.SweepInterval = c.sweepInterval
	lobbyCfg.Session.DiscussionTicks = c.discussionTicks
	lobbyCfg.Session.TickInterval = c.tickInterval
	lobbyCfg.Session.MinPlayers = c.minPlayers
	lobbyCfg.Session.DecoyCount = c.decoys

	cfg := factory.Config{
		Logger:      logger,
		StorageType: c.storage,
		Lobby:       lobbyCfg,
		Scoring: &scoring.Config{
			FakerReward:   c.fakerReward,
			CatcherReward: c.catcherReward,
		},
		TopicsFile:       c.topicsFile,
		MetricsNamespace: c.metricsNamespace,
	}

	if c.storage == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.redisURL
		cfg.RedisConfig = &redisCfg
	}

	return cfg
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("BLENDIN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "blendin-server",
		Short:         "Hosts lobbies for Blend In, the party game where one player is faking it.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	defaults := lobby.DefaultConfig()
	rewards := scoring.DefaultConfig()

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: BLENDIN_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: BLENDIN_PORT)")
	fs.StringVar(&cfg.publicURL, "public-url", "", "base URL encoded into lobby QR codes, derived from requests if unset (env: BLENDIN_PUBLIC_URL)")
	fs.IntVar(&cfg.discussionTicks, "discussion-ticks", defaults.Session.DiscussionTicks, "length of the discussion countdown in ticks (env: BLENDIN_DISCUSSION_TICKS)")
	fs.DurationVar(&cfg.tickInterval, "tick-interval", defaults.Session.TickInterval, "duration of one countdown tick (env: BLENDIN_TICK_INTERVAL)")
	fs.IntVar(&cfg.minPlayers, "min-players", defaults.Session.MinPlayers, "smallest roster a round may start with (env: BLENDIN_MIN_PLAYERS)")
	fs.IntVar(&cfg.decoys, "decoys", defaults.Session.DecoyCount, "decoy topics shown to the faker (env: BLENDIN_DECOYS)")
	fs.IntVar(&cfg.fakerReward, "faker-reward", rewards.FakerReward, "points for a faker who escapes (env: BLENDIN_FAKER_REWARD)")
	fs.IntVar(&cfg.catcherReward, "catcher-reward", rewards.CatcherReward, "points for each player who votes out the faker (env: BLENDIN_CATCHER_REWARD)")
	fs.DurationVar(&cfg.emptyLobbyTTL, "empty-lobby-ttl", defaults.EmptyLobbyTTL, "time before an empty lobby is closed (env: BLENDIN_EMPTY_LOBBY_TTL)")
	fs.DurationVar(&cfg.sweepInterval, "sweep-interval", defaults.SweepInterval, "how often to look for abandoned lobbies (env: BLENDIN_SWEEP_INTERVAL)")
	fs.StringVar(&cfg.topicsFile, "topics-file", "", "newline-separated topic list to load at startup (env: BLENDIN_TOPICS_FILE)")
	fs.StringVar(&cfg.storage, "storage", factory.StorageTypeMemory, "storage backend, memory or redis (env: BLENDIN_STORAGE)")
	fs.StringVar(&cfg.redisURL, "redis-url", "", "redis connection URL (env: BLENDIN_REDIS_URL)")
	fs.StringVar(&cfg.metricsNamespace, "metrics-namespace", "blendin", "prefix for exported metrics (env: BLENDIN_METRICS_NAMESPACE)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "log at debug level (env: BLENDIN_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("blendin-server v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
