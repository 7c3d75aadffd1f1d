package game

import (
	"log/slog"
	"time"

	"github.com/mcoot/blendin/internal/dependencies/clock"
	"github.com/mcoot/blendin/internal/dependencies/random"
	"github.com/mcoot/blendin/internal/model"
	"github.com/mcoot/blendin/internal/services/scoring"
)

// Sink delivers events to one connected client.
// Send is called with the session lock held and must not block.
type Sink interface {
	Send(event model.Event)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(event model.Event)

// Send calls f(event)
func (f SinkFunc) Send(event model.Event) {
	f(event)
}

// TopicSource deals the secret topic and the faker's decoys
type TopicSource interface {
	Pick() (string, error)
	Decoys(exclude string, n int) []string
}

// Recorder observes round outcomes, typically for metrics
type Recorder interface {
	RoundStarted()
	RoundCompleted(caught bool)
	RoundAborted()
}

// NopRecorder discards everything
type NopRecorder struct{}

func (NopRecorder) RoundStarted()       {}
func (NopRecorder) RoundCompleted(bool) {}
func (NopRecorder) RoundAborted()       {}

// Config holds per-session tunables
type Config struct {
	DiscussionTicks int           // Countdown length in ticks
	TickInterval    time.Duration // Duration of one tick
	MinPlayers      int           // Smallest roster a round may start with
	DecoyCount      int           // Decoy topics dealt to the faker
}

// DefaultConfig returns the standard session settings
func DefaultConfig() Config {
	return Config{
		DiscussionTicks: 30,
		TickInterval:    time.Second,
		MinPlayers:      1,
		DecoyCount:      3,
	}
}

// Dependencies are the collaborators shared by every session
type Dependencies struct {
	Scoring  *scoring.Service
	Topics   TopicSource
	Clock    clock.Clock
	Random   random.Random
	Recorder Recorder
	Logger   *slog.Logger
}
