package factory

import (
	"time"

	"github.com/mcoot/blendin/internal/dependencies/mocks"
	"github.com/mcoot/blendin/internal/storage/memory"
	"github.com/mcoot/blendin/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithConfig(Config{})
}

// NewTestAppWithConfig is NewTestApp with explicit lobby and scoring settings
func NewTestAppWithConfig(cfg Config) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(store, mockClock, mockRandom, cfg, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// LoadTestTopics loads a small fixed topic list
func (t *TestApp) LoadTestTopics() error {
	return t.TopicService.LoadTopics([]string{
		"Pizza", "Beach", "Zoo", "Library", "Volcano", "Circus",
	})
}
