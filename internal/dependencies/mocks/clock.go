package mocks

import (
	"sort"
	"sync"
	"time"

	"github.com/mcoot/blendin/internal/dependencies/clock"
)

// MockClock is a mock implementation of Clock for testing.
// Scheduled callbacks only fire from Advance, synchronously on the caller's goroutine.
type MockClock struct {
	mu      sync.Mutex
	current time.Time
	pending []*mockTimer
	nextSeq int
}

type mockTimer struct {
	clock *MockClock
	at    time.Time
	seq   int
	fn    func()
	done  bool
}

// Ensure MockClock implements Clock
var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{current: t}
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AfterFunc queues f to fire once the clock has been advanced past d
func (c *MockClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSeq++
	t := &mockTimer{clock: c, at: c.current.Add(d), seq: c.nextSeq, fn: f}
	c.pending = append(c.pending, t)
	return t
}

// Stop cancels the timer if it has not fired
func (t *mockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.clock.removeLocked(t)
	return true
}

// Advance moves the clock forward, firing every callback that falls due in order.
// Callbacks scheduled by fired callbacks also fire if they fall within the window.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.current.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.current = target
			c.mu.Unlock()
			return
		}
		c.current = next.at
		next.done = true
		c.removeLocked(next)
		c.mu.Unlock()

		next.fn()
	}
}

// Set sets the clock to the given time without firing callbacks
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// PendingTimers returns the number of scheduled callbacks that have not fired
func (c *MockClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *MockClock) nextDueLocked(target time.Time) *mockTimer {
	sort.SliceStable(c.pending, func(i, j int) bool {
		if c.pending[i].at.Equal(c.pending[j].at) {
			return c.pending[i].seq < c.pending[j].seq
		}
		return c.pending[i].at.Before(c.pending[j].at)
	})
	if len(c.pending) == 0 || c.pending[0].at.After(target) {
		return nil
	}
	return c.pending[0]
}

func (c *MockClock) removeLocked(t *mockTimer) {
	for i, p := range c.pending {
		if p == t {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}
