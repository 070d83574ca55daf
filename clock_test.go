package omnifetch

import (
	"sync"
	"time"
)

// fakeClock is a manually driven Clock for tests. Advance moves the reported
// time; Fire releases every channel handed out by After.
type fakeClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []chan time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{current: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.mu.Lock()
	c.waiters = append(c.waiters, ch)
	c.mu.Unlock()
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

func (c *fakeClock) Fire() {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	now := c.current
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- now
	}
}
