package app

import (
	"sync"
	"testing"
	"time"
)

// ManualClock hands out tickers that only fire when the test calls Tick.
type ManualClock struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func NewManualClock() *ManualClock {
	return &ManualClock{}
}

func (c *ManualClock) NewTicker(time.Duration) Ticker {
	t := &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
	c.mu.Lock()
	c.tickers = append(c.tickers, t)
	c.mu.Unlock()
	return t
}

// Tick delivers one tick to the newest countdown and reports whether it was taken.
// Because the channel is unbuffered, a successful Tick also means the previous
// tick has been fully processed.
func (c *ManualClock) Tick() bool {
	t := c.newest()
	if t == nil {
		return false
	}
	return t.send(time.Second)
}

// TickN delivers n ticks and reports how many were taken.
func (c *ManualClock) TickN(n int) int {
	taken := 0
	for i := 0; i < n; i++ {
		if c.Tick() {
			taken++
		}
	}
	return taken
}

// Tickers reports how many countdowns have been started on this clock.
func (c *ManualClock) Tickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

func (c *ManualClock) ticker(i int) *manualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickers[i]
}

func (c *ManualClock) newest() *manualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tickers) == 0 {
		return nil
	}
	return c.tickers[len(c.tickers)-1]
}

// waitStopped blocks until the i-th countdown has released its ticker, which
// happens only after its goroutine is done.
func waitStopped(t testing.TB, c *ManualClock, i int) {
	t.Helper()
	select {
	case <-c.ticker(i).stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("countdown %d never stopped", i)
	}
}

type manualTicker struct {
	ch      chan time.Time
	once    sync.Once
	stopped chan struct{}
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.once.Do(func() { close(t.stopped) })
}

func (t *manualTicker) send(timeout time.Duration) bool {
	select {
	case <-t.stopped:
		return false
	default:
	}
	select {
	case t.ch <- time.Now():
		return true
	case <-t.stopped:
		return false
	case <-time.After(timeout):
		return false
	}
}
