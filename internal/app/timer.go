package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Clock produces the tickers that pace a countdown. Tests swap in a manual clock.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

func (realClock) NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// RealClock paces countdowns with wall-clock time.
func RealClock() Clock {
	return realClock{}
}

// Generation identifies a single countdown started by a RoundTimer.
// Zero never identifies a running countdown.
type Generation uint64

// RoundTimer is a cancellable one-second countdown. At most one countdown is live;
// starting a new one invalidates the previous generation first.
type RoundTimer struct {
	clock Clock
	gen   atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewRoundTimer(clock Clock) *RoundTimer {
	if clock == nil {
		clock = RealClock()
	}
	return &RoundTimer{clock: clock}
}

// Start counts down from seconds. onTick receives the remaining seconds once per
// elapsed second; after the tick that reaches zero onExpire runs exactly once.
// Callbacks run on the timer goroutine without any timer lock held and carry their
// generation so the owner can discard them if it has moved on.
func (t *RoundTimer) Start(seconds int, onTick func(Generation, int), onExpire func(Generation)) Generation {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	gen := Generation(t.gen.Add(1))
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	// The ticker exists before Start returns so a manual clock can drive it immediately.
	ticker := t.clock.NewTicker(time.Second)
	go t.run(ctx, ticker, gen, seconds, onTick, onExpire)
	return gen
}

// Cancel invalidates the live countdown and stops its goroutine. A callback that
// passed its generation check before Cancel may still be running or about to run;
// owners must compare the generation against their own state under their own lock
// before applying it. IsCurrent reports false for that generation from here on.
func (t *RoundTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.gen.Add(1)
}

// IsCurrent reports whether gen is the live countdown.
func (t *RoundTimer) IsCurrent(gen Generation) bool {
	return gen != 0 && Generation(t.gen.Load()) == gen
}

func (t *RoundTimer) stopLocked() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *RoundTimer) run(ctx context.Context, ticker Ticker, gen Generation, seconds int, onTick func(Generation, int), onExpire func(Generation)) {
	defer ticker.Stop()

	remaining := seconds
	for remaining > 0 {
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}
		if !t.IsCurrent(gen) {
			return
		}
		remaining--
		if onTick != nil {
			onTick(gen, remaining)
		}
	}
	if !t.IsCurrent(gen) {
		return
	}
	if onExpire != nil {
		onExpire(gen)
	}
}
