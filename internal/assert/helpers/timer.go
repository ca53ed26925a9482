package helpers

import (
	"sync"
	"time"

	"github.com/kode4food/sequin/internal/engine"
)

// FakeTimers replaces real delay timers in tests. Every timer it builds
// fires immediately, and the requested delays are recorded
type FakeTimers struct {
	delays []time.Duration
	mu     sync.Mutex
}

type firedTimer struct {
	ch chan time.Time
}

// NewFakeTimers creates an empty FakeTimers
func NewFakeTimers() *FakeTimers {
	return &FakeTimers{}
}

// NewTimer records delay and returns a timer that has already fired
func (f *FakeTimers) NewTimer(delay time.Duration) engine.Timer {
	f.mu.Lock()
	f.delays = append(f.delays, delay)
	f.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return &firedTimer{ch: ch}
}

// Delays returns the recorded delays in order
func (f *FakeTimers) Delays() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make([]time.Duration, len(f.delays))
	copy(res, f.delays)
	return res
}

func (t *firedTimer) Channel() <-chan time.Time {
	return t.ch
}

func (t *firedTimer) Stop() bool {
	return false
}
