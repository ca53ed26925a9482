package engine

import (
	"context"
	"time"
)

type (
	// Clock provides the current time for run timing
	Clock func() time.Time

	// Timer represents a stoppable delay timer
	Timer interface {
		Channel() <-chan time.Time
		Stop() bool
	}

	// TimerConstructor builds a Timer that fires after delay
	TimerConstructor func(delay time.Duration) Timer

	systemTimer struct {
		*time.Timer
	}
)

// NewTimer builds the default system-backed delay timer
func NewTimer(delay time.Duration) Timer {
	return &systemTimer{
		Timer: time.NewTimer(delay),
	}
}

func (t *systemTimer) Channel() <-chan time.Time {
	return t.C
}

// sleep blocks for delay or until ctx is done
func sleep(
	ctx context.Context, newTimer TimerConstructor, d time.Duration,
) error {
	t := newTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Channel():
		return nil
	}
}
