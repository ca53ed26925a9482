package engine

import (
	"time"

	"github.com/kode4food/sequin/pkg/api"
)

type (
	// EventSink receives run events as they happen. Publish must not block
	// for long, since it is called inline with step execution
	EventSink interface {
		Publish(ev *api.RunEvent)
	}

	// Options contains optional collaborators for executors and runners
	Options struct {
		Events   EventSink
		Clock    Clock
		NewTimer TimerConstructor
	}

	// Applier mutates Options during construction
	Applier func(*Options)

	discardSink struct{}
)

// DefaultOptions returns an Options instance with defaults applied
func DefaultOptions(apps ...Applier) *Options {
	opt := &Options{
		Events:   discardSink{},
		Clock:    time.Now,
		NewTimer: NewTimer,
	}
	ApplyOptions(opt, apps...)
	return opt
}

// ApplyOptions applies option appliers in order
func ApplyOptions(opt *Options, apps ...Applier) {
	for _, app := range apps {
		app(opt)
	}
}

// WithEvents sets the sink that receives run events
func WithEvents(sink EventSink) Applier {
	return func(opt *Options) {
		if sink != nil {
			opt.Events = sink
		}
	}
}

// WithClock sets the clock used to time runs and steps
func WithClock(clock Clock) Applier {
	return func(opt *Options) {
		opt.Clock = clock
	}
}

// WithTimer sets the constructor for the timers used by step delays
func WithTimer(newTimer TimerConstructor) Applier {
	return func(opt *Options) {
		opt.NewTimer = newTimer
	}
}

func (discardSink) Publish(*api.RunEvent) {}
