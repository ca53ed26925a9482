package archive

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kode4food/sequin/internal/events"
	"github.com/kode4food/sequin/pkg/api"
	"github.com/kode4food/sequin/pkg/log"
)

// Runner collects run events from a hub consumer and archives each run
// once its terminal event arrives
type Runner struct {
	consumer events.Consumer
	writer   *Writer
	pending  map[api.RunID][]*api.RunEvent
}

var (
	ErrConsumerRequired = errors.New("event consumer is required")
	ErrWriterRequired   = errors.New("archive writer is required")
)

// NewRunner creates a Runner reading from consumer and writing with writer
func NewRunner(consumer events.Consumer, writer *Writer) (*Runner, error) {
	if consumer == nil {
		return nil, ErrConsumerRequired
	}
	if writer == nil {
		return nil, ErrWriterRequired
	}
	return &Runner{
		consumer: consumer,
		writer:   writer,
		pending:  map[api.RunID][]*api.RunEvent{},
	}, nil
}

// Run archives runs until ctx is done or the consumer is closed
func (r *Runner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-r.consumer.Receive():
			if !ok {
				return
			}
			r.Handle(ctx, ev)
		}
	}
}

// Handle adds ev to its run's trail and writes the trail when the run ends.
// Write failures are logged and the run is dropped
func (r *Runner) Handle(ctx context.Context, ev *api.RunEvent) {
	if ev == nil {
		return
	}

	trail := append(r.pending[ev.RunID], ev)
	if !ev.Type.IsTerminal() {
		r.pending[ev.RunID] = trail
		return
	}
	delete(r.pending, ev.RunID)

	if err := r.writer.Write(ctx, NewRecord(trail)); err != nil {
		slog.Warn("Failed to archive run",
			log.RunID(ev.RunID),
			log.Error(err))
		return
	}
	slog.Debug("Run archived",
		log.RunID(ev.RunID),
		slog.Int("events", len(trail)))
}

// Pending returns the number of runs whose terminal event has not arrived.
// It must not be called while Run is active
func (r *Runner) Pending() int {
	return len(r.pending)
}
