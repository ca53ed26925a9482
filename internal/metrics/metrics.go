// Package metrics exports Prometheus collectors fed by run events
package metrics

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kode4food/sequin/internal/events"
	"github.com/kode4food/sequin/pkg/api"
)

// Metrics holds the run and step collectors
type Metrics struct {
	runsTotal   *prometheus.CounterVec
	stepsTotal  *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	stepLatency *prometheus.HistogramVec
	runsActive  prometheus.Gauge
	active      sync.Map // map[api.RunID]struct{}
}

const (
	namespace = "sequin"

	statusSuccess = "success"
	statusError   = "error"
)

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of finished workflow runs",
			},
			[]string{"status"},
		),
		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_total",
				Help:      "Total number of executed steps",
			},
			[]string{"type", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Workflow run duration in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"status"},
		),
		stepLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Step execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		runsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "runs_active",
				Help:      "Number of workflow runs in progress",
			},
		),
	}
	reg.MustRegister(
		m.runsTotal, m.stepsTotal, m.runDuration, m.stepLatency, m.runsActive,
	)
	return m
}

// Observe updates the collectors for a single run event
func (m *Metrics) Observe(ev *api.RunEvent) {
	switch ev.Type {
	case api.EventTypeWorkflowStarted:
		if _, loaded := m.active.LoadOrStore(ev.RunID, struct{}{}); !loaded {
			m.runsActive.Inc()
		}
	case api.EventTypeWorkflowCompleted:
		m.finishRun(ev, statusSuccess)
	case api.EventTypeWorkflowFailed:
		m.finishRun(ev, statusError)
	case api.EventTypeStepCompleted:
		m.finishStep(ev, statusSuccess)
	case api.EventTypeStepFailed:
		m.finishStep(ev, statusError)
	}
}

// Consume observes events from c until ctx is done or c is closed
func (m *Metrics) Consume(ctx context.Context, c events.Consumer) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.Receive():
			if !ok {
				slog.Debug("Metrics consumer closed")
				return
			}
			m.Observe(ev)
		}
	}
}

func (m *Metrics) finishRun(ev *api.RunEvent, status string) {
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(ev.Elapsed.Seconds())
	if _, ok := m.active.LoadAndDelete(ev.RunID); ok {
		m.runsActive.Dec()
	}
}

func (m *Metrics) finishStep(ev *api.RunEvent, status string) {
	typ := string(ev.StepType)
	m.stepsTotal.WithLabelValues(typ, status).Inc()
	m.stepLatency.WithLabelValues(typ).Observe(ev.Elapsed.Seconds())
}
