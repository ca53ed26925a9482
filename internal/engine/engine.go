package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kode4food/sequin/internal/history"
	"github.com/kode4food/sequin/internal/loader"
	"github.com/kode4food/sequin/pkg/api"
	"github.com/kode4food/sequin/pkg/log"
)

type (
	// Engine loads workflow definitions, runs them, and keeps a history of
	// finished runs
	Engine struct {
		runner  *Runner
		loader  Loader
		history history.Store
		opts    *Options
	}

	// Loader reads a workflow definition from a path or URL
	Loader interface {
		Load(ctx context.Context, path string) (*api.WorkflowDefinition, error)
	}

	// Dependencies are the collaborators an Engine is built from. Router is
	// required; the rest fall back to local defaults when nil
	Dependencies struct {
		Router  TaskRouter
		Loader  Loader
		History history.Store
		Events  EventSink
	}
)

const historyTimeout = 5 * time.Second

var ErrLoadFailure = errors.New("load failure")

// New creates an Engine from its dependencies
func New(deps Dependencies, apps ...Applier) *Engine {
	if deps.Loader == nil {
		deps.Loader = loader.New("")
	}
	if deps.History == nil {
		deps.History = history.NewMemoryStore(history.DefaultSize)
	}
	apps = append([]Applier{WithEvents(deps.Events)}, apps...)
	runner := NewRunner(deps.Router, apps...)
	return &Engine{
		runner:  runner,
		loader:  deps.Loader,
		history: deps.History,
		opts:    runner.exec.opts,
	}
}

// LoadWorkflow reads and decodes the workflow definition at path
func (e *Engine) LoadWorkflow(
	ctx context.Context, path string,
) (*api.WorkflowDefinition, error) {
	return e.loader.Load(ctx, path)
}

// ExecuteWorkflow loads the definition at path and runs it with the seed
// variables. A definition that cannot be loaded produces a failed result
// before any step runs
func (e *Engine) ExecuteWorkflow(
	ctx context.Context, path string, seed api.Args,
) *api.WorkflowResult {
	def, err := e.LoadWorkflow(ctx, path)
	if err != nil {
		return e.loadFailure(err)
	}
	return e.RunWorkflow(ctx, def, seed)
}

// RunWorkflow runs an already loaded definition and records the result
func (e *Engine) RunWorkflow(
	ctx context.Context, def *api.WorkflowDefinition, seed api.Args,
) *api.WorkflowResult {
	res := e.runner.Run(ctx, def, seed)
	e.record(res)
	return res
}

// GetRun returns a recorded run by ID
func (e *Engine) GetRun(
	ctx context.Context, id api.RunID,
) (*api.WorkflowResult, error) {
	return e.history.Get(ctx, id)
}

// ListRuns returns recorded runs, newest first
func (e *Engine) ListRuns(ctx context.Context) ([]*api.WorkflowResult, error) {
	return e.history.List(ctx)
}

func (e *Engine) loadFailure(err error) *api.WorkflowResult {
	now := e.opts.Clock()
	res := &api.WorkflowResult{
		RunID:     api.NewRunID(),
		StartedAt: now,
		Results:   []*api.StepResult{},
		Error:     fmt.Errorf("%w: %w", ErrLoadFailure, err).Error(),
	}

	slog.Error("Failed to load workflow",
		log.RunID(res.RunID),
		log.Error(err))
	e.opts.Events.Publish(&api.RunEvent{
		Timestamp: now,
		RunID:     res.RunID,
		Type:      api.EventTypeWorkflowFailed,
		Error:     res.Error,
	})
	e.record(res)
	return res
}

// record stores a finished run. The run itself is already complete, so a
// store failure is logged rather than returned
func (e *Engine) record(res *api.WorkflowResult) {
	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()

	if err := e.history.Put(ctx, res); err != nil {
		slog.Error("Failed to record run",
			log.RunID(res.RunID),
			log.Error(err))
	}
}
