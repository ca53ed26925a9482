package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kode4food/sequin/pkg/api"
	"github.com/kode4food/sequin/pkg/log"
)

// Runner executes the top-level steps of a workflow in order, applying the
// halt and delay rules between them
type Runner struct {
	exec *Executor
}

var ErrRunCancelled = errors.New("run cancelled")

// NewRunner creates a Runner whose task steps are sent to router
func NewRunner(router TaskRouter, apps ...Applier) *Runner {
	return &Runner{
		exec: NewExecutor(router, apps...),
	}
}

// Run executes def against a fresh Context seeded from seed. A failing step
// halts the run unless it continues on error. Cancelling ctx stops the run
// between steps or during a delay, never in the middle of a step
func (r *Runner) Run(
	ctx context.Context, def *api.WorkflowDefinition, seed api.Args,
) *api.WorkflowResult {
	opts := r.exec.opts
	start := opts.Clock()
	e := &execution{
		Executor: r.exec,
		vars:     NewContext(seed, start),
		runID:    api.NewRunID(),
		workflow: def.Name,
	}

	res := &api.WorkflowResult{
		RunID:      e.runID,
		Workflow:   def.Name,
		StartedAt:  start,
		TotalSteps: len(def.Steps),
		Results:    []*api.StepResult{},
	}

	slog.Info("Workflow started",
		log.RunID(e.runID),
		log.Workflow(def.DisplayName()),
		slog.Int("steps", len(def.Steps)))
	e.publishRun(api.EventTypeWorkflowStarted, res)

	for i, step := range def.Steps {
		if ctx.Err() != nil {
			return e.fail(res, i, ErrRunCancelled)
		}

		sr := e.execute(ctx, step, i+1, 0)
		res.Results = append(res.Results, sr)

		if sr.Failed() {
			if !continues(step) {
				return e.fail(res, i,
					fmt.Errorf("step %d failed: %s", i+1, sr.Error),
				)
			}
			slog.Warn("Step failed, continuing",
				log.RunID(e.runID),
				log.Step(step.DisplayName()),
				log.ErrorString(sr.Error))
		}

		if step.Delay > 0 {
			slog.Debug("Delaying before next step",
				log.RunID(e.runID),
				slog.Duration("delay", step.Delay))
			if err := sleep(ctx, opts.NewTimer, step.Delay); err != nil {
				return e.fail(res, i+1, ErrRunCancelled)
			}
		}
	}

	res.Success = true
	res.CompletedSteps = len(def.Steps)
	res.ElapsedTime = opts.Clock().Sub(start)

	slog.Info("Workflow completed",
		log.RunID(e.runID),
		log.Workflow(def.DisplayName()),
		log.Elapsed(res.ElapsedTime))
	e.publishRun(api.EventTypeWorkflowCompleted, res)
	return res
}

func (e *execution) fail(
	res *api.WorkflowResult, completed int, err error,
) *api.WorkflowResult {
	res.Success = false
	res.CompletedSteps = completed
	res.Error = err.Error()
	res.ElapsedTime = e.opts.Clock().Sub(res.StartedAt)

	slog.Error("Workflow failed",
		log.RunID(e.runID),
		log.Workflow(e.workflow),
		slog.Int("completed_steps", completed),
		slog.Int("total_steps", res.TotalSteps),
		log.Error(err))
	e.publishRun(api.EventTypeWorkflowFailed, res)
	return res
}

func (e *execution) publishRun(typ api.EventType, res *api.WorkflowResult) {
	e.opts.Events.Publish(&api.RunEvent{
		Timestamp: e.opts.Clock(),
		RunID:     res.RunID,
		Type:      typ,
		Workflow:  res.Workflow,
		Error:     res.Error,
		Elapsed:   res.ElapsedTime,
	})
}
