package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kode4food/sequin/pkg/api"
	"github.com/kode4food/sequin/pkg/log"
)

type (
	// TaskRouter maps a task string to a structured result. Route is
	// synchronous; any timeout or retry policy belongs to the router
	TaskRouter interface {
		Route(ctx context.Context, task string) (*api.TaskResult, error)
	}

	// TaskRouterFunc adapts a function to the TaskRouter interface
	TaskRouterFunc func(ctx context.Context, task string) (*api.TaskResult, error)

	// Executor runs individual steps against a Context, dispatching on the
	// step type
	Executor struct {
		router TaskRouter
		opts   *Options
	}

	// execution carries the per-run state through nested step execution
	execution struct {
		*Executor
		vars     Context
		runID    api.RunID
		workflow string
	}
)

var (
	ErrUnknownStepType = errors.New("unknown step type")
	ErrMissingConfig   = errors.New("step has no configuration for its type")
	ErrNoRouter        = errors.New("no task router configured")
	ErrNoTaskResult    = errors.New("task router returned no result")
	ErrConditionFailed = errors.New("condition evaluation failed")
	ErrLoopStepFailed  = errors.New("loop step failed")
)

// Route calls f(ctx, task)
func (f TaskRouterFunc) Route(
	ctx context.Context, task string,
) (*api.TaskResult, error) {
	return f(ctx, task)
}

// NewExecutor creates a step Executor that sends task steps to router
func NewExecutor(router TaskRouter, apps ...Applier) *Executor {
	return &Executor{
		router: router,
		opts:   DefaultOptions(apps...),
	}
}

// Execute runs a single step, and any steps nested in it, against vars
func (x *Executor) Execute(
	ctx context.Context, step *api.Step, vars Context,
) *api.StepResult {
	e := &execution{
		Executor: x,
		vars:     vars,
	}
	return e.execute(ctx, step, 0, 0)
}

func (e *execution) execute(
	ctx context.Context, step *api.Step, index, depth int,
) *api.StepResult {
	if step == nil {
		return stepFailure(api.ErrStepNil)
	}

	start := e.opts.Clock()
	e.publishStep(api.EventTypeStepStarted, step, index, depth, nil)

	res := e.dispatch(ctx, step, depth)
	res.Name = step.Name
	res.Type = step.Type

	res.Elapsed = e.opts.Clock().Sub(start)
	if res.Success {
		slog.Debug("Step completed",
			log.RunID(e.runID),
			log.Step(step.DisplayName()),
			log.StepType(step.Type),
			log.Elapsed(res.Elapsed))
		e.publishStep(api.EventTypeStepCompleted, step, index, depth, res)
	} else {
		slog.Warn("Step failed",
			log.RunID(e.runID),
			log.Step(step.DisplayName()),
			log.StepType(step.Type),
			log.ErrorString(res.Error))
		e.publishStep(api.EventTypeStepFailed, step, index, depth, res)
	}
	return res
}

func (e *execution) dispatch(
	ctx context.Context, step *api.Step, depth int,
) *api.StepResult {
	switch step.Type {
	case api.StepTypeTask:
		if step.Task != nil {
			return e.executeTask(ctx, step.Task)
		}
	case api.StepTypeCondition:
		if step.Condition != nil {
			return e.executeCondition(ctx, step.Condition, depth)
		}
	case api.StepTypeSetVariable:
		if step.SetVariable != nil {
			return e.executeSetVariable(step.SetVariable)
		}
	case api.StepTypeLoop:
		if step.Loop != nil {
			return e.executeLoop(ctx, step.Loop, depth)
		}
	default:
		return stepFailure(
			fmt.Errorf("%w: %s", ErrUnknownStepType, step.Type),
		)
	}
	return stepFailure(fmt.Errorf("%w: %s", ErrMissingConfig, step.Type))
}

// executeSteps runs steps in order, stopping at the first failure of a step
// that does not continue on error. It reports whether the sequence finished
func (e *execution) executeSteps(
	ctx context.Context, steps api.Steps, depth int,
) ([]*api.StepResult, bool) {
	res := make([]*api.StepResult, 0, len(steps))
	for _, step := range steps {
		sr := e.execute(ctx, step, 0, depth)
		res = append(res, sr)
		if sr.Failed() && !continues(step) {
			return res, false
		}
	}
	return res, true
}

func (e *execution) publishStep(
	typ api.EventType, step *api.Step, index, depth int, res *api.StepResult,
) {
	ev := &api.RunEvent{
		Timestamp: e.opts.Clock(),
		RunID:     e.runID,
		Type:      typ,
		Workflow:  e.workflow,
		Step:      step.DisplayName(),
		StepType:  step.Type,
		Index:     index,
		Depth:     depth,
	}
	if res != nil {
		ev.Error = res.Error
		ev.Elapsed = res.Elapsed
	}
	e.opts.Events.Publish(ev)
}

func continues(step *api.Step) bool {
	return step != nil && step.ContinueOnError
}

func stepFailure(err error) *api.StepResult {
	return &api.StepResult{
		Error: err.Error(),
	}
}
