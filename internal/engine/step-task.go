package engine

import (
	"context"
	"log/slog"

	"github.com/kode4food/sequin/pkg/api"
	"github.com/kode4food/sequin/pkg/log"
)

func (e *execution) executeTask(
	ctx context.Context, step *api.TaskStep,
) *api.StepResult {
	if e.router == nil {
		return stepFailure(ErrNoRouter)
	}

	task := InterpolateString(step.Task, e.vars)
	slog.Info("Routing task",
		log.RunID(e.runID),
		log.Task(task))

	tr, err := e.router.Route(ctx, task)
	if err != nil {
		return stepFailure(err)
	}
	if tr == nil {
		return stepFailure(ErrNoTaskResult)
	}

	if step.StoreAs != "" && tr.Success {
		e.vars.Set(step.StoreAs, tr)
		slog.Debug("Stored task result",
			log.RunID(e.runID),
			slog.String("variable", step.StoreAs))
	}

	return &api.StepResult{
		Task:    tr,
		Error:   tr.Error,
		Success: tr.Success,
	}
}
