package engine

import (
	"context"
	"log/slog"

	"github.com/kode4food/sequin/pkg/api"
	"github.com/kode4food/sequin/pkg/log"
)

func (e *execution) executeLoop(
	ctx context.Context, step *api.LoopStep, depth int,
) *api.StepResult {
	itemVar := step.ItemVariable
	if itemVar == "" {
		itemVar = api.DefaultItemVariable
	}

	items := step.Items
	var results []*api.StepResult
	for i, item := range items {
		slog.Debug("Loop iteration",
			log.RunID(e.runID),
			slog.Int("iteration", i+1),
			slog.Int("total", len(items)))

		e.vars.Set(itemVar, item)
		res, ok := e.executeSteps(ctx, step.Steps, depth+1)
		results = append(results, res...)
		if !ok {
			return &api.StepResult{
				Error:   ErrLoopStepFailed.Error(),
				Results: results,
			}
		}
	}

	return &api.StepResult{
		Iterations: len(items),
		Results:    results,
		Success:    true,
	}
}
