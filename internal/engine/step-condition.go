package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kode4food/sequin/internal/engine/expr"
	"github.com/kode4food/sequin/pkg/api"
	"github.com/kode4food/sequin/pkg/log"
)

func (e *execution) executeCondition(
	ctx context.Context, step *api.ConditionStep, depth int,
) *api.StepResult {
	src := InterpolateString(step.Condition, e.vars)
	ok, err := expr.Evaluate(src, e.vars.env())
	if err != nil {
		return stepFailure(fmt.Errorf("%w: %w", ErrConditionFailed, err))
	}

	slog.Debug("Condition evaluated",
		log.RunID(e.runID),
		slog.String("condition", src),
		slog.Bool("result", ok))

	branch := step.Else
	if ok {
		branch = step.Then
	}
	results := make([]*api.StepResult, 0, len(branch))
	for _, sub := range branch {
		results = append(results, e.execute(ctx, sub, 0, depth+1))
	}

	return &api.StepResult{
		ConditionResult: &ok,
		Results:         results,
		Success:         true,
	}
}
