package engine

import "github.com/kode4food/sequin/pkg/api"

func (e *execution) executeSetVariable(
	step *api.SetVariableStep,
) *api.StepResult {
	if step.Variable == "" {
		return stepFailure(api.ErrVariableEmpty)
	}

	value := Interpolate(step.Value, e.vars)
	e.vars.Set(step.Variable, value)

	return &api.StepResult{
		Variable: step.Variable,
		Value:    value,
		Success:  true,
	}
}
