package helpers

import (
	"time"

	"github.com/kode4food/sequin/pkg/api"
)

// NewTaskStep creates a task step that routes task
func NewTaskStep(name, task string) *api.Step {
	return &api.Step{
		Name: name,
		Type: api.StepTypeTask,
		Task: &api.TaskStep{Task: task},
	}
}

// NewStoreStep creates a task step that stores its result as storeAs
func NewStoreStep(name, task, storeAs string) *api.Step {
	step := NewTaskStep(name, task)
	step.Task.StoreAs = storeAs
	return step
}

// NewSetStep creates a set_variable step
func NewSetStep(name, variable string, value any) *api.Step {
	return &api.Step{
		Name: name,
		Type: api.StepTypeSetVariable,
		SetVariable: &api.SetVariableStep{
			Variable: variable,
			Value:    value,
		},
	}
}

// NewConditionStep creates a condition step with the given branches
func NewConditionStep(name, cond string, then, els api.Steps) *api.Step {
	return &api.Step{
		Name: name,
		Type: api.StepTypeCondition,
		Condition: &api.ConditionStep{
			Condition: cond,
			Then:      then,
			Else:      els,
		},
	}
}

// NewLoopStep creates a loop step binding each item to itemVar
func NewLoopStep(
	name, itemVar string, items []any, steps ...*api.Step,
) *api.Step {
	return &api.Step{
		Name: name,
		Type: api.StepTypeLoop,
		Loop: &api.LoopStep{
			Items:        items,
			ItemVariable: itemVar,
			Steps:        steps,
		},
	}
}

// ContinueOnError marks step to continue on error and returns it
func ContinueOnError(step *api.Step) *api.Step {
	step.ContinueOnError = true
	return step
}

// WithDelay sets step's post-step delay and returns it
func WithDelay(step *api.Step, d time.Duration) *api.Step {
	step.Delay = d
	return step
}

// NewWorkflow creates a workflow definition from steps
func NewWorkflow(name string, steps ...*api.Step) *api.WorkflowDefinition {
	return &api.WorkflowDefinition{
		Name:  name,
		Steps: steps,
	}
}
