package assert

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/sequin/pkg/api"
)

// Wrapper wraps testify assertions with workflow-specific helpers
type Wrapper struct {
	*testing.T
	*assert.Assertions
}

// New creates a new test assertion wrapper
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
	}
}

// WorkflowValid asserts that a workflow definition passes validation
func (w *Wrapper) WorkflowValid(def *api.WorkflowDefinition) {
	w.Helper()
	w.NoError(def.Validate())
}

// WorkflowInvalid asserts that a workflow definition fails validation and
// returns the validation error
func (w *Wrapper) WorkflowInvalid(
	def *api.WorkflowDefinition, expectedErrorContains string,
) error {
	w.Helper()
	err := def.Validate()
	w.Error(err)
	if err != nil && expectedErrorContains != "" {
		w.Contains(err.Error(), expectedErrorContains)
	}
	return err
}

// RunSucceeded asserts that every step of a run completed
func (w *Wrapper) RunSucceeded(res *api.WorkflowResult) {
	w.Helper()
	if !w.NotNil(res) {
		return
	}
	w.True(res.Success, "run failed: %s", res.Error)
	w.Empty(res.Error)
	w.Equal(res.TotalSteps, res.CompletedSteps)
	w.NotEmpty(res.RunID)
}

// RunFailed asserts that a run halted after completed steps with an error
// containing expectedErrorContains
func (w *Wrapper) RunFailed(
	res *api.WorkflowResult, completed int, expectedErrorContains string,
) {
	w.Helper()
	if !w.NotNil(res) {
		return
	}
	w.False(res.Success)
	w.Equal(completed, res.CompletedSteps)
	w.Contains(res.Error, expectedErrorContains)
}

// StepTypes asserts the types of a result list in order
func (w *Wrapper) StepTypes(
	results []*api.StepResult, expected ...api.StepType,
) {
	w.Helper()
	got := make([]api.StepType, len(results))
	for i, r := range results {
		got[i] = r.Type
	}
	w.Equal(expected, got)
}
