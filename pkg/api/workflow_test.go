package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kode4food/sequin/pkg/api"
)

func TestWorkflowValidate(t *testing.T) {
	t.Run("valid nested", func(t *testing.T) {
		var wf api.WorkflowDefinition
		require.NoError(t, yaml.Unmarshal([]byte(`
name: nested
steps:
  - type: loop
    items: [a]
    steps:
      - type: condition
        condition: "true"
        then:
          - task: x
`), &wf))
		assert.NoError(t, wf.Validate())
	})

	t.Run("nil step", func(t *testing.T) {
		wf := &api.WorkflowDefinition{
			Steps: api.Steps{
				{
					Type: api.StepTypeLoop,
					Loop: &api.LoopStep{Steps: api.Steps{nil}},
				},
			},
		}
		err := wf.Validate()
		assert.ErrorIs(t, err, api.ErrStepNil)
		assert.ErrorContains(t, err, "steps[0].steps[0]")
	})
}

func TestWorkflowDisplayName(t *testing.T) {
	assert.Equal(t, "Unnamed", (&api.WorkflowDefinition{}).DisplayName())
	assert.Equal(t, "w", (&api.WorkflowDefinition{Name: "w"}).DisplayName())
}

func TestEventTypeIsTerminal(t *testing.T) {
	assert.True(t, api.EventTypeWorkflowCompleted.IsTerminal())
	assert.True(t, api.EventTypeWorkflowFailed.IsTerminal())
	assert.False(t, api.EventTypeStepFailed.IsTerminal())
}
