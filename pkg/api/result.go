package api

import (
	"encoding/json"
	"time"
)

type (
	// TaskResult is the structured answer a task router returns for a task.
	// The engine only interprets Success and Error. Top-level fields that a
	// router adds beyond the known ones are kept in Extra and written back
	// out alongside them
	TaskResult struct {
		Outputs      Args   `json:"outputs,omitempty"`
		Extra        Args   `json:"-"`
		Error        string `json:"error,omitempty"`
		ActionsTaken int    `json:"actions_taken,omitempty"`
		Success      bool   `json:"success"`
	}

	// StepResult records the outcome of a single executed step. The fields
	// beyond Success and Error depend on the step type
	StepResult struct {
		Task            *TaskResult   `json:"task,omitempty"`
		ConditionResult *bool         `json:"condition_result,omitempty"`
		Value           any           `json:"value,omitempty"`
		Results         []*StepResult `json:"results,omitempty"`
		Name            string        `json:"name,omitempty"`
		Type            StepType      `json:"type"`
		Variable        string        `json:"variable,omitempty"`
		Error           string        `json:"error,omitempty"`
		Elapsed         time.Duration `json:"elapsed,omitempty"`
		Iterations      int           `json:"iterations,omitempty"`
		Success         bool          `json:"success"`
	}

	// WorkflowResult is the aggregate outcome of one workflow run
	WorkflowResult struct {
		StartedAt      time.Time     `json:"started_at"`
		Results        []*StepResult `json:"results"`
		RunID          RunID         `json:"run_id,omitempty"`
		Workflow       string        `json:"workflow,omitempty"`
		Error          string        `json:"error,omitempty"`
		ElapsedTime    time.Duration `json:"elapsed_time"`
		CompletedSteps int           `json:"completed_steps"`
		TotalSteps     int           `json:"total_steps"`
		Success        bool          `json:"success"`
	}
)

type taskResultFields TaskResult

var taskResultKeys = map[string]bool{
	"outputs":       true,
	"error":         true,
	"actions_taken": true,
	"success":       true,
}

// MarshalJSON writes the known fields and then any Extra fields that do not
// collide with them
func (r TaskResult) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(taskResultFields(r))
	if err != nil || len(r.Extra) == 0 {
		return data, err
	}

	var res map[string]any
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if !taskResultKeys[k] {
			res[k] = v
		}
	}
	return json.Marshal(res)
}

// UnmarshalJSON decodes the known fields and collects every other top-level
// field into Extra
func (r *TaskResult) UnmarshalJSON(data []byte) error {
	var fields taskResultFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	fields.Extra = nil
	for k, v := range raw {
		if taskResultKeys[k] {
			continue
		}
		if fields.Extra == nil {
			fields.Extra = Args{}
		}
		fields.Extra[k] = v
	}

	*r = TaskResult(fields)
	return nil
}

// NewTaskSuccess returns a successful TaskResult carrying the given outputs
func NewTaskSuccess(outputs Args) *TaskResult {
	return &TaskResult{
		Success: true,
		Outputs: outputs,
	}
}

// NewTaskFailure returns an unsuccessful TaskResult with the given error
func NewTaskFailure(msg string) *TaskResult {
	return &TaskResult{
		Error: msg,
	}
}

// Failed reports whether the step did not succeed
func (r *StepResult) Failed() bool {
	return r == nil || !r.Success
}
