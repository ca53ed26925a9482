package api

import "time"

type (
	// EventType identifies the kind of run event
	EventType string

	// RunEvent reports progress of a workflow run to observers. Index is the
	// 1-based position of a top-level step and Depth is zero for top-level
	// steps and grows for steps nested in conditions and loops
	RunEvent struct {
		Timestamp time.Time     `json:"timestamp"`
		RunID     RunID         `json:"run_id"`
		Type      EventType     `json:"type"`
		Workflow  string        `json:"workflow"`
		Step      string        `json:"step,omitempty"`
		StepType  StepType      `json:"step_type,omitempty"`
		Error     string        `json:"error,omitempty"`
		Elapsed   time.Duration `json:"elapsed,omitempty"`
		Index     int           `json:"index,omitempty"`
		Depth     int           `json:"depth"`
	}
)

const (
	EventTypeWorkflowStarted   EventType = "workflow_started"
	EventTypeWorkflowCompleted EventType = "workflow_completed"
	EventTypeWorkflowFailed    EventType = "workflow_failed"
	EventTypeStepStarted       EventType = "step_started"
	EventTypeStepCompleted     EventType = "step_completed"
	EventTypeStepFailed        EventType = "step_failed"
)

// IsTerminal reports whether the event ends a run
func (t EventType) IsTerminal() bool {
	return t == EventTypeWorkflowCompleted || t == EventTypeWorkflowFailed
}
