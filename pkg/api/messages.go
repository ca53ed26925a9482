package api

type (
	// RunRequest starts a workflow run. Exactly one of Path or Definition
	// must be set; Definition holds an inline YAML document
	RunRequest struct {
		Variables  Args   `json:"variables,omitempty"`
		Path       string `json:"path,omitempty"`
		Definition string `json:"definition,omitempty"`
	}

	// RunsListResponse contains recorded workflow runs, newest first
	RunsListResponse struct {
		Runs  []*WorkflowResult `json:"runs"`
		Count int               `json:"count"`
	}

	// HealthResponse provides service health information
	HealthResponse struct {
		Service string `json:"service"`
		Version string `json:"version"`
		Status  string `json:"status"`
	}

	// ErrorResponse contains error details for failed requests
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status,omitempty"`
	}
)

type (
	// SubscribeRequest narrows the events a WebSocket client receives
	SubscribeRequest struct {
		Type string             `json:"type"`
		Data ClientSubscription `json:"data"`
	}

	// ClientSubscription selects events by run and by type. Empty fields
	// match everything
	ClientSubscription struct {
		RunID      RunID       `json:"run_id,omitempty"`
		EventTypes []EventType `json:"event_types,omitempty"`
	}
)

// Matches reports whether ev passes the subscription filter
func (s *ClientSubscription) Matches(ev *RunEvent) bool {
	if s.RunID != "" && ev.RunID != s.RunID {
		return false
	}
	if len(s.EventTypes) == 0 {
		return true
	}
	for _, typ := range s.EventTypes {
		if ev.Type == typ {
			return true
		}
	}
	return false
}
