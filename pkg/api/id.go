package api

import "github.com/google/uuid"

// RunID is a unique identifier for a single workflow run
type RunID string

// NewRunID generates a new random run identifier
func NewRunID() RunID {
	return RunID(uuid.New().String())
}
