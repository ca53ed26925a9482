// Package history keeps the results of finished workflow runs for later
// inspection. Recorded runs are diagnostic only and are never resumed
package history

import (
	"context"
	"errors"

	"github.com/kode4food/sequin/pkg/api"
)

// Store records finished runs and returns them by ID or newest first
type Store interface {
	Put(ctx context.Context, res *api.WorkflowResult) error
	Get(ctx context.Context, id api.RunID) (*api.WorkflowResult, error)
	List(ctx context.Context) ([]*api.WorkflowResult, error)
}

// DefaultSize is the default number of runs kept by a store
const DefaultSize = 100

var (
	ErrRunNotFound = errors.New("run not found")
	ErrInvalidRun  = errors.New("run result must have a run ID")
)

func checkRun(res *api.WorkflowResult) error {
	if res == nil || res.RunID == "" {
		return ErrInvalidRun
	}
	return nil
}
