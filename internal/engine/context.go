package engine

import (
	"maps"
	"time"

	"github.com/kode4food/sequin/pkg/api"
)

// Context is the variable namespace shared by every step of a single run.
// Writes from nested steps are visible to the rest of the run
type Context map[string]any

const (
	// StartTimeKey holds the run's start time as fractional Unix seconds
	StartTimeKey = "workflow_start_time"

	// ContextBinding is the name under which conditions see the Context
	ContextBinding = "context"
)

// NewContext creates a run Context from the seed variables. The seed is
// copied, so the caller's map is never modified by the run
func NewContext(seed api.Args, start time.Time) Context {
	res := make(Context, len(seed)+1)
	maps.Copy(res, seed)
	res[StartTimeKey] = float64(start.UnixNano()) / float64(time.Second)
	return res
}

// Set binds name to value, replacing any previous binding
func (c Context) Set(name string, value any) {
	c[name] = value
}

func (c Context) env() map[string]any {
	return map[string]any{
		ContextBinding: map[string]any(c),
	}
}
