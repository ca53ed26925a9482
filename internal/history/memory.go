package history

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/kode4food/sequin/pkg/api"
)

// MemoryStore is a bounded in-process Store. When full, the oldest recorded
// run is evicted
type MemoryStore struct {
	runs  map[api.RunID]*api.WorkflowResult
	order []api.RunID
	size  int
	mu    sync.RWMutex
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore holding at most size runs. A size
// below one falls back to DefaultSize
func NewMemoryStore(size int) *MemoryStore {
	if size < 1 {
		size = DefaultSize
	}
	return &MemoryStore{
		runs: map[api.RunID]*api.WorkflowResult{},
		size: size,
	}
}

// Put records a run, replacing any earlier result with the same ID
func (s *MemoryStore) Put(_ context.Context, res *api.WorkflowResult) error {
	if err := checkRun(res); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[res.RunID]; ok {
		s.order = slices.DeleteFunc(s.order, func(id api.RunID) bool {
			return id == res.RunID
		})
	}
	s.runs[res.RunID] = res
	s.order = append(s.order, res.RunID)

	for len(s.order) > s.size {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

// Get returns the run recorded under id
func (s *MemoryStore) Get(
	_ context.Context, id api.RunID,
) (*api.WorkflowResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if res, ok := s.runs[id]; ok {
		return res, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

// List returns every recorded run, most recently recorded first
func (s *MemoryStore) List(context.Context) ([]*api.WorkflowResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]*api.WorkflowResult, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		res = append(res, s.runs[s.order[i]])
	}
	return res, nil
}
