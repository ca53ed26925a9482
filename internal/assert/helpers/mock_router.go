package helpers

import (
	"context"
	"sync"

	"github.com/kode4food/sequin/pkg/api"
)

// MockRouter is a TaskRouter for tests. It records every task it receives
// and answers with configured results, errors, or a default success
type MockRouter struct {
	results map[string]*api.TaskResult
	errors  map[string]error
	tasks   []string
	mu      sync.Mutex
}

// NewMockRouter creates a MockRouter that succeeds for every task unless
// configured otherwise
func NewMockRouter() *MockRouter {
	return &MockRouter{
		results: map[string]*api.TaskResult{},
		errors:  map[string]error{},
	}
}

// Route records the task and returns the configured result or error
func (r *MockRouter) Route(
	_ context.Context, task string,
) (*api.TaskResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks = append(r.tasks, task)
	if err, ok := r.errors[task]; ok {
		return nil, err
	}
	if res, ok := r.results[task]; ok {
		return res, nil
	}
	return api.NewTaskSuccess(api.Args{"task": task}), nil
}

// SetResult configures the result returned for a task
func (r *MockRouter) SetResult(task string, res *api.TaskResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[task] = res
}

// SetFailure configures an unsuccessful result for a task
func (r *MockRouter) SetFailure(task, msg string) {
	r.SetResult(task, api.NewTaskFailure(msg))
}

// SetError configures the router to return an error for a task
func (r *MockRouter) SetError(task string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[task] = err
}

// Tasks returns the tasks received so far, in order
func (r *MockRouter) Tasks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]string, len(r.tasks))
	copy(res, r.tasks)
	return res
}

// CallCount returns how many times Route was called
func (r *MockRouter) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Calls returns how many times a specific task was routed
func (r *MockRouter) Calls(task string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, t := range r.tasks {
		if t == task {
			count++
		}
	}
	return count
}
