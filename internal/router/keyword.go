package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kode4food/sequin/internal/engine"
	"github.com/kode4food/sequin/pkg/api"
	"github.com/kode4food/sequin/pkg/log"
)

type (
	// Handler performs a task with access to the router's Session
	Handler func(
		ctx context.Context, s *Session, task string,
	) (*api.TaskResult, error)

	// Rule sends tasks containing any of its keywords to Handler
	Rule struct {
		Handler  Handler
		Name     string
		Keywords []string
	}

	// KeywordRouter dispatches each task to the first Rule with a keyword
	// contained in the task. Matching ignores case
	KeywordRouter struct {
		session  *Session
		fallback Handler
		rules    []Rule
	}
)

var _ engine.TaskRouter = (*KeywordRouter)(nil)

// DeviceOutput is the task output that selects the session's active device
const DeviceOutput = "device"

// NewKeywordRouter creates a KeywordRouter that checks rules in order. A
// nil session is replaced with a new one
func NewKeywordRouter(session *Session, rules ...Rule) *KeywordRouter {
	if session == nil {
		session = NewSession()
	}
	return &KeywordRouter{
		session: session,
		rules:   rules,
	}
}

// WithFallback sets the Handler used when no Rule matches
func (r *KeywordRouter) WithFallback(h Handler) *KeywordRouter {
	r.fallback = h
	return r
}

// Session returns the Session passed to every Handler
func (r *KeywordRouter) Session() *Session {
	return r.session
}

// Route runs the Handler of the first matching Rule
func (r *KeywordRouter) Route(
	ctx context.Context, task string,
) (*api.TaskResult, error) {
	lower := strings.ToLower(task)
	for _, rule := range r.rules {
		if !rule.matches(lower) {
			continue
		}
		slog.Debug("Task matched rule",
			log.Task(task),
			slog.String("rule", rule.Name),
			slog.String("session_id", r.session.ID()))
		return rule.Handler(ctx, r.session, task)
	}

	if r.fallback != nil {
		return r.fallback(ctx, r.session, task)
	}
	return api.NewTaskFailure(fmt.Sprintf("no route for task: %s", task)), nil
}

func (r Rule) matches(lowerTask string) bool {
	for _, kw := range r.Keywords {
		if kw != "" && strings.Contains(lowerTask, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Forward returns a Handler that sends tasks to target along with the
// session's ID and active device. A successful result naming a device in
// its outputs makes that device active for later tasks
func Forward(target *HTTPRouter) Handler {
	return func(
		ctx context.Context, s *Session, task string,
	) (*api.TaskResult, error) {
		treq := TaskRequest{Task: task, SessionID: s.ID()}
		if dev, ok := s.ActiveDevice(); ok {
			treq.Device = dev
		}

		res, err := target.Send(ctx, treq)
		if err != nil || res == nil || !res.Success {
			return res, err
		}
		if dev := res.Outputs.GetString(DeviceOutput, ""); dev != "" {
			s.SetActiveDevice(dev)
		}
		return res, nil
	}
}
