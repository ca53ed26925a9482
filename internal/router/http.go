package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kode4food/sequin/internal/engine"
	"github.com/kode4food/sequin/pkg/api"
	"github.com/kode4food/sequin/pkg/log"
)

type (
	// HTTPRouter posts each task as JSON to an agent endpoint and decodes
	// the reply as a TaskResult
	HTTPRouter struct {
		httpClient *http.Client
		endpoint   string
	}

	// TaskRequest is the body HTTPRouter sends for a task. Session fields
	// are set when the task comes through a KeywordRouter
	TaskRequest struct {
		Task      string `json:"task"`
		SessionID string `json:"session_id,omitempty"`
		Device    string `json:"device,omitempty"`
	}

	// StatusError reports a non-200 reply from the agent endpoint
	StatusError struct {
		StatusCode int
	}
)

const (
	userAgent = "Sequin-Engine/1.0"

	// MaxResponseBytes caps how much of a router reply is read
	MaxResponseBytes = 10 << 20
)

var (
	ErrHTTPError   = errors.New("router returned HTTP error")
	ErrNoEndpoint  = errors.New("router endpoint not configured")
	ErrBadResponse = errors.New("router returned an invalid response")
	ErrTooLarge    = errors.New("router response too large")
)

var _ engine.TaskRouter = (*HTTPRouter)(nil)

// NewHTTPRouter creates an HTTPRouter for endpoint. Requests that take
// longer than timeout are abandoned
func NewHTTPRouter(endpoint string, timeout time.Duration) *HTTPRouter {
	return &HTTPRouter{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		endpoint: endpoint,
	}
}

// Route sends task to the endpoint. A reply with success=false is returned
// as a result, not an error
func (r *HTTPRouter) Route(
	ctx context.Context, task string,
) (*api.TaskResult, error) {
	return r.Send(ctx, TaskRequest{Task: task})
}

// Send posts treq to the endpoint and decodes the reply
func (r *HTTPRouter) Send(
	ctx context.Context, treq TaskRequest,
) (*api.TaskResult, error) {
	task := treq.Task
	if r.endpoint == "" {
		return nil, ErrNoEndpoint
	}

	body, err := json.Marshal(treq)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, r.endpoint, bytes.NewBuffer(body),
	)
	if err != nil {
		slog.Error("Failed to create HTTP request",
			log.Task(task),
			log.Error(err))
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	dur := time.Since(start)

	if err != nil {
		slog.Error("HTTP request failed",
			log.Task(task),
			slog.Duration("duration", dur),
			log.Error(err))
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		slog.Error("Failed to read response body",
			log.Task(task),
			log.Error(err))
		return nil, err
	}
	if len(respBody) > MaxResponseBytes {
		slog.Error("Response body too large",
			log.Task(task),
			slog.Int("limit", MaxResponseBytes))
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge,
			MaxResponseBytes)
	}

	if resp.StatusCode != http.StatusOK {
		slog.Error("HTTP error",
			log.Task(task),
			slog.Int("status_code", resp.StatusCode),
			slog.String("response_body", string(respBody)))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var res api.TaskResult
	if err := json.Unmarshal(respBody, &res); err != nil {
		slog.Error("Failed to unmarshal response",
			log.Task(task),
			log.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	return &res, nil
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("router returned HTTP %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return ErrHTTPError
}

// IsClientError reports whether the status is in the 4xx range
func (e *StatusError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}
