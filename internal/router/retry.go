package router

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/kode4food/sequin/internal/engine"
	"github.com/kode4food/sequin/pkg/api"
	"github.com/kode4food/sequin/pkg/log"
)

type (
	// RetryConfig controls how RetryRouter retries failed calls
	RetryConfig struct {
		BackoffType    string
		InitialBackoff time.Duration
		MaxBackoff     time.Duration
		MaxRetries     int
	}

	// RetryRouter retries calls to another router that return an error.
	// Results with success=false are answers, and are never retried
	RetryRouter struct {
		next   engine.TaskRouter
		sleep  Sleeper
		config RetryConfig
	}

	// Sleeper waits for d or until ctx is done
	Sleeper func(ctx context.Context, d time.Duration) error

	backoffCalculator func(base time.Duration, retryCount int) time.Duration
)

const (
	BackoffTypeFixed       = "fixed"
	BackoffTypeLinear      = "linear"
	BackoffTypeExponential = "exponential"
)

var backoffCalculators = map[string]backoffCalculator{
	BackoffTypeFixed: func(base time.Duration, _ int) time.Duration {
		return base
	},
	BackoffTypeLinear: func(base time.Duration, count int) time.Duration {
		return base * time.Duration(count+1)
	},
	BackoffTypeExponential: func(base time.Duration, count int) time.Duration {
		multiplier := math.Pow(2, float64(count))
		return time.Duration(float64(base) * multiplier)
	},
}

var _ engine.TaskRouter = (*RetryRouter)(nil)

// NewRetryRouter wraps next with the retry policy in cfg
func NewRetryRouter(next engine.TaskRouter, cfg RetryConfig) *RetryRouter {
	return &RetryRouter{
		next:   next,
		config: cfg,
		sleep:  sleepContext,
	}
}

// WithSleeper replaces the function used to wait between attempts
func (r *RetryRouter) WithSleeper(s Sleeper) *RetryRouter {
	r.sleep = s
	return r
}

// IsValidBackoffType reports whether typ names a known backoff policy
func IsValidBackoffType(typ string) bool {
	_, ok := backoffCalculators[typ]
	return ok
}

// Route calls the wrapped router, retrying retryable errors until the
// attempts are used up or ctx is done
func (r *RetryRouter) Route(
	ctx context.Context, task string,
) (*api.TaskResult, error) {
	for attempt := 0; ; attempt++ {
		res, err := r.next.Route(ctx, task)
		if err == nil || ctx.Err() != nil || !r.shouldRetry(attempt, err) {
			return res, err
		}

		delay := r.Backoff(attempt)
		slog.Warn("Task routing failed, retrying",
			log.Task(task),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", delay),
			log.Error(err))

		if serr := r.sleep(ctx, delay); serr != nil {
			return nil, err
		}
	}
}

// Backoff returns the wait before the retry that follows attempt, capped by
// the configured maximum
func (r *RetryRouter) Backoff(attempt int) time.Duration {
	calc, ok := backoffCalculators[r.config.BackoffType]
	if !ok {
		calc = backoffCalculators[BackoffTypeFixed]
	}
	delay := calc(r.config.InitialBackoff, attempt)
	if r.config.MaxBackoff > 0 && (delay > r.config.MaxBackoff || delay < 0) {
		delay = r.config.MaxBackoff
	}
	return delay
}

func (r *RetryRouter) shouldRetry(attempt int, err error) bool {
	if attempt >= r.config.MaxRetries {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) && se.IsClientError() {
		return false
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
