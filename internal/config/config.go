package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kode4food/sequin/internal/router"
)

type (
	// Config holds configuration settings for the workflow service
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Workflows
		WorkflowDir    string
		WorkflowBucket string

		// Task Routing
		Router RouterConfig

		// Run History
		History HistoryConfig

		// Run Archive
		ArchiveBucket string
		ArchivePrefix string

		ShutdownTimeout time.Duration
	}

	// RouterConfig configures the HTTP task router and its retry policy.
	// When Rules are set, tasks are dispatched by keyword and Endpoint only
	// receives the tasks no rule matches
	RouterConfig struct {
		Endpoint    string
		BackoffType string
		Rules       []RouteRule
		Timeout     int64 // ms
		InitBackoff int64 // ms
		MaxBackoff  int64 // ms
		MaxRetries  int
	}

	// RouteRule sends tasks that contain any of Keywords to Endpoint
	RouteRule struct {
		Endpoint string
		Keywords []string
	}

	// HistoryConfig selects and configures the run history store
	HistoryConfig struct {
		Store    string
		Addr     string
		Password string
		Prefix   string
		TTL      time.Duration
		Size     int
		DB       int
	}
)

const (
	DefaultShutdownTimeout = 10 * time.Second

	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535

	DefaultRouterEndpoint = "http://localhost:8081/task"
	DefaultRouterTimeout  = 30_000
	MaxRouterTimeout      = 60 * 60 * 1000 // 1 hour in ms

	DefaultRetryMaxRetries  = 3
	DefaultRetryInitBackoff = 500
	DefaultMaxRetryBackoff  = 10_000
	DefaultRetryBackoffType = router.BackoffTypeExponential
	MaxRetryMaxRetries      = 100
	MaxRetryBackoff         = 60 * 60 * 1000 // 1 hour in ms

	HistoryStoreMemory = "memory"
	HistoryStoreRedis  = "redis"

	DefaultHistorySize   = 100
	MaxHistorySize       = 100_000
	DefaultRedisEndpoint = "localhost:6379"
	DefaultRedisPrefix   = "sequin"
	DefaultRedisDB       = 0
	MaxRedisDB           = 15
)

var (
	ErrInvalidAPIPort       = errors.New("invalid API port")
	ErrRouterEndpointNeeded = errors.New("router endpoint is required")
	ErrInvalidRouterTimeout = errors.New("router timeout must be positive")
	ErrInvalidRetryBackoff  = errors.New(
		"retry initial backoff must be positive",
	)
	ErrRetryMaxBackoffTooSmall = errors.New(
		"retry max backoff must be >= retry initial backoff",
	)
	ErrInvalidRetryBackoffType = errors.New("invalid retry backoff type")
	ErrInvalidHistoryStore     = errors.New("invalid history store")
	ErrInvalidHistorySize      = errors.New("history size must be positive")
	ErrHistoryRedisAddr        = errors.New("history redis address required")
	ErrInvalidDuration         = errors.New("invalid duration")
	ErrInvalidRouteRule        = errors.New("invalid router rule")
)

// NewDefaultConfig creates a configuration with sensible defaults for the
// server, router, and history store
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:  DefaultAPIHost,
		APIPort:  DefaultAPIPort,
		LogLevel: "info",
		Router: RouterConfig{
			Endpoint:    DefaultRouterEndpoint,
			Timeout:     DefaultRouterTimeout,
			MaxRetries:  DefaultRetryMaxRetries,
			InitBackoff: DefaultRetryInitBackoff,
			MaxBackoff:  DefaultMaxRetryBackoff,
			BackoffType: DefaultRetryBackoffType,
		},
		History: HistoryConfig{
			Store:  HistoryStoreMemory,
			Size:   DefaultHistorySize,
			Addr:   DefaultRedisEndpoint,
			Prefix: DefaultRedisPrefix,
			DB:     DefaultRedisDB,
		},
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed
func (c *Config) LoadFromEnv() error {
	loadEnvString("API_HOST", &c.APIHost)
	loadEnvString("LOG_LEVEL", &c.LogLevel)
	loadEnvString("WORKFLOW_DIR", &c.WorkflowDir)
	loadEnvString("WORKFLOW_BUCKET", &c.WorkflowBucket)
	loadEnvString("ROUTER_ENDPOINT", &c.Router.Endpoint)
	loadEnvString("RETRY_BACKOFF_TYPE", &c.Router.BackoffType)
	loadEnvString("HISTORY_STORE", &c.History.Store)
	loadEnvString("HISTORY_REDIS_ADDR", &c.History.Addr)
	loadEnvString("HISTORY_REDIS_PASSWORD", &c.History.Password)
	loadEnvString("HISTORY_REDIS_PREFIX", &c.History.Prefix)
	loadEnvString("ARCHIVE_BUCKET", &c.ArchiveBucket)
	loadEnvString("ARCHIVE_PREFIX", &c.ArchivePrefix)

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt(
		"ROUTER_TIMEOUT", &c.Router.Timeout, 0, MaxRouterTimeout,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"RETRY_MAX_RETRIES", &c.Router.MaxRetries, -1, MaxRetryMaxRetries,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"RETRY_INITIAL_BACKOFF", &c.Router.InitBackoff, 0, MaxRetryBackoff,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"RETRY_MAX_BACKOFF", &c.Router.MaxBackoff, 0, MaxRetryBackoff,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"HISTORY_SIZE", &c.History.Size, 0, MaxHistorySize,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"HISTORY_REDIS_DB", &c.History.DB, -1, MaxRedisDB,
	); err != nil {
		return err
	}

	if s := os.Getenv("ROUTER_RULES"); s != "" {
		rules, err := ParseRouteRules(s)
		if err != nil {
			return fmt.Errorf("invalid ROUTER_RULES: %w", err)
		}
		c.Router.Rules = rules
	}

	if err := loadEnvDuration("HISTORY_TTL", &c.History.TTL); err != nil {
		return err
	}
	return loadEnvDuration("SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}

	if c.Router.Endpoint == "" {
		return ErrRouterEndpointNeeded
	}
	if c.Router.Timeout <= 0 {
		return ErrInvalidRouterTimeout
	}
	if c.Router.InitBackoff <= 0 {
		return ErrInvalidRetryBackoff
	}
	if c.Router.MaxBackoff < c.Router.InitBackoff {
		return ErrRetryMaxBackoffTooSmall
	}
	if !router.IsValidBackoffType(c.Router.BackoffType) {
		return fmt.Errorf("%w: %s",
			ErrInvalidRetryBackoffType, c.Router.BackoffType)
	}

	switch c.History.Store {
	case HistoryStoreMemory:
	case HistoryStoreRedis:
		if c.History.Addr == "" {
			return ErrHistoryRedisAddr
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidHistoryStore, c.History.Store)
	}
	if c.History.Size <= 0 {
		return ErrInvalidHistorySize
	}

	return nil
}

// RouterTimeout returns the router timeout as a Duration
func (c *Config) RouterTimeout() time.Duration {
	return time.Duration(c.Router.Timeout) * time.Millisecond
}

// RetryConfig converts the millisecond retry settings for the retry router
func (c *Config) RetryConfig() router.RetryConfig {
	return router.RetryConfig{
		BackoffType:    c.Router.BackoffType,
		InitialBackoff: time.Duration(c.Router.InitBackoff) * time.Millisecond,
		MaxBackoff:     time.Duration(c.Router.MaxBackoff) * time.Millisecond,
		MaxRetries:     c.Router.MaxRetries,
	}
}

// ParseRouteRules parses rules written as "kw1,kw2=endpoint", separated by
// semicolons. Keywords and endpoints are trimmed, and empty entries between
// separators are skipped
func ParseRouteRules(s string) ([]RouteRule, error) {
	var res []RouteRule
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		kws, endpoint, ok := strings.Cut(entry, "=")
		endpoint = strings.TrimSpace(endpoint)
		if !ok || endpoint == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRouteRule, entry)
		}

		rule := RouteRule{Endpoint: endpoint}
		for _, kw := range strings.Split(kws, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				rule.Keywords = append(rule.Keywords, kw)
			}
		}
		if len(rule.Keywords) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRouteRule, entry)
		}
		res = append(res, rule)
	}
	return res, nil
}

func loadEnvString(key string, dst *string) {
	if s := os.Getenv(key); s != "" {
		*dst = s
	}
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max]. Returns an error if
// the value cannot be parsed or falls outside the valid range
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}

func loadEnvDuration(key string, dst *time.Duration) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fmt.Errorf("%w: %s=%q", ErrInvalidDuration, key, s)
	}
	*dst = d
	return nil
}
