package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/sequin/internal/config"
)

func TestDefaultConfigValues(t *testing.T) {
	cfg := config.NewDefaultConfig()

	assert.Equal(t, config.DefaultAPIHost, cfg.APIHost)
	assert.Equal(t, config.DefaultAPIPort, cfg.APIPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, config.DefaultRouterEndpoint, cfg.Router.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.RouterTimeout())
	assert.Equal(t, config.DefaultRetryMaxRetries, cfg.Router.MaxRetries)
	assert.Equal(t, config.DefaultRetryBackoffType, cfg.Router.BackoffType)
	assert.Equal(t, config.HistoryStoreMemory, cfg.History.Store)
	assert.Equal(t, config.DefaultHistorySize, cfg.History.Size)
	assert.Equal(t, config.DefaultShutdownTimeout, cfg.ShutdownTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name          string
		configMod     func(*config.Config)
		errorContains string
		expectError   bool
	}{
		{
			name:      "default config",
			configMod: func(*config.Config) {},
		},
		{
			name:          "zero port",
			configMod:     func(c *config.Config) { c.APIPort = 0 },
			expectError:   true,
			errorContains: "invalid API port",
		},
		{
			name:          "port too high",
			configMod:     func(c *config.Config) { c.APIPort = 70000 },
			expectError:   true,
			errorContains: "invalid API port",
		},
		{
			name:          "no router endpoint",
			configMod:     func(c *config.Config) { c.Router.Endpoint = "" },
			expectError:   true,
			errorContains: "router endpoint is required",
		},
		{
			name:          "zero router timeout",
			configMod:     func(c *config.Config) { c.Router.Timeout = 0 },
			expectError:   true,
			errorContains: "router timeout must be positive",
		},
		{
			name:          "zero backoff",
			configMod:     func(c *config.Config) { c.Router.InitBackoff = 0 },
			expectError:   true,
			errorContains: "initial backoff must be positive",
		},
		{
			name: "max backoff below initial",
			configMod: func(c *config.Config) {
				c.Router.InitBackoff = 1000
				c.Router.MaxBackoff = 500
			},
			expectError:   true,
			errorContains: "max backoff must be >=",
		},
		{
			name:          "bad backoff type",
			configMod:     func(c *config.Config) { c.Router.BackoffType = "x" },
			expectError:   true,
			errorContains: "invalid retry backoff type",
		},
		{
			name:          "bad history store",
			configMod:     func(c *config.Config) { c.History.Store = "disk" },
			expectError:   true,
			errorContains: "invalid history store",
		},
		{
			name: "redis without address",
			configMod: func(c *config.Config) {
				c.History.Store = config.HistoryStoreRedis
				c.History.Addr = ""
			},
			expectError:   true,
			errorContains: "history redis address required",
		},
		{
			name: "redis store",
			configMod: func(c *config.Config) {
				c.History.Store = config.HistoryStoreRedis
			},
		},
		{
			name:          "zero history size",
			configMod:     func(c *config.Config) { c.History.Size = 0 },
			expectError:   true,
			errorContains: "history size must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewDefaultConfig()
			tt.configMod(cfg)

			err := cfg.Validate()
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("API_HOST", "127.0.0.1")
	t.Setenv("API_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WORKFLOW_DIR", "/workflows")
	t.Setenv("WORKFLOW_BUCKET", "s3://flows")
	t.Setenv("ROUTER_ENDPOINT", "http://router:9000/task")
	t.Setenv("ROUTER_TIMEOUT", "5000")
	t.Setenv("RETRY_MAX_RETRIES", "0")
	t.Setenv("RETRY_INITIAL_BACKOFF", "250")
	t.Setenv("RETRY_MAX_BACKOFF", "2000")
	t.Setenv("RETRY_BACKOFF_TYPE", "linear")
	t.Setenv("HISTORY_STORE", "redis")
	t.Setenv("HISTORY_SIZE", "50")
	t.Setenv("HISTORY_REDIS_ADDR", "redis:6379")
	t.Setenv("HISTORY_REDIS_PASSWORD", "secret")
	t.Setenv("HISTORY_REDIS_DB", "2")
	t.Setenv("HISTORY_REDIS_PREFIX", "runs")
	t.Setenv("HISTORY_TTL", "24h")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("ARCHIVE_BUCKET", "gs://archive")
	t.Setenv("ARCHIVE_PREFIX", "sequin")
	t.Setenv("ROUTER_RULES", "scan, discover=http://scanner/task")

	cfg := config.NewDefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "127.0.0.1", cfg.APIHost)
	assert.Equal(t, 9090, cfg.APIPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/workflows", cfg.WorkflowDir)
	assert.Equal(t, "s3://flows", cfg.WorkflowBucket)
	assert.Equal(t, "http://router:9000/task", cfg.Router.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.RouterTimeout())
	assert.Equal(t, 0, cfg.Router.MaxRetries)
	assert.Equal(t, int64(250), cfg.Router.InitBackoff)
	assert.Equal(t, int64(2000), cfg.Router.MaxBackoff)
	assert.Equal(t, "linear", cfg.Router.BackoffType)
	assert.Equal(t, []config.RouteRule{{
		Endpoint: "http://scanner/task",
		Keywords: []string{"scan", "discover"},
	}}, cfg.Router.Rules)
	assert.Equal(t, config.HistoryStoreRedis, cfg.History.Store)
	assert.Equal(t, 50, cfg.History.Size)
	assert.Equal(t, "redis:6379", cfg.History.Addr)
	assert.Equal(t, "secret", cfg.History.Password)
	assert.Equal(t, 2, cfg.History.DB)
	assert.Equal(t, "runs", cfg.History.Prefix)
	assert.Equal(t, 24*time.Hour, cfg.History.TTL)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "gs://archive", cfg.ArchiveBucket)
	assert.Equal(t, "sequin", cfg.ArchivePrefix)
	assert.NoError(t, cfg.Validate())

	retry := cfg.RetryConfig()
	assert.Equal(t, 250*time.Millisecond, retry.InitialBackoff)
	assert.Equal(t, 2*time.Second, retry.MaxBackoff)
	assert.Equal(t, "linear", retry.BackoffType)
	assert.Equal(t, 0, retry.MaxRetries)
}

func TestLoadFromEnvErrors(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"API_PORT", "abc"},
		{"API_PORT", "0"},
		{"API_PORT", "70000"},
		{"ROUTER_TIMEOUT", "-5"},
		{"RETRY_MAX_RETRIES", "-1"},
		{"HISTORY_SIZE", "0"},
		{"HISTORY_REDIS_DB", "16"},
		{"HISTORY_TTL", "forever"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"ROUTER_RULES", "scan"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			cfg := config.NewDefaultConfig()
			err := cfg.LoadFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestParseRouteRules(t *testing.T) {
	rules, err := config.ParseRouteRules(
		" scan,discover = http://a/task ;; report=http://b/task;",
	)
	require.NoError(t, err)
	assert.Equal(t, []config.RouteRule{
		{Endpoint: "http://a/task", Keywords: []string{"scan", "discover"}},
		{Endpoint: "http://b/task", Keywords: []string{"report"}},
	}, rules)

	for _, bad := range []string{"scan", "scan=", " , =http://a/task"} {
		_, err := config.ParseRouteRules(bad)
		assert.ErrorIs(t, err, config.ErrInvalidRouteRule, bad)
	}
}
