package helpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/sequin/internal/config"
	"github.com/kode4food/sequin/internal/engine"
	"github.com/kode4food/sequin/internal/events"
	"github.com/kode4food/sequin/internal/history"
	"github.com/kode4food/sequin/internal/loader"
)

// TestEngineEnv holds all the components needed for engine testing
type TestEngineEnv struct {
	Engine      *engine.Engine
	Redis       *miniredis.Miniredis
	MockRouter  *MockRouter
	Config      *config.Config
	EventHub    *events.Hub
	History     *history.RedisStore
	WorkflowDir string
	Cleanup     func()
}

// NewTestConfig creates a default configuration with debug logging enabled
func NewTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.LogLevel = "debug"
	return cfg
}

// NewTestEngine creates a test engine environment with a Redis-backed run
// history served by miniredis, a mock task router, and a temporary workflow
// directory
func NewTestEngine(t *testing.T) *TestEngineEnv {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr:            server.Addr(),
		Protocol:        2,
		DisableIdentity: true,
	})

	cfg := NewTestConfig()
	cfg.WorkflowDir = t.TempDir()
	cfg.History.Store = config.HistoryStoreRedis
	cfg.History.Addr = server.Addr()

	store := history.NewRedisStore(client,
		history.WithPrefix("test"),
		history.WithLimit(cfg.History.Size),
	)
	router := NewMockRouter()
	hub := events.NewHub()

	eng := engine.New(engine.Dependencies{
		Router:  router,
		Loader:  loader.New(cfg.WorkflowDir),
		History: store,
		Events:  hub,
	})

	return &TestEngineEnv{
		Engine:      eng,
		Redis:       server,
		MockRouter:  router,
		Config:      cfg,
		EventHub:    hub,
		History:     store,
		WorkflowDir: cfg.WorkflowDir,
		Cleanup: func() {
			hub.Close()
			_ = client.Close()
			server.Close()
		},
	}
}

// WriteWorkflow stores a workflow document in the environment's workflow
// directory and returns its relative path
func (env *TestEngineEnv) WriteWorkflow(
	t *testing.T, name, content string,
) string {
	t.Helper()
	p := filepath.Join(env.WorkflowDir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return name
}
