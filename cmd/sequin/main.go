package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gocloud.dev/blob"

	app "github.com/kode4food/sequin"
	"github.com/kode4food/sequin/internal/archive"
	"github.com/kode4food/sequin/internal/config"
	"github.com/kode4food/sequin/internal/engine"
	"github.com/kode4food/sequin/internal/events"
	"github.com/kode4food/sequin/internal/history"
	"github.com/kode4food/sequin/internal/loader"
	"github.com/kode4food/sequin/internal/metrics"
	"github.com/kode4food/sequin/internal/router"
	"github.com/kode4food/sequin/internal/server"
	"github.com/kode4food/sequin/pkg/log"
)

type sequin struct {
	cfg           *config.Config
	redis         *redis.Client
	history       history.Store
	loader        *loader.Loader
	hub           *events.Hub
	registry      *prometheus.Registry
	engine        *engine.Engine
	apiServer     *server.Server
	httpServer    *http.Server
	archive       *blob.Bucket
	stopConsumers context.CancelFunc
	quit          chan os.Signal
}

const startupTimeout = 10 * time.Second

var (
	ErrConnectHistory = errors.New("failed to connect history store")
	ErrOpenBucket     = errors.New("failed to open workflow bucket")
	ErrOpenArchive    = errors.New("failed to open archive bucket")
)

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &sequin{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *sequin) run() error {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	if err := s.initializeHistory(ctx); err != nil {
		return err
	}
	if err := s.initializeLoader(ctx); err != nil {
		s.closeHistory()
		return err
	}
	if err := s.initializeEngine(ctx); err != nil {
		_ = s.loader.Close()
		s.closeHistory()
		return err
	}
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *sequin) setupLogging() {
	level, ok := log.ParseLevel(s.cfg.LogLevel)
	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	if !ok {
		slog.Warn("Unknown log level, using info",
			slog.String("log_level", s.cfg.LogLevel))
	}
	slog.Info("Sequin starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("router_endpoint", s.cfg.Router.Endpoint),
		slog.String("history_store", s.cfg.History.Store),
		slog.String("workflow_dir", s.cfg.WorkflowDir),
		slog.String("workflow_bucket", s.cfg.WorkflowBucket),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort))
}

func (s *sequin) initializeHistory(ctx context.Context) error {
	store, client, err := newHistoryStore(ctx, s.cfg)
	if err != nil {
		return err
	}
	s.history = store
	s.redis = client
	return nil
}

func (s *sequin) initializeLoader(ctx context.Context) error {
	l, err := newLoader(ctx, s.cfg)
	if err != nil {
		return err
	}
	s.loader = l
	return nil
}

func (s *sequin) initializeEngine(ctx context.Context) error {
	s.hub = events.NewHub()

	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(s.registry)

	bg, stop := context.WithCancel(context.Background())
	s.stopConsumers = stop
	consumer := s.hub.NewConsumer()
	go func() {
		defer consumer.Close()
		m.Consume(bg, consumer)
	}()

	if err := s.startArchive(ctx, bg); err != nil {
		stop()
		s.hub.Close()
		return err
	}

	s.engine = engine.New(engine.Dependencies{
		Router:  newTaskRouter(s.cfg),
		Loader:  s.loader,
		History: s.history,
		Events:  s.hub,
	})
	return nil
}

// startArchive opens the archive bucket, when one is configured, and
// archives runs from the hub until bg is done
func (s *sequin) startArchive(ctx, bg context.Context) error {
	if s.cfg.ArchiveBucket == "" {
		return nil
	}

	bucket, err := blob.OpenBucket(ctx, s.cfg.ArchiveBucket)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpenArchive, err)
	}
	w, err := archive.NewWriter(bucket, s.cfg.ArchivePrefix)
	if err != nil {
		_ = bucket.Close()
		return err
	}
	consumer := s.hub.NewConsumer()
	r, err := archive.NewRunner(consumer, w)
	if err != nil {
		consumer.Close()
		_ = bucket.Close()
		return err
	}

	s.archive = bucket
	go func() {
		defer consumer.Close()
		r.Run(bg)
	}()
	slog.Info("Run archive enabled",
		slog.String("bucket", s.cfg.ArchiveBucket),
		slog.String("prefix", s.cfg.ArchivePrefix))
	return nil
}

func (s *sequin) startServer() {
	s.apiServer = server.NewServer(s.engine, s.hub,
		promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}),
	)
	mux := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: mux,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *sequin) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.CloseWebSockets()
	s.stopConsumers()
	s.hub.Close()

	if s.archive != nil {
		if err := s.archive.Close(); err != nil {
			slog.Error("Archive shutdown failed", log.Error(err))
		}
	}
	if err := s.loader.Close(); err != nil {
		slog.Error("Loader shutdown failed", log.Error(err))
	}
	s.closeHistory()

	slog.Info("Server exited")
}

func (s *sequin) closeHistory() {
	if s.redis == nil {
		return
	}
	if err := s.redis.Close(); err != nil {
		slog.Error("History shutdown failed", log.Error(err))
	}
}

// newHistoryStore builds the configured run history. The returned client is
// nil for the memory store
func newHistoryStore(
	ctx context.Context, cfg *config.Config,
) (history.Store, *redis.Client, error) {
	if cfg.History.Store != config.HistoryStoreRedis {
		return history.NewMemoryStore(cfg.History.Size), nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:            cfg.History.Addr,
		Password:        cfg.History.Password,
		DB:              cfg.History.DB,
		Protocol:        2,
		DisableIdentity: true,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("%w: %w", ErrConnectHistory, err)
	}

	store := history.NewRedisStore(client,
		history.WithPrefix(cfg.History.Prefix),
		history.WithTTL(cfg.History.TTL),
		history.WithLimit(cfg.History.Size),
	)
	return store, client, nil
}

func newLoader(
	ctx context.Context, cfg *config.Config,
) (*loader.Loader, error) {
	if cfg.WorkflowBucket == "" {
		return loader.New(cfg.WorkflowDir), nil
	}
	l, err := loader.Open(ctx, cfg.WorkflowBucket)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenBucket, err)
	}
	return l, nil
}

func newTaskRouter(cfg *config.Config) engine.TaskRouter {
	var res engine.TaskRouter
	fallback := router.NewHTTPRouter(cfg.Router.Endpoint, cfg.RouterTimeout())
	res = fallback

	if len(cfg.Router.Rules) > 0 {
		rules := make([]router.Rule, len(cfg.Router.Rules))
		for i, r := range cfg.Router.Rules {
			target := router.NewHTTPRouter(r.Endpoint, cfg.RouterTimeout())
			rules[i] = router.Rule{
				Name:     r.Endpoint,
				Keywords: r.Keywords,
				Handler:  router.Forward(target),
			}
		}
		res = router.NewKeywordRouter(nil, rules...).
			WithFallback(router.Forward(fallback))
	}

	if cfg.Router.MaxRetries == 0 {
		return res
	}
	return router.NewRetryRouter(res, cfg.RetryConfig())
}
