package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/okian/dailyboard/internal/adapters/http/api"
	"github.com/okian/dailyboard/internal/adapters/http/swagger"
	"github.com/okian/dailyboard/internal/adapters/repository"
	service "github.com/okian/dailyboard/internal/app"
	"github.com/okian/dailyboard/internal/config"
	"github.com/okian/dailyboard/internal/supervisor"
	"github.com/okian/dailyboard/pkg/logger"
	"github.com/okian/dailyboard/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout); err != nil {
		// The logger may not exist yet.
		_, _ = os.Stderr.WriteString("dailyboard: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// run loads the configuration, assembles the engine and blocks until ctx is
// canceled.
func run(ctx context.Context, out io.Writer) error {
	if err := logger.Init(logger.WithWriter(out)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// defaults -> optional file -> env
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.WithWriter(out), logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, storeLoop, closeStore := openStore(ctx, cfg)
	defer func() {
		if err := closeStore(); err != nil {
			log.Error(ctx, "store close failed", logger.Error(err))
		}
	}()

	svc, err := service.New(cfg, store, service.WithStoreName(cfg.Store))
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	defer func() { _ = svc.Close() }()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	tree := supervisor.NewTree(log.Named("supervisor").Slog(), supervisor.TreeConfig{ShutdownTimeout: shutdownTimeout})
	tree.AddEngineService(supervisor.NewFunc(cfg.Store+"-store", storeLoop))
	tree.AddEngineService(supervisor.NewFunc("ingest-workers", svc.Serve))
	tree.AddEngineService(supervisor.NewFunc("config-watcher", func(ctx context.Context) error {
		return config.Watch(ctx, os.Getenv(config.EnvConfigPath), func(next *config.Config) {
			if err := svc.Reload(ctx, next); err != nil {
				log.Warn(ctx, "config reload refused", logger.Error(err))
			}
		})
	}))
	tree.AddEngineService(supervisor.NewFunc("system-metrics", systemMetricsLoop))
	tree.AddAPIService(supervisor.NewHTTPService(srv, shutdownTimeout))

	log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("store", cfg.Store))
	err = tree.Serve(ctx)
	log.Info(ctx, "server stopped")
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// openStore builds the configured ranked store, the loop that keeps it
// healthy and its closer.
func openStore(ctx context.Context, cfg *config.Config) (repository.RankedStore, func(context.Context) error, func() error) {
	if cfg.Store == config.StoreMemory {
		s := repository.NewMemoryStore(repository.WithSweepInterval(cfg.SweepInterval))
		return s, s.Serve, s.Close
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	s := repository.NewRedisStore(ctx, client,
		repository.WithPingInterval(cfg.Redis.PingInterval),
		repository.WithPingTimeout(cfg.Redis.PingTimeout))
	return s, s.Serve, s.Close
}

// newRouter mounts the API and its documentation.
func newRouter(svc api.Dependencies) http.Handler {
	r := chi.NewRouter()
	api.NewServer(svc).Register(r)
	swagger.Register(r)
	return r
}

// systemMetricsLoop refreshes process gauges until ctx is done.
func systemMetricsLoop(ctx context.Context) error {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	updateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
