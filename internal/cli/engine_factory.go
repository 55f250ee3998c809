// Package cli assembles a signoff engine from configuration for the command line tools.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/signoff"
	"github.com/aretw0/signoff/internal/config"
	"github.com/aretw0/signoff/internal/logging"
	"github.com/aretw0/signoff/pkg/adapters/file"
	"github.com/aretw0/signoff/pkg/adapters/memory"
	"github.com/aretw0/signoff/pkg/adapters/redis"
	"github.com/aretw0/signoff/pkg/domain"
	"github.com/aretw0/signoff/pkg/observability"
	"github.com/aretw0/signoff/pkg/persistence/middleware"
	"github.com/aretw0/signoff/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Runtime bundles an engine with the resources the process must release.
type Runtime struct {
	Engine    *signoff.Engine
	Config    *config.Config
	Logger    *slog.Logger
	Registry  *prometheus.Registry
	Workflows ports.WorkflowStore

	closers []func() error
}

// Close releases backend connections.
func (r *Runtime) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// NewLogger builds the process logger described by cfg, writing to stderr.
func NewLogger(cfg *config.Config) *slog.Logger {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	return logging.NewWithWriter(os.Stderr, level, logging.Format(cfg.Log.Format))
}

// NewRuntime wires stores, locking, encryption and hooks from cfg into an engine.
func NewRuntime(cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = NewLogger(cfg)
	}
	rt := &Runtime{Config: cfg, Logger: logger}

	var redisStore *redis.Store
	if cfg.UsesRedis() {
		redisStore = redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.TTL),
		)
		rt.closers = append(rt.closers, redisStore.Close)
	}

	switch cfg.Workflows.Source {
	case config.DriverRedis:
		rt.Workflows = redis.NewWorkflows(redisStore.Client(), redis.WithPrefix(cfg.Redis.Prefix))
	default:
		rt.Workflows = file.NewWorkflows(cfg.Workflows.Dir, file.WithLogger(logger))
	}

	opts := []signoff.Option{signoff.WithLogger(logger)}

	var instances ports.InstanceStore
	var history ports.HistoryStore
	switch cfg.Store.Driver {
	case config.DriverFile:
		instances = file.New(cfg.Store.Dir)
		history = file.NewHistory(cfg.Store.HistoryDir)
	case config.DriverRedis:
		instances = redisStore
		history = redis.NewHistory(redisStore.Client(),
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.TTL),
		)
		opts = append(opts,
			signoff.WithLocker(redis.NewLocker(redisStore.Client(), cfg.Redis.Prefix)),
			signoff.WithLockTTL(cfg.Redis.LockTTL),
		)
	default:
		instances = memory.NewStore()
		history = memory.NewHistory()
	}

	active, fallback, err := cfg.EncryptionKeys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		})
		if err != nil {
			return nil, fmt.Errorf("encryption: %w", err)
		}
		instances = middleware.Chain(instances, enc)
		logger.Debug("instance data encryption enabled", "fallback_keys", len(fallback))
	}
	opts = append(opts, signoff.WithInstanceStore(instances), signoff.WithHistoryStore(history))

	var hooks []domain.LifecycleHooks
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		hooks = append(hooks, observability.LoggingHooks(logger))
	}
	if cfg.Metrics.Enabled {
		rt.Registry = prometheus.NewRegistry()
		rt.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics, err := observability.NewMetrics(rt.Registry)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		hooks = append(hooks, metrics.Hooks())
	}
	if len(hooks) > 0 {
		opts = append(opts, signoff.WithLifecycleHooks(observability.Combine(hooks...)))
	}

	rt.Engine, err = signoff.New(rt.Workflows, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	logger.Debug("engine ready",
		"workflows", cfg.Workflows.Source,
		"store", cfg.Store.Driver,
		"metrics", cfg.Metrics.Enabled,
	)
	return rt, nil
}
