package app

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hance08/purse/internal/config"
	"github.com/hance08/purse/internal/events"
	"github.com/hance08/purse/internal/ledger"
	"github.com/hance08/purse/internal/logger"
	"github.com/hance08/purse/internal/metrics"
	"github.com/hance08/purse/internal/reference"
	"github.com/hance08/purse/internal/service"
	"github.com/hance08/purse/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	Service  *service.Service
	Store    store.Repository
	Executor *ledger.Executor
	Logger   *zap.Logger
	// EventSink describes where transaction events go, for display.
	EventSink string
}

// NewApp initialize config, database, event sink and ledger, then return App entity
func NewApp(ctx context.Context, cfg *config.Config, migrationFS fs.FS) (*App, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}

	repo, err := openStore(ctx, cfg, migrationFS)
	if err != nil {
		_ = log.Sync()
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	notifier, sinkName, closers := buildNotifier(cfg, log)

	refs := reference.NewULIDAllocator(cfg.Ledger.ReferencePrefix)
	exec := ledger.NewExecutor(repo, repo, refs, notifier, log, ledger.Config{
		Currency:       cfg.Defaults.Currency,
		MaxDescription: cfg.Ledger.MaxDescription,
		MaxRetries:     cfg.Ledger.MaxRetries,
		RetryBackoff:   cfg.Ledger.RetryBackoff,
	})

	var ledgerMetrics *metrics.Ledger
	if cfg.Metrics.Textfile != "" {
		ledgerMetrics = metrics.NewLedger()
		exec.SetRecorder(ledgerMetrics)
	}

	svc := service.NewService(repo, exec, cfg, log)

	cleanup := func() {
		// Drain queued events before the sinks go away.
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Warn("failed to close event sink", zap.Error(err))
			}
		}
		if ledgerMetrics != nil {
			if path, err := ExpandPath(cfg.Metrics.Textfile); err != nil {
				log.Warn("failed to resolve metrics path", zap.Error(err))
			} else if err := ledgerMetrics.WriteTextfile(path); err != nil {
				log.Warn("failed to write metrics", zap.Error(err))
			}
		}
		if err := repo.Close(); err != nil {
			fmt.Printf("Error closing DB: %v\n", err)
		}
		_ = log.Sync()
	}

	return &App{
		Service:   svc,
		Store:     repo,
		Executor:  exec,
		Logger:    log,
		EventSink: sinkName,
	}, cleanup, nil
}

func openStore(ctx context.Context, cfg *config.Config, migrationFS fs.FS) (store.Repository, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		return store.NewMemoryStore(), nil
	case config.DriverPostgres:
		return store.NewPostgresStore(ctx, cfg.Database.DSN, cfg.Database.MaxConns, migrationFS)
	default:
		dbPath, err := ResolveDBPath(cfg)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		return store.NewStore(dbPath, migrationFS)
	}
}

// buildNotifier returns the sink the executor publishes to, its display
// name, and the closers to run on shutdown in order.
func buildNotifier(cfg *config.Config, log *zap.Logger) (events.Notifier, string, []io.Closer) {
	var (
		sink    events.Notifier
		name    string
		closers []io.Closer
	)

	switch cfg.Events.Driver {
	case config.EventsNone:
		return events.Discard, "none", nil
	case config.EventsRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Events.Redis.Addr,
			Password: cfg.Events.Redis.Password,
			DB:       cfg.Events.Redis.DB,
		})
		n := events.NewRedisNotifier(rdb, cfg.Events.Redis.Channel)
		sink, name = n, fmt.Sprintf("redis %s (channel %s)", cfg.Events.Redis.Addr, cfg.Events.Redis.Channel)
		closers = append(closers, n)
	case config.EventsKafka:
		n := events.NewKafkaNotifier(cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic)
		sink, name = n, fmt.Sprintf("kafka %v (topic %s)", cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic)
		closers = append(closers, n)
	default:
		return events.NewLogNotifier(log), "log", nil
	}

	dispatcher := events.NewDispatcher(sink, events.DispatcherConfig{
		QueueSize:    cfg.Events.QueueSize,
		MaxAttempts:  cfg.Events.MaxAttempts,
		RetryBackoff: cfg.Events.RetryBackoff,
	}, log)

	return dispatcher, name, append([]io.Closer{dispatcher}, closers...)
}

// ResolveDBPath returns the sqlite file path, defaulting into the app directory.
func ResolveDBPath(cfg *config.Config) (string, error) {
	if cfg.Database.Path != "" {
		return ExpandPath(cfg.Database.Path)
	}

	appDir, err := AppDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(appDir, "purse.db"), nil
}

func AppDataDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("unable to determine user home directory: %w", err)
		}
		return filepath.Join(home, ".purse"), nil
	}

	return filepath.Join(configDir, "purse"), nil
}

func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			return home, nil
		}
		if path[1] == '/' || path[1] == '\\' {
			return filepath.Join(home, path[2:]), nil
		}
	}
	return path, nil
}
