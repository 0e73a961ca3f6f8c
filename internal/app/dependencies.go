package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/foodorder/internal/health"
	"github.com/vladislavdragonenkov/foodorder/internal/storage/memory"
	"github.com/vladislavdragonenkov/foodorder/internal/storage/postgres"
	"github.com/vladislavdragonenkov/foodorder/internal/storage/redis"
	"github.com/vladislavdragonenkov/foodorder/internal/storage/sqlite"
)

// runtimeDependencies — хранилища, выбранные конфигурацией.
type runtimeDependencies struct {
	kv             domain.KVStore
	outboxRepo     domain.OutboxRepository
	submissionRepo domain.SubmissionRepository
	storageChecker healthcheck.Checker
	closeFn        func() error
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	if d == nil || d.closeFn == nil {
		return
	}
	if err := d.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}

// initRuntimeDependencies открывает хранилище корзины. Outbox и записи об отправке
// живут в postgres только при postgres-бэкенде, иначе в памяти процесса.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	lease := cfg.InFlightLease()
	deps := &runtimeDependencies{
		outboxRepo:     memory.NewOutboxRepository(),
		submissionRepo: memory.NewSubmissionRepository(memory.WithInFlightLease(lease)),
	}

	switch cfg.KVBackend {
	case KVBackendMemory:
		kv := memory.NewKVStore()
		deps.kv = kv
		deps.storageChecker = healthcheck.NewPingChecker("cart_store", kv)

	case KVBackendSQLite:
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			return nil, errors.New("sqlite path is required for sqlite kv backend")
		}
		kv, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite kv store: %w", err)
		}
		deps.kv = kv
		deps.storageChecker = healthcheck.NewPingChecker("cart_store", kv)
		deps.closeFn = kv.Close

	case KVBackendRedis:
		if strings.TrimSpace(cfg.RedisURL) == "" {
			return nil, errors.New("redis url is required for redis kv backend")
		}
		kv, err := redis.Open(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("open redis kv store: %w", err)
		}
		deps.kv = kv
		deps.storageChecker = healthcheck.NewPingChecker("cart_store", kv)
		deps.closeFn = kv.Close

	case KVBackendPostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return nil, errors.New("postgres dsn is required for postgres kv backend")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
		}
		deps.kv = postgres.NewKVStore(store)
		deps.outboxRepo = postgres.NewOutboxRepository(store)
		deps.submissionRepo = postgres.NewSubmissionRepository(store, postgres.WithInFlightLease(lease))
		deps.storageChecker = healthcheck.NewPingChecker("cart_store", store)
		deps.closeFn = store.Close

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.KVBackend)
	}

	logger.WithField("kv_backend", cfg.KVBackend).Info("storage initialized")
	return deps, nil
}
