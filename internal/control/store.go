package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/authguard/internal/core/config"
	redisclient "github.com/vietddude/authguard/internal/infra/redis"
	"github.com/vietddude/authguard/internal/infra/storage"
	"github.com/vietddude/authguard/internal/infra/storage/memory"
	"github.com/vietddude/authguard/internal/infra/storage/postgres"
	"github.com/vietddude/authguard/internal/signin/health"
)

// Network-backed stores report their reachability on /health.
var (
	_ health.HealthChecker = (*redisclient.Store)(nil)
	_ health.HealthChecker = (*postgres.Store)(nil)
)

// OpenStore connects the persisted key-value store selected by cfg.Storage.Driver.
// The returned close function is never nil. Redis and PostgreSQL stores also
// implement health.HealthChecker.
func OpenStore(ctx context.Context, cfg *config.AppConfig) (storage.KVStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Driver {
	case config.DriverRedis:
		store, err := redisclient.NewStore(cfg.Redis)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to init redis: %w", err)
		}
		slog.Info("Using Redis storage", "prefix", cfg.Redis.KeyPrefix)
		return store, store.Close, nil

	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to init db: %w", err)
		}
		slog.Info("Using PostgreSQL storage")
		return postgres.NewStore(db), db.Close, nil

	case config.DriverMemory, "":
		slog.Info("Using Memory storage")
		return memory.NewStore(), noop, nil

	default:
		return nil, noop, fmt.Errorf("%w: unknown storage driver %q", config.ErrInvalidConfig, cfg.Storage.Driver)
	}
}
