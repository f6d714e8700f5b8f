// Package backend opens the store.Backend selected by configuration.
package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"rideconnect/internal/config"
	"rideconnect/internal/store"
	"rideconnect/migrations"
	"rideconnect/pkg/db"
	rredis "rideconnect/pkg/redis"
	"rideconnect/pkg/sqlite"
)

func noop() {}

// Open connects the configured backend. The returned close func is never nil.
func Open(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (store.Backend, func(), error) {
	log = log.With(zap.String("driver", cfg.Driver))

	switch cfg.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on exit")
		return store.NewMemoryBackend(), noop, nil

	case config.DriverSQLite:
		kv, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		log.Info("opened sqlite store", zap.String("path", cfg.SQLitePath))
		return kv, func() { _ = kv.Close() }, nil

	case config.DriverRedis:
		c, err := rredis.NewClient(ctx, cfg.RedisAddr, log)
		if err != nil {
			return nil, noop, err
		}
		return c, func() { _ = c.Close() }, nil

	case config.DriverPostgres:
		database, err := db.Connect(ctx, cfg.PostgresURL, log)
		if err != nil {
			return nil, noop, err
		}
		if err := database.RunMigrations(ctx, migrations.FS); err != nil {
			database.Close()
			return nil, noop, fmt.Errorf("migrations failed: %w", err)
		}
		return database, database.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
