package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"blogapi/internal/common/security"
	"blogapi/internal/domain/repository"
	"blogapi/internal/platform/config"
	"blogapi/internal/platform/database"
	"blogapi/internal/platform/kv"
)

// Backends holds the storage handles selected by configuration.
type Backends struct {
	Store       *repository.Store
	Revocations security.RevocationStore

	closers []func()
}

// Close releases backends in reverse order of acquisition.
func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// Open connects the store chosen by cfg.StoreDriver and the token revocation store.
// The memory driver keeps revocations in process; every other driver uses Redis.
func Open(ctx context.Context, cfg *config.Config) (*Backends, error) {
	b := &Backends{}

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := database.Connect(ctx, cfg.DBConnStr)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { database.Close(db) })
		if cfg.DBAutoMigrate {
			if err := database.Migrate(db); err != nil {
				b.Close()
				return nil, err
			}
		}
		b.Store = repository.NewPgStore(db)

	case config.DriverMongo:
		client, db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { database.DisconnectMongo(client) })
		if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
			b.Close()
			return nil, err
		}
		b.Store = repository.NewMongoStore(db)

	case config.DriverMemory:
		b.Store = repository.NewMemoryStore()
		b.Revocations = security.NewMemoryRevocationStore()
		slog.Warn("using in-memory store, data will not survive a restart")
		return b, nil

	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	rdb, err := kv.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.closers = append(b.closers, func() { kv.CloseRedis(rdb) })
	b.Revocations = security.NewRedisRevocationStore(rdb, cfg.RevocationKeyPrefix)
	return b, nil
}
