package server

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/gravitas-games/cachegrid/internal/config"
	"github.com/gravitas-games/cachegrid/internal/store"
	"github.com/gravitas-games/cachegrid/internal/store/redisstore"
	"github.com/gravitas-games/cachegrid/internal/store/sqlitestore"
	"github.com/gravitas-games/cachegrid/pkg/models"
)

// storage hands out one namespaced backend per player.
type storage struct {
	kind      string
	forPlayer func(p *models.Player) store.Backend
	close     func() error
}

func openStorage(cfg *config.Config, redisClient *redis.Client) (*storage, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		mem := store.NewMemory()
		return &storage{
			kind: config.BackendMemory,
			forPlayer: func(p *models.Player) store.Backend {
				return mem.Namespace(p.StoreNamespace())
			},
			close: func() error { return nil },
		}, nil

	case config.BackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis storage selected but no redis client is configured")
		}
		return &storage{
			kind: config.BackendRedis,
			forPlayer: func(p *models.Player) store.Backend {
				return redisstore.New(redisClient, cfg.Redis.KeyPrefix+p.StoreNamespace())
			},
			close: func() error { return nil },
		}, nil

	case config.BackendSQLite:
		db, err := sqlitestore.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &storage{
			kind: config.BackendSQLite,
			forPlayer: func(p *models.Player) store.Backend {
				return db.Backend(p.StoreNamespace())
			},
			close: db.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// needsRedis reports whether any configured component talks to Redis.
func needsRedis(cfg *config.Config) bool {
	return cfg.Storage.Backend == config.BackendRedis ||
		(cfg.JWT.Enabled && cfg.Redis.BlacklistPrefix != "")
}

func connectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
