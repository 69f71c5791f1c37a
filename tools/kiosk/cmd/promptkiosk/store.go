package main

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/AltairaLabs/PromptKiosk/pkg/config"
	"github.com/AltairaLabs/PromptKiosk/runtime/persistence"
	jsonstore "github.com/AltairaLabs/PromptKiosk/runtime/persistence/json"
	"github.com/AltairaLabs/PromptKiosk/runtime/persistence/memory"
	redisstore "github.com/AltairaLabs/PromptKiosk/runtime/persistence/redis"
)

// openStore creates the transcript store selected by cfg. The returned close
// function releases backend connections.
func openStore(ctx context.Context, cfg config.StorageConfig, opts ...persistence.Option) (*persistence.Store, func() error, error) {
	switch cfg.Backend {
	case config.StorageRedis:
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		backend := redisstore.New(client, redisstore.WithKey(cfg.Key), redisstore.WithLimit(cfg.Limit))
		return persistence.NewStore(backend, opts...), client.Close, nil

	case config.StorageMemory:
		return persistence.NewStore(memory.New(), opts...), noClose, nil

	default:
		backend := jsonstore.New(config.ExpandHome(cfg.Dir), cfg.Key)
		return persistence.NewStore(backend, opts...), noClose, nil
	}
}

func noClose() error { return nil }
