// Package redis provides a Redis list transcript backend, for kiosks that
// share history or run without a writable disk.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/AltairaLabs/PromptKiosk/pkg/errors"
	"github.com/AltairaLabs/PromptKiosk/runtime/persistence"
	"github.com/AltairaLabs/PromptKiosk/runtime/transcript"
)

const component = "persistence.redis"

var _ persistence.Backend = (*Backend)(nil)

// Backend stores each transcript as a JSON list element; LPUSH keeps the
// newest at the head.
type Backend struct {
	client redis.UniversalClient
	key    string
	limit  int64
}

// Option configures a Backend.
type Option func(*Backend)

// WithKey overrides the list key. Default is persistence.DefaultKey.
func WithKey(key string) Option {
	return func(b *Backend) {
		if key != "" {
			b.key = key
		}
	}
}

// WithLimit caps the number of transcripts kept. Zero keeps all.
func WithLimit(n int64) Option {
	return func(b *Backend) {
		b.limit = n
	}
}

// New creates a backend on client.
//
// Example:
//
//	b := redis.New(goredis.NewClient(&goredis.Options{Addr: "localhost:6379"}))
func New(client redis.UniversalClient, opts ...Option) *Backend {
	b := &Backend{client: client, key: persistence.DefaultKey}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Load returns every stored transcript, newest first.
func (b *Backend) Load(ctx context.Context) ([]transcript.StoredTranscript, error) {
	items, err := b.client.LRange(ctx, b.key, 0, -1).Result()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrStorage, component, "Load", fmt.Errorf("redis lrange failed: %w", err))
	}

	list := make([]transcript.StoredTranscript, 0, len(items))
	for i, item := range items {
		var t transcript.StoredTranscript
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.ErrStorage, component, "Load",
				fmt.Errorf("failed to unmarshal transcript %d: %w", i, err))
		}
		list = append(list, t)
	}
	return list, nil
}

// Prepend pushes t to the head of the list, trimming to the limit in the
// same round-trip.
func (b *Backend) Prepend(ctx context.Context, t transcript.StoredTranscript) error {
	data, err := json.Marshal(t)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrStorage, component, "Prepend", fmt.Errorf("failed to marshal transcript: %w", err))
	}

	pipe := b.client.TxPipeline()
	pipe.LPush(ctx, b.key, data)
	if b.limit > 0 {
		pipe.LTrim(ctx, b.key, 0, b.limit-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrStorage, component, "Prepend", fmt.Errorf("redis lpush failed: %w", err))
	}
	return nil
}

// Clear deletes the list.
func (b *Backend) Clear(ctx context.Context) error {
	if err := b.client.Del(ctx, b.key).Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrStorage, component, "Clear", fmt.Errorf("redis del failed: %w", err))
	}
	return nil
}
