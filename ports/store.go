package ports

import (
	"context"
	"time"
)

// Store is durable key-value storage used to persist sessions across process
// restarts and as a secondary cross-process signal channel. Implementations
// return core.ErrKeyNotFound for absent keys.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
