package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when no snapshot exists for a key.
var ErrMiss = errors.New("cache miss")

// Store persists last-known-good fetched snapshots keyed by view name, so
// the dashboard can keep rendering across backend outages.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, time.Time, error)
	Close() error
}
