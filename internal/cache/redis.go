package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "dcmon:snapshot:"

// RedisStore keeps snapshots in Redis so several dashboard instances can
// share last-known-good data.
type RedisStore struct {
	log    *slog.Logger
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(log *slog.Logger, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{
		log:    log,
		client: client,
		ttl:    ttl,
	}, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, data []byte) error {
	full := keyPrefix + key

	if err := s.client.HSet(ctx, full,
		"data", string(data),
		"updated_at", time.Now().UTC().Format(time.RFC3339),
	).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	if err := s.client.Expire(ctx, full, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot TTL: %w", err)
	}

	s.log.Debug("snapshot stored", slog.String("key", key), slog.Int("bytes", len(data)))
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, time.Time, error) {
	fields, err := s.client.HGetAll(ctx, keyPrefix+key).Result()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query snapshot: %w", err)
	}
	if len(fields) == 0 {
		return nil, time.Time{}, ErrMiss
	}

	at, _ := time.Parse(time.RFC3339, fields["updated_at"])
	return []byte(fields["data"]), at, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
