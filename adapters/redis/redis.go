package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/airealcheck/realcheck"
)

// Adapter persists client state in Redis. Keys are namespaced with a
// prefix so several clients can share one instance.
type Adapter struct {
	client *redis.Client
	prefix string
}

var _ realcheck.KeyValueStore = (*Adapter)(nil)

func New(client *redis.Client, prefix string) *Adapter {
	if prefix == "" {
		prefix = "realcheck"
	}
	return &Adapter{client: client, prefix: prefix}
}

// Open connects to a Redis URL, tunes the pool, and pings before
// returning the adapter.
func Open(url, prefix string) (*Adapter, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return New(client, prefix), nil
}

func (a *Adapter) key(key string) string {
	return a.prefix + ":" + key
}

func (a *Adapter) Get(ctx context.Context, key string) (string, error) {
	value, err := a.client.Get(ctx, a.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", realcheck.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

func (a *Adapter) Set(ctx context.Context, key, value string) error {
	if err := a.client.Set(ctx, a.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (a *Adapter) Delete(ctx context.Context, key string) error {
	if err := a.client.Del(ctx, a.key(key)).Err(); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (a *Adapter) Close() error {
	return a.client.Close()
}
