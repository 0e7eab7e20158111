package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const defaultRedisKey = "invoicing:session"

// RedisConfig holds the redis connection settings of the session backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Key is the redis key the session blob is stored under.
	Key string
}

// RedisBackend stores all session entries as one msgpack encoded blob.
type RedisBackend struct {
	client *redis.Client
	key    string
}

// NewRedisBackend connects to redis and verifies the connection.
func NewRedisBackend(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("session: failed to connect to redis: %w", err)
	}

	return NewRedisBackendWithClient(client, cfg.Key), nil
}

// NewRedisBackendWithClient creates a backend with an existing client.
func NewRedisBackendWithClient(client *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisBackend{client: client, key: key}
}

func (b *RedisBackend) Load(ctx context.Context) (map[string][]byte, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return map[string][]byte{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeEntries(data)
}

// Save merges entries into the stored blob.
func (b *RedisBackend) Save(ctx context.Context, entries map[string][]byte) error {
	current, err := b.Load(ctx)
	if err != nil {
		return err
	}
	for k, v := range entries {
		current[k] = v
	}
	return b.write(ctx, current)
}

func (b *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	current, err := b.Load(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(current, k)
	}
	if len(current) == 0 {
		return b.client.Del(ctx, b.key).Err()
	}
	return b.write(ctx, current)
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func (b *RedisBackend) write(ctx context.Context, entries map[string][]byte) error {
	data, err := encodeEntries(entries)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, b.key, data, 0).Err()
}

func encodeEntries(entries map[string][]byte) ([]byte, error) {
	data, err := msgpack.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("session: encode: %w", err)
	}
	return data, nil
}

func decodeEntries(data []byte) (map[string][]byte, error) {
	entries := map[string][]byte{}
	if err := msgpack.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	return entries, nil
}
