package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vietddude/authguard/internal/infra/storage"
)

// Config holds Redis connection configuration.
type Config struct {
	URL       string `yaml:"url"`
	Password  string `yaml:"password"`
	KeyPrefix string `yaml:"key_prefix"`
}

// Store implements storage.KVStore on Redis. All keys live under KeyPrefix.
type Store struct {
	rdb    *redis.Client
	prefix string
}

// NewStore creates a new Redis-backed store.
func NewStore(cfg Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{rdb: rdb, prefix: cfg.KeyPrefix}, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// ListKeys scans every key under the prefix.
func (s *Store) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, scanPattern(s.prefix), 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, stripPrefix(s.prefix, iter.Val()))
	}
	if err := iter.Err(); err != nil {
		return nil, storage.IOError("scan", err)
	}
	return keys, nil
}

// DeleteMany removes keys with a single DEL.
func (s *Store) DeleteMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = fullKey(s.prefix, k)
	}
	if err := s.rdb.Del(ctx, full...).Err(); err != nil {
		return storage.IOError("del", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.rdb.Get(ctx, fullKey(s.prefix, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrKeyNotFound
	}
	if err != nil {
		return "", storage.IOError("get", err)
	}
	return val, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.rdb.Set(ctx, fullKey(s.prefix, key), value, 0).Err(); err != nil {
		return storage.IOError("set", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, fullKey(s.prefix, key)).Err(); err != nil {
		return storage.IOError("del", err)
	}
	return nil
}

// Health pings the server.
func (s *Store) Health(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Key helpers
func fullKey(prefix, key string) string {
	return prefix + key
}

func stripPrefix(prefix, key string) string {
	return strings.TrimPrefix(key, prefix)
}

// scanPattern escapes glob metacharacters in prefix so SCAN MATCH is literal.
func scanPattern(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('*')
	return b.String()
}
