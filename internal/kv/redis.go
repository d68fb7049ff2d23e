package kv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gomodule/redigo/redis"
)

// RedisConfig holds connection settings for the Redis-backed store.
type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	MaxIdle     int           `yaml:"max_idle"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// DefaultRedisConfig returns the default Redis connection settings.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:        "127.0.0.1:6379",
		MaxIdle:     4,
		IdleTimeout: 240 * time.Second,
	}
}

// RedisStore implements Store on top of Redis. TTLs map to PX expiry and
// prefix listing uses SCAN with a MATCH pattern.
type RedisStore struct {
	pool *redis.Pool
}

// NewRedisStore creates a Redis-backed store with a connection pool.
func NewRedisStore(cfg RedisConfig) *RedisStore {
	pool := &redis.Pool{
		MaxIdle:     cfg.MaxIdle,
		IdleTimeout: cfg.IdleTimeout,
		Dial: func() (redis.Conn, error) {
			opts := []redis.DialOption{redis.DialDatabase(cfg.DB)}
			if cfg.Password != "" {
				opts = append(opts, redis.DialPassword(cfg.Password))
			}
			return redis.Dial("tcp", cfg.Addr, opts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
	return &RedisStore{pool: pool}
}

// Ping verifies connectivity to Redis.
func (s *RedisStore) Ping(ctx context.Context) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Do("PING"); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	defer conn.Close()

	value, err := redis.Bytes(conn.Do("GET", key))
	if err == redis.ErrNil {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return value, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer conn.Close()

	if ttl > 0 {
		_, err = conn.Do("SET", key, value, "PX", ttl.Milliseconds())
	} else {
		_, err = conn.Do("SET", key, value)
	}
	if err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Do("DEL", key); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

// ListKeys implements Store using an iterative SCAN so large keyspaces
// do not block the server the way KEYS would.
func (s *RedisStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	defer conn.Close()

	var (
		cursor int64
		keys   []string
	)
	for {
		reply, err := redis.Values(conn.Do("SCAN", cursor, "MATCH", escapeMatch(prefix)+"*", "COUNT", 200))
		if err != nil {
			return nil, fmt.Errorf("redis scan %q: %w", prefix, err)
		}
		cursor, err = redis.Int64(reply[0], nil)
		if err != nil {
			return nil, fmt.Errorf("redis scan cursor: %w", err)
		}
		batch, err := redis.Strings(reply[1], nil)
		if err != nil {
			return nil, fmt.Errorf("redis scan keys: %w", err)
		}
		keys = append(keys, batch...)
		if cursor == 0 {
			return keys, nil
		}
	}
}

// escapeMatch backslash-escapes Redis glob metacharacters so a prefix
// containing them matches literally instead of mis-scanning.
func escapeMatch(prefix string) string {
	var b strings.Builder
	b.Grow(len(prefix))
	for _, r := range prefix {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.pool.Close()
}
