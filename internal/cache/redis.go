// Package cache реализует JSON-кэш поверх Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/storefront/internal/config"
)

// ErrDisabled возвращается, если адрес Redis не задан.
var ErrDisabled = errors.New("redis is not configured")

// Cache хранит значения в Redis в виде JSON.
type Cache struct {
	Db *redis.Client
}

// NewClient создает клиент Redis и проверяет соединение.
// Адрес может быть как host:port, так и redis:// URL.
func NewClient(ctx context.Context, cfg config.RedisConnection) (*redis.Client, error) {
	const op = "cache.NewClient"
	if cfg.AddressRedis == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrDisabled)
	}

	opts := &redis.Options{Addr: cfg.AddressRedis}
	if strings.HasPrefix(cfg.AddressRedis, "redis://") || strings.HasPrefix(cfg.AddressRedis, "rediss://") {
		parsed, err := redis.ParseURL(cfg.AddressRedis)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		opts = parsed
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.User != "" {
		opts.Username = cfg.User
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	opts.MaxRetries = cfg.MaxRetries
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.TimeoutRedis
	opts.WriteTimeout = cfg.TimeoutRedis

	db := redis.NewClient(opts)
	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return db, nil
}

// New оборачивает готовый клиент.
func New(db *redis.Client) *Cache {
	return &Cache{Db: db}
}

// Get читает значение в result. При отсутствии ключа возвращает (false, nil).
func (c *Cache) Get(ctx context.Context, key string, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.Db.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	err = json.Unmarshal([]byte(val), result)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set сохраняет значение с временем жизни expiration.
func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	const op = "cache.Set"
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.Db.Set(ctx, key, jsonData, expiration).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Invalidate удаляет ключи.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	const op = "cache.Invalidate"
	if len(keys) == 0 {
		return nil
	}
	if err := c.Db.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Noop кэш-заглушка для запуска без Redis: всегда промах, запись игнорируется.
type Noop struct{}

// Get всегда промах.
func (Noop) Get(context.Context, string, any) (bool, error) { return false, nil }

// Set ничего не делает.
func (Noop) Set(context.Context, string, any, time.Duration) error { return nil }

// Invalidate ничего не делает.
func (Noop) Invalidate(context.Context, ...string) error { return nil }
