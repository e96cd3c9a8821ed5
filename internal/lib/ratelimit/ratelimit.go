// Package ratelimit ограничивает число запросов с одного ключа (обычно IP) за окно времени.
//
// Основная реализация хранит счетчики в Redis (фиксированное окно), поэтому
// лимит общий для всех экземпляров сервиса. Memory используется, когда Redis не настроен.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidParams лимит или окно не положительны.
var ErrInvalidParams = errors.New("limit and window must be positive")

func validate(op string, limit int, window time.Duration) error {
	if limit <= 0 || window <= 0 {
		return fmt.Errorf("%s: %w: limit=%d window=%s", op, ErrInvalidParams, limit, window)
	}
	return nil
}

// Result итог проверки лимита.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Duration
}

// Limiter проверяет и учитывает очередной запрос для ключа.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Redis лимитер с фиксированным окном на INCR/PEXPIRE.
type Redis struct {
	db     *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedis создает лимитер: не более limit запросов за window.
func NewRedis(db *redis.Client, limit int, window time.Duration) (*Redis, error) {
	if err := validate("ratelimit.NewRedis", limit, window); err != nil {
		return nil, err
	}
	return &Redis{db: db, limit: limit, window: window, prefix: "rl:"}, nil
}

// Allow учитывает запрос. Первый запрос в окне выставляет срок жизни счетчика.
func (l *Redis) Allow(ctx context.Context, key string) (Result, error) {
	const op = "ratelimit.Redis.Allow"
	k := l.prefix + key

	pipe := l.db.TxPipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	count := int(incr.Val())
	reset := ttl.Val()
	// счетчик без TTL: новое окно или ключ, у которого expire не успел выставиться
	if reset < 0 {
		if err := l.db.PExpire(ctx, k, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		reset = l.window
	}

	return Result{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: max(l.limit-count, 0),
		Reset:     reset,
	}, nil
}
