package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type keyLimiter struct {
	lim *rate.Limiter
	ts  time.Time
}

// Memory лимитер в памяти процесса на token bucket: limit запросов за window
// с равномерным восполнением. Неактивные ключи удаляются через ttl.
type Memory struct {
	mu     sync.Mutex
	m      map[string]*keyLimiter
	r      rate.Limit
	limit  int
	window time.Duration
	ttl    time.Duration
	stop   chan struct{}
	once   sync.Once
}

// NewMemory создает лимитер и запускает очистку неактивных ключей.
func NewMemory(limit int, window time.Duration) (*Memory, error) {
	if err := validate("ratelimit.NewMemory", limit, window); err != nil {
		return nil, err
	}
	m := &Memory{
		m:      make(map[string]*keyLimiter),
		r:      rate.Limit(float64(limit) / window.Seconds()),
		limit:  limit,
		window: window,
		ttl:    window,
		stop:   make(chan struct{}),
	}
	go m.gc()
	return m, nil
}

// Allow учитывает запрос.
func (m *Memory) Allow(_ context.Context, key string) (Result, error) {
	now := time.Now()
	lim := m.get(key, now)
	allowed := lim.AllowN(now, 1)
	remaining := int(lim.TokensAt(now))

	return Result{
		Allowed:   allowed,
		Limit:     m.limit,
		Remaining: max(remaining, 0),
		Reset:     m.window,
	}, nil
}

func (m *Memory) get(key string, now time.Time) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	kl, ok := m.m[key]
	if ok {
		kl.ts = now
		return kl.lim
	}
	lim := rate.NewLimiter(m.r, m.limit)
	m.m[key] = &keyLimiter{lim: lim, ts: now}
	return lim
}

func (m *Memory) gc() {
	interval := min(m.ttl, time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for k, v := range m.m {
				if now.Sub(v.ts) > m.ttl {
					delete(m.m, k)
				}
			}
			m.mu.Unlock()
		}
	}
}

// Stop останавливает фоновую очистку.
func (m *Memory) Stop() {
	m.once.Do(func() { close(m.stop) })
}
