package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/storefront/internal/config"
)

type cachedProduct struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Price   float64  `json:"price"`
	InStock bool     `json:"inStock"`
	Tags    []string `json:"tags,omitempty"`
}

func newMiniCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	db, err := NewClient(context.Background(), config.RedisConnection{
		AddressRedis: mr.Addr(),
		DialTimeout:  time.Second,
		TimeoutRedis: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mr
}

func TestCache_Lifecycle(t *testing.T) {
	c, mr := newMiniCache(t)
	ctx := context.Background()
	lamp := cachedProduct{ID: "p1", Name: "Lamp", Price: 19.99, InStock: true, Tags: []string{"light"}}

	var got cachedProduct
	found, err := c.Get(ctx, "product:p1", &got)
	require.NoError(t, err)
	assert.False(t, found, "cold cache")

	require.NoError(t, c.Set(ctx, "product:p1", lamp, 30*time.Minute))
	assert.Equal(t, 30*time.Minute, mr.TTL("product:p1"))

	raw, err := mr.Get("product:p1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"p1","name":"Lamp","price":19.99,"inStock":true,"tags":["light"]}`, raw)

	found, err = c.Get(ctx, "product:p1", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, lamp, got)

	mr.FastForward(31 * time.Minute)
	found, err = c.Get(ctx, "product:p1", &got)
	require.NoError(t, err)
	assert.False(t, found, "expired")
}

func TestCache_Invalidate(t *testing.T) {
	c, mr := newMiniCache(t)
	ctx := context.Background()

	for _, key := range []string{"products:all", "product:p1", "product:p2"} {
		require.NoError(t, c.Set(ctx, key, []cachedProduct{{ID: key}}, time.Minute))
	}

	require.NoError(t, c.Invalidate(ctx, "products:all", "product:p1", "product:missing"))
	require.NoError(t, c.Invalidate(ctx))

	assert.False(t, mr.Exists("products:all"))
	assert.False(t, mr.Exists("product:p1"))
	assert.True(t, mr.Exists("product:p2"))
}

func TestCache_CorruptedEntry(t *testing.T) {
	c, mr := newMiniCache(t)
	require.NoError(t, mr.Set("product:bad", "{not json"))

	var got cachedProduct
	found, err := c.Get(context.Background(), "product:bad", &got)
	require.Error(t, err)
	assert.False(t, found)
	assert.Contains(t, err.Error(), "cache.Get")
}

func TestCache_RedisDown(t *testing.T) {
	c, mr := newMiniCache(t)
	mr.Close()

	var got cachedProduct
	_, err := c.Get(context.Background(), "product:p1", &got)
	assert.Error(t, err)
	assert.Error(t, c.Set(context.Background(), "product:p1", got, time.Minute))
}

func TestNewClient_RedisURL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	db, err := NewClient(context.Background(), config.RedisConnection{AddressRedis: "redis://" + mr.Addr() + "/0"})
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	assert.Equal(t, mr.Addr(), db.Options().Addr)
}

func TestNewClient_Errors(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		db, err := NewClient(context.Background(), config.RedisConnection{})
		assert.Nil(t, db)
		assert.ErrorIs(t, err, ErrDisabled)
	})

	t.Run("unreachable", func(t *testing.T) {
		db, err := NewClient(context.Background(), config.RedisConnection{
			AddressRedis: "127.0.0.1:9999",
			DialTimeout:  200 * time.Millisecond,
		})
		assert.Nil(t, db)
		assert.Error(t, err)
	})
}

func TestNoop(t *testing.T) {
	var c Noop
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))
	var out int
	found, err := c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.Invalidate(ctx, "k"))
}
