package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func TestNewRedisLock_Validaciones(t *testing.T) {
	_, err := NewRedisLock(nil, "k", 0)
	assert.Error(t, err)
	_, err = NewRedisLock(newFakeRedis(), "", 0)
	assert.Error(t, err)

	l, err := NewRedisLock(newFakeRedis(), "k", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, l.ttl)
}

func TestRedisLock_UnaClavePorTrabajo(t *testing.T) {
	store := newFakeRedis()
	a, err := NewRedisLock(store, "stock-ledger:scheduler", time.Minute)
	require.NoError(t, err)
	b, err := NewRedisLock(store, "stock-ledger:scheduler", time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := a.Acquire(ctx, "backup")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, store.ttls["stock-ledger:scheduler:backup"])

	// otra instancia no puede tomar el mismo trabajo, sí otro distinto
	ok, err = b.Acquire(ctx, "backup")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = b.Acquire(ctx, "sync-export")
	require.NoError(t, err)
	assert.True(t, ok)

	// liberar sin ser dueño no borra la clave ajena
	require.NoError(t, b.Release(ctx, "backup"))
	_, err = store.Get(ctx, "stock-ledger:scheduler:backup")
	assert.NoError(t, err)

	require.NoError(t, a.Release(ctx, "backup"))
	_, err = store.Get(ctx, "stock-ledger:scheduler:backup")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestRedisLock_NoBorraSiExpiroYOtroLoTomo(t *testing.T) {
	store := newFakeRedis()
	l, err := NewRedisLock(store, "k", time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := l.Acquire(ctx, "backup")
	require.NoError(t, err)
	require.True(t, ok)

	// simula expiración y toma por otra instancia
	store.values["k:backup"] = "otro"
	require.NoError(t, l.Release(ctx, "backup"))
	v, err := store.Get(ctx, "k:backup")
	require.NoError(t, err)
	assert.Equal(t, "otro", v)
}

func TestLocalLock(t *testing.T) {
	l := NewLocalLock()
	ctx := context.Background()
	ok, _ := l.Acquire(ctx, "a")
	assert.True(t, ok)
	ok, _ = l.Acquire(ctx, "a")
	assert.False(t, ok)
	ok, _ = l.Acquire(ctx, "b")
	assert.True(t, ok)
	require.NoError(t, l.Release(ctx, "a"))
	ok, _ = l.Acquire(ctx, "a")
	assert.True(t, ok)
}
