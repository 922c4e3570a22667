package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Versioned, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewVersioned(client, "test:dashboard", time.Minute), mr
}

type summary struct {
	Total int `json:"total"`
}

func TestVersionedFetchAndBump(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	ver, err := c.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), ver)

	key, err := c.BuildKey(ctx, "summary", "2024-03-01")
	require.NoError(t, err)
	require.Equal(t, "test:dashboard:summary:2024-03-01:v1", key)

	var calls int32
	loader := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return summary{Total: 7}, nil
	}
	var got summary
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.Equal(t, 7, got.Total)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.True(t, mr.Exists(key))

	require.NoError(t, c.Bump(ctx))
	next, err := c.BuildKey(ctx, "summary", "2024-03-01")
	require.NoError(t, err)
	require.Equal(t, "test:dashboard:summary:2024-03-01:v2", next)

	require.NoError(t, c.FetchJSON(ctx, next, &got, loader))
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestVersionedLoaderError(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	boom := errors.New("store offline")

	var got summary
	err := c.FetchJSON(ctx, "test:dashboard:k:v1", &got, func(context.Context) (any, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists("test:dashboard:k:v1"))

	require.Error(t, c.FetchJSON(ctx, "k", &got, nil))
}

func TestVersionedSharedLoadOutlivesFirstCaller(t *testing.T) {
	c, mr := newTestCache(t)
	key := "test:dashboard:summary:v1"
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	loader := func(ctx context.Context) (any, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return summary{Total: 9}, nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		var got summary
		firstErr <- c.FetchJSON(firstCtx, key, &got, loader)
	}()
	<-started

	secondErr := make(chan error, 1)
	var second summary
	go func() {
		secondErr <- c.FetchJSON(context.Background(), key, &second, loader)
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)
	close(release)

	require.NoError(t, <-secondErr)
	require.Equal(t, 9, second.Total)
	require.True(t, mr.Exists(key))
}

func TestVersionedWithoutRedis(t *testing.T) {
	ctx := context.Background()
	c := NewVersioned(nil, "test", time.Minute)

	ver, err := c.Version(ctx)
	require.NoError(t, err)
	require.Zero(t, ver)

	key, err := c.BuildKey(ctx, "a", "b")
	require.NoError(t, err)
	require.Equal(t, "a:b", key)

	var got summary
	require.NoError(t, c.FetchJSON(ctx, key, &got, func(context.Context) (any, error) { return summary{Total: 3}, nil }))
	require.Equal(t, 3, got.Total)
	require.NoError(t, c.Bump(ctx))
	require.NoError(t, c.ListenForInvalidation(ctx, nil))
}

func TestListenForInvalidation(t *testing.T) {
	c, _ := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen atomic.Int64
	require.NoError(t, c.ListenForInvalidation(ctx, func(v int64) { seen.Store(v) }))

	_, err := c.Version(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Bump(ctx))
	require.Eventually(t, func() bool { return seen.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestOptions(t *testing.T) {
	opts, err := Options("localhost:6379")
	require.NoError(t, err)
	require.Equal(t, "localhost:6379", opts.Addr)

	opts, err = Options("redis://:secret@cache.internal:6380/2")
	require.NoError(t, err)
	require.Equal(t, "cache.internal:6380", opts.Addr)
	require.Equal(t, "secret", opts.Password)
	require.Equal(t, 2, opts.DB)

	_, err = Options("redis://cache.internal:6380/notadb")
	require.Error(t, err)
}

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	client, err := New(context.Background(), addr)
	require.NoError(t, err)
	require.NoError(t, client.Close())

	mr.Close()
	_, err = New(context.Background(), addr)
	require.Error(t, err)
}
