package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) (*Storage, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	s, err := InitStorage(context.Background(), &redis.Options{Addr: mr.Addr()}, "test:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, mr
}

func TestStorage_SetGet(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStorage(t)

	require.NoError(t, s.Set(ctx, "Latest-Rates:USD", []byte(`{"base":"USD"}`), time.Minute))

	v, ok := s.Get(ctx, "latest-rates:usd")
	require.True(t, ok)
	assert.Equal(t, `{"base":"USD"}`, string(v))

	assert.True(t, mr.Exists("test:latest-rates:usd"))
}

func TestStorage_Miss(t *testing.T) {
	s, _ := newTestStorage(t)

	_, ok := s.Get(context.Background(), "nothing")
	assert.False(t, ok)
}

func TestStorage_Expiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStorage(t)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 10*time.Minute))

	mr.FastForward(10*time.Minute - time.Second)
	_, ok := s.Get(ctx, "k")
	assert.True(t, ok)

	mr.FastForward(2 * time.Second)
	_, ok = s.Get(ctx, "k")
	assert.False(t, ok)
}

func TestStorage_ServerDownIsMiss(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStorage(t)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	mr.Close()

	_, ok := s.Get(ctx, "k")
	assert.False(t, ok)
	assert.Error(t, s.Set(ctx, "k", []byte("v"), time.Minute))
}

func TestInitStorage_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := InitStorage(context.Background(), &redis.Options{Addr: addr, MaxRetries: -1}, "")
	assert.Error(t, err)
}
