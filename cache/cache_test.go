package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noghresod/shopsync/cache"
	"github.com/noghresod/shopsync/cache/serializer"
	"github.com/noghresod/shopsync/testkit"
	"github.com/noghresod/shopsync/xerrors"
)

type item struct {
	ProductID string
	AddedAt   time.Time
	Tags      []string
}

func newDrivers(t *testing.T) map[string]cache.Cache {
	t.Helper()

	standalone, err := cache.New(&cache.Config{Prefix: "t:"}, cache.WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = standalone.Close() })

	conn, _ := testkit.NewRedisConnector(t)
	distributed, err := cache.New(&cache.Config{Mode: cache.ModeDistributed, Prefix: "t:"},
		cache.WithRedisConnector(conn), cache.WithMeter(testkit.NewMeter(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = distributed.Close() })

	return map[string]cache.Cache{"standalone": standalone, "distributed": distributed}
}

// TestNew 测试配置校验
func TestNew(t *testing.T) {
	_, err := cache.New(nil)
	assert.ErrorIs(t, err, cache.ErrConfigNil)

	_, err = cache.New(&cache.Config{Mode: cache.ModeDistributed})
	assert.ErrorIs(t, err, cache.ErrRedisConnectorRequired)

	_, err = cache.New(&cache.Config{Mode: "cluster"})
	assert.ErrorIs(t, err, cache.ErrInvalidConfig)

	_, err = cache.New(&cache.Config{Serializer: "gob"})
	assert.ErrorIs(t, err, serializer.ErrUnsupportedSerializer)
}

// TestKeyValue 测试两种驱动的读写语义一致
func TestKeyValue(t *testing.T) {
	ctx := context.Background()
	added := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for name, kv := range newDrivers(t) {
		t.Run(name, func(t *testing.T) {
			want := []item{{ProductID: "p-1", AddedAt: added, Tags: []string{"gold"}}}
			require.NoError(t, kv.Set(ctx, "wishlist", want, 0))

			var got []item
			require.NoError(t, kv.Get(ctx, "wishlist", &got))
			require.Len(t, got, 1)
			assert.Equal(t, "p-1", got[0].ProductID)
			assert.True(t, added.Equal(got[0].AddedAt))

			// 读出的是副本
			got[0].Tags[0] = "silver"
			var again []item
			require.NoError(t, kv.Get(ctx, "wishlist", &again))
			assert.Equal(t, "gold", again[0].Tags[0])

			ok, err := kv.Has(ctx, "wishlist")
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, kv.Delete(ctx, "wishlist"))
			err = kv.Get(ctx, "wishlist", &got)
			assert.True(t, cache.IsMiss(err))
			assert.True(t, xerrors.IsNotFound(err))

			assert.ErrorIs(t, kv.Expire(ctx, "missing", time.Minute), cache.ErrMiss)
		})
	}
}

// TestRedisTTL 测试 Redis 驱动过期
func TestRedisTTL(t *testing.T) {
	ctx := context.Background()
	conn, mr := testkit.NewRedisConnector(t)
	kv, err := cache.New(&cache.Config{Mode: cache.ModeDistributed, Serializer: "json"}, cache.WithRedisConnector(conn))
	require.NoError(t, err)

	require.NoError(t, kv.Set(ctx, "cart", []string{"a"}, time.Minute))
	mr.FastForward(59 * time.Second)
	ok, _ := kv.Has(ctx, "cart")
	assert.True(t, ok)

	require.NoError(t, kv.Expire(ctx, "cart", 0))
	mr.FastForward(time.Hour)
	ok, _ = kv.Has(ctx, "cart")
	assert.True(t, ok, "Expire(0) should persist the key")

	require.NoError(t, kv.Expire(ctx, "cart", time.Second))
	mr.FastForward(2 * time.Second)
	ok, _ = kv.Has(ctx, "cart")
	assert.False(t, ok)
}

// TestStandaloneTTL 测试本地驱动写入过期
func TestStandaloneTTL(t *testing.T) {
	ctx := context.Background()
	kv, err := cache.New(&cache.Config{})
	require.NoError(t, err)
	defer kv.Close()

	require.NoError(t, kv.Set(ctx, "k", 1, 50*time.Millisecond))
	require.Eventually(t, func() bool {
		ok, _ := kv.Has(ctx, "k")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

// TestSerializer 测试序列化器选择
func TestSerializer(t *testing.T) {
	for _, name := range []string{"json", "msgpack"} {
		s, err := serializer.New(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())

		data, err := s.Marshal(map[string]int{"qty": 2})
		require.NoError(t, err)
		var out map[string]int
		require.NoError(t, s.Unmarshal(data, &out))
		assert.Equal(t, 2, out["qty"])
	}

	s, err := serializer.New("")
	require.NoError(t, err)
	assert.Equal(t, "msgpack", s.Name())
}
