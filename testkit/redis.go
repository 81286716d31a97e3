package testkit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noghresod/shopsync/connector"
)

// NewMiniRedis 启动进程内 Redis，测试结束自动关闭
func NewMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	return miniredis.RunT(t)
}

// NewRedisConnector 返回连到 miniredis 的连接器
func NewRedisConnector(t *testing.T) (connector.RedisConnector, *miniredis.Miniredis) {
	t.Helper()
	mr := NewMiniRedis(t)

	conn, err := connector.NewRedis(&connector.RedisConfig{
		Name: "test-redis",
		Addr: mr.Addr(),
	}, connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create redis connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to miniredis")

	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn, mr
}

// NewRedisClient 返回原生 Redis 客户端
func NewRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	conn, _ := NewRedisConnector(t)
	return conn.GetClient()
}
