package testkit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/ceyewan/autoid/connector"
)

// NewRedisContainerConfig 使用 testcontainers 创建 Redis 容器并返回配置
// 生命周期由 t.Cleanup 管理
func NewRedisContainerConfig(t *testing.T) *connector.RedisConfig {
	RequireContainers(t)
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return &connector.RedisConfig{
		Name:         "test-redis",
		Addr:         fmt.Sprintf("%s:%s", host, mappedPort.Port()),
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewRedisConnector 获取已连接的 Redis 连接器（基于 testcontainers）
func NewRedisConnector(t *testing.T) connector.RedisConnector {
	cfg := NewRedisContainerConfig(t)
	conn, err := connector.NewRedis(cfg, connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create redis connector")

	require.NoError(t, conn.Connect(context.Background()), "failed to connect to redis")
	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}
