package testkit

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"gorm.io/gorm"

	"github.com/ceyewan/autoid/connector"
)

const (
	mysqlImage    = "mysql:8.0"
	mysqlDatabase = "autoid_db"
	mysqlUser     = "autoid_user"
	mysqlPassword = "autoid_password"

	// mysqlReadyTimeout 容器端口就绪后 mysqld 仍需数秒初始化
	mysqlReadyTimeout = 60 * time.Second
)

// NewMySQLContainerConfig 启动一个 MySQL 容器，用于分表等需要真实 MySQL 语法的测试
func NewMySQLContainerConfig(t *testing.T) *connector.MySQLConfig {
	RequireContainers(t)
	ctx := context.Background()

	container, err := mysql.Run(ctx, mysqlImage,
		mysql.WithDatabase(mysqlDatabase),
		mysql.WithUsername(mysqlUser),
		mysql.WithPassword(mysqlPassword),
	)
	require.NoError(t, err, "start mysql container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, "3306")
	require.NoError(t, err)
	port, err := strconv.Atoi(mapped.Port())
	require.NoError(t, err)

	return &connector.MySQLConfig{
		Name:         "test-mysql",
		Host:         host,
		Port:         port,
		Username:     mysqlUser,
		Password:     mysqlPassword,
		Database:     mysqlDatabase,
		MaxIdleConns: 2,
		MaxOpenConns: 10,
	}
}

// NewMySQLConnector 返回已连接的 MySQL 连接器，反复 Connect 直到 mysqld 接受连接
func NewMySQLConnector(t *testing.T) connector.MySQLConnector {
	conn, err := connector.NewMySQL(NewMySQLContainerConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "create mysql connector")
	t.Cleanup(func() { _ = conn.Close() })

	ctx := NewContext(t, mysqlReadyTimeout)
	for err = conn.Connect(ctx); err != nil; err = conn.Connect(ctx) {
		select {
		case <-ctx.Done():
			t.Fatalf("mysql not ready after %s: %v", mysqlReadyTimeout, err)
		case <-time.After(2 * time.Second):
		}
	}
	return conn
}

// NewMySQLDB 返回 MySQL 上的 *gorm.DB
func NewMySQLDB(t *testing.T) *gorm.DB {
	return NewMySQLConnector(t).GetClient()
}
