package testkit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ceyewan/autoid/connector"
)

// NewSQLiteConfig 返回具名的共享内存库，每次调用名字不同，测试之间互不可见
func NewSQLiteConfig() *connector.SQLiteConfig {
	return &connector.SQLiteConfig{
		Name: "test-sqlite",
		Path: "file:" + NewID() + "?mode=memory&cache=shared",
	}
}

// NewSQLiteConnector 返回已连接的内存 SQLite 连接器，t 结束时关闭
func NewSQLiteConnector(t *testing.T) connector.SQLiteConnector {
	conn, err := connector.NewSQLite(NewSQLiteConfig(), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "create sqlite connector")
	require.NoError(t, conn.Connect(context.Background()), "connect sqlite")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// NewSQLiteDB 返回内存 SQLite 上的 *gorm.DB，autoid 插件测试的默认数据库
func NewSQLiteDB(t *testing.T) *gorm.DB {
	return NewSQLiteConnector(t).GetClient()
}

// NewPersistentSQLiteConfig 返回 t.TempDir() 下的文件库，用于验证关闭后重新打开的场景
func NewPersistentSQLiteConfig(t *testing.T) *connector.SQLiteConfig {
	return &connector.SQLiteConfig{
		Name: "test-sqlite-file",
		Path: filepath.Join(t.TempDir(), "autoid.db"),
	}
}
