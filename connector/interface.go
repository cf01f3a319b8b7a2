// Package connector 为 autoid 提供统一的连接管理能力。
//
// idgen 的协调器借用 Redis / Etcd 连接器完成节点槽位租约，
// autoid 插件挂载在 SQLite / MySQL 连接器返回的 *gorm.DB 上。
//
// 基本使用：
//
//	conn, err := connector.NewRedis(&connector.RedisConfig{Addr: "127.0.0.1:6379"},
//		connector.WithLogger(logger))
//	if err != nil {
//		panic(err)
//	}
//	defer conn.Close()
//
//	if err := conn.Connect(ctx); err != nil {
//		panic(err)
//	}
//	client := conn.GetClient()
//
// 资源所有权：
//
//	Connector 拥有底层连接的生命周期，应通过 defer 确保 Close() 被调用。
//	idgen.Component 等组件仅借用 Connector，不会调用 Close()。
package connector

import (
	"context"

	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
	"gorm.io/gorm"
)

// Connector 定义所有连接器的通用行为，方法均为并发安全
type Connector interface {
	// Connect 建立连接，幂等
	Connect(ctx context.Context) error

	// Close 关闭连接并释放资源，幂等
	Close() error

	// HealthCheck 发送测试请求验证连接可用性，并更新 IsHealthy 的缓存结果
	HealthCheck(ctx context.Context) error

	// IsHealthy 返回最后一次检查的结果，不阻塞
	IsHealthy() bool

	// Name 返回连接实例名称
	Name() string
}

// TypedConnector 提供类型安全的客户端访问
type TypedConnector[T any] interface {
	Connector

	// GetClient 返回底层客户端实例。Connect 之前或 Close 之后可能返回 nil
	GetClient() T
}

// RedisConnector Redis 连接器接口
type RedisConnector interface {
	TypedConnector[*redis.Client]
}

// EtcdConnector Etcd 连接器接口
type EtcdConnector interface {
	TypedConnector[*clientv3.Client]
}

// MySQLConnector MySQL 连接器接口，基于 GORM
type MySQLConnector interface {
	TypedConnector[*gorm.DB]
}

// SQLiteConnector SQLite 连接器接口，基于 GORM。支持内存数据库，适合测试
type SQLiteConnector interface {
	TypedConnector[*gorm.DB]
}
