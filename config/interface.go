// Package config 为 autoid 提供统一的配置加载能力，基于 Viper 实现。
//
// 特性：
//   - 多源配置加载：YAML/JSON 文件、环境变量、.env 文件
//   - 配置优先级：环境变量 > .env > 环境特定配置 > 基础配置
//   - 热更新支持：监听配置文件变化，按 key 通知订阅方
//
// 基本使用：
//
//	loader := config.MustLoad(
//		config.WithConfigName("autoid"),
//		config.WithConfigPaths("./config"),
//		config.WithEnvPrefix("AUTOID"),
//	)
//
//	var cfg idgen.Config
//	if err := loader.UnmarshalKey("idgen", &cfg); err != nil {
//		panic(err)
//	}
//
//	// 监听日志级别变化
//	ch, _ := loader.Watch(ctx, "log.level")
//	for event := range ch {
//		fmt.Printf("配置变化: %s = %v\n", event.Key, event.Value)
//	}
package config

import (
	"context"
	"time"
)

// Loader 定义配置加载器的核心行为
type Loader interface {
	// Load 从所有来源加载配置并启动文件监听
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体
	Unmarshal(v any) error

	// UnmarshalKey 将指定 Key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Watch 监听配置变化，ctx 取消后通道关闭
	Watch(ctx context.Context, key string) (<-chan Event, error)
}

// Event 配置变更事件
type Event struct {
	Key       string
	Value     any
	OldValue  any
	Source    string // "file"
	Timestamp time.Time
}
