// Package clog 为 autoid 提供基于 slog 的结构化日志组件。
//
// 特性：
//   - 抽象接口，不暴露底层实现（slog）
//   - 支持层级命名空间，每个组件派生自己的子 Logger
//   - 运行时动态调整日志级别（配合 config.Watch 使用）
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{
//	    Level:  "info",
//	    Format: "console",
//	    Output: "stdout",
//	})
//	logger.Info("generator ready", clog.Int64("worker_id", 3))
//
// 使用命名空间：
//
//	logger, _ := clog.New(&clog.Config{Level: "info"}, clog.WithNamespace("order-service"))
//	idgenLogger := logger.WithNamespace("idgen") // namespace=order-service.idgen
package clog

import "fmt"

// New 创建一个新的 Logger 实例
//
// config 为 nil 时使用开发环境默认配置。
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = NewDevDefaultConfig("autoid")
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return newLogger(config, applyOptions(opts...))
}
