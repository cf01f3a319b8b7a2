package clog

import "context"

// Logger 日志接口，提供结构化日志记录功能
//
// 创建子 Logger：
//
//	childLogger := logger.With(clog.String("component", "idgen"))
//	namespacedLogger := logger.WithNamespace("idgen", "allocator")
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// Fatal 记录日志后退出进程
	Fatal(msg string, fields ...Field)

	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)
	FatalContext(ctx context.Context, msg string, fields ...Field)

	// With 创建一个带有预设字段的子 Logger
	With(fields ...Field) Logger

	// WithNamespace 创建一个扩展命名空间的子 Logger
	//
	// 命名空间会追加到现有的命名空间后面，以 "." 连接。
	WithNamespace(parts ...string) Logger

	// SetLevel 动态调整日志级别，对共享同一 handler 的所有子 Logger 生效
	SetLevel(level Level) error

	// Flush 强制同步所有缓冲区的日志
	Flush()
}
