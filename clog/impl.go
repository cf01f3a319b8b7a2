package clog

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"
)

// NamespaceKey 是日志中命名空间的字段名
const NamespaceKey = "namespace"

// loggerImpl 是 Logger 接口的具体实现
type loggerImpl struct {
	handler   *clogHandler
	namespace string
	attrs     []slog.Attr
}

func newLogger(config *Config, options *options) (Logger, error) {
	handler, err := newHandler(config, options)
	if err != nil {
		return nil, err
	}

	ns := options.namespace()
	if config.namespace != "" {
		ns = joinNamespace(config.namespace, ns)
	}

	return &loggerImpl{handler: handler, namespace: ns}, nil
}

func (l *loggerImpl) Debug(msg string, fields ...Field) {
	l.log(context.Background(), DebugLevel, msg, fields...)
}

func (l *loggerImpl) Info(msg string, fields ...Field) {
	l.log(context.Background(), InfoLevel, msg, fields...)
}

func (l *loggerImpl) Warn(msg string, fields ...Field) {
	l.log(context.Background(), WarnLevel, msg, fields...)
}

func (l *loggerImpl) Error(msg string, fields ...Field) {
	l.log(context.Background(), ErrorLevel, msg, fields...)
}

func (l *loggerImpl) Fatal(msg string, fields ...Field) {
	l.log(context.Background(), FatalLevel, msg, fields...)
}

func (l *loggerImpl) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, DebugLevel, msg, fields...)
}

func (l *loggerImpl) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, InfoLevel, msg, fields...)
}

func (l *loggerImpl) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, WarnLevel, msg, fields...)
}

func (l *loggerImpl) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, ErrorLevel, msg, fields...)
}

func (l *loggerImpl) FatalContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, FatalLevel, msg, fields...)
}

func (l *loggerImpl) With(fields ...Field) Logger {
	attrs := make([]slog.Attr, 0, len(l.attrs)+len(fields))
	attrs = append(attrs, l.attrs...)
	attrs = append(attrs, fields...)
	return &loggerImpl{handler: l.handler, namespace: l.namespace, attrs: attrs}
}

func (l *loggerImpl) WithNamespace(parts ...string) Logger {
	ns := l.namespace
	for _, p := range parts {
		ns = joinNamespace(ns, p)
	}
	return &loggerImpl{handler: l.handler, namespace: ns, attrs: l.attrs}
}

func (l *loggerImpl) SetLevel(level Level) error {
	return l.handler.SetLevel(level)
}

func (l *loggerImpl) Flush() {
	l.handler.Flush()
}

func (l *loggerImpl) log(ctx context.Context, level Level, msg string, fields ...Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.handler.Enabled(ctx, level.slogLevel()) {
		return
	}

	// skip: runtime.Callers, log, Info/Error 等
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	record := slog.NewRecord(time.Now(), level.slogLevel(), msg, pcs[0])
	if l.namespace != "" {
		record.AddAttrs(slog.String(NamespaceKey, l.namespace))
	}
	record.AddAttrs(l.attrs...)
	for _, f := range fields {
		// clog.Error(nil) 产生空 key 字段，直接丢弃
		if f.Key == "" {
			continue
		}
		record.AddAttrs(f)
	}

	_ = l.handler.Handle(ctx, record)

	if level == FatalLevel {
		l.Flush()
		os.Exit(1)
	}
}

func joinNamespace(base, part string) string {
	switch {
	case part == "":
		return base
	case base == "":
		return part
	default:
		return base + "." + part
	}
}
