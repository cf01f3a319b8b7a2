package clog

import (
	"bytes"
	"strings"
)

// Option 函数式选项，用于配置 Logger 实例
type Option func(*options)

type options struct {
	namespaceParts []string
	buffer         *bytes.Buffer // 测试用缓冲区
}

// WithNamespace 设置日志命名空间，支持多级命名空间
//
//	clog.WithNamespace("order-service", "api") // namespace=order-service.api
func WithNamespace(parts ...string) Option {
	return func(o *options) {
		o.namespaceParts = append(o.namespaceParts, parts...)
	}
}

// WithBuffer 将日志写入给定缓冲区，需配合 Output: "buffer" 使用
func WithBuffer(buf *bytes.Buffer) Option {
	return func(o *options) {
		o.buffer = buf
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) namespace() string {
	return strings.Join(o.namespaceParts, ".")
}
