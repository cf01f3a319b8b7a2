package autoid

import (
	"github.com/ceyewan/autoid/clog"
	"github.com/ceyewan/autoid/metrics"
)

// Option 插件选项
type Option func(*options)

type options struct {
	logger    clog.Logger
	meter     metrics.Meter
	cacheSize int
}

// WithLogger 设置 Logger，自动添加 "autoid" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("autoid")
		}
	}
}

// WithMeter 设置 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithPlanCacheSize 设置类型字段计划缓存的容量 (默认 1024)
func WithPlanCacheSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.cacheSize = n
		}
	}
}
