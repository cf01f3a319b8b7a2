package idgen

import (
	"github.com/ceyewan/autoid/clog"
	"github.com/ceyewan/autoid/connector"
	"github.com/ceyewan/autoid/metrics"
)

// Option 组件初始化选项函数
type Option func(*options)

type options struct {
	logger      clog.Logger
	meter       metrics.Meter
	clock       Clock
	deriver     LocalDeriver
	coordinator Coordinator
	redis       connector.RedisConnector
	etcd        connector.EtcdConnector
}

// WithLogger 设置 Logger，组件会自动添加 "idgen" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("idgen")
		}
	}
}

// WithMeter 设置 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithClock 替换时间源，主要用于测试时钟回拨
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLocalDeriver 替换本地降级推导器
func WithLocalDeriver(d LocalDeriver) Option {
	return func(o *options) {
		o.deriver = d
	}
}

// WithCoordinator 直接指定协调器，优先于 Config.Coordinator
func WithCoordinator(c Coordinator) Option {
	return func(o *options) {
		o.coordinator = c
	}
}

// WithRedisConnector 设置 Redis 连接器 (Coordinator="redis" 时必填)
func WithRedisConnector(conn connector.RedisConnector) Option {
	return func(o *options) {
		o.redis = conn
	}
}

// WithEtcdConnector 设置 Etcd 连接器 (Coordinator="etcd" 时必填)
func WithEtcdConnector(conn connector.EtcdConnector) Option {
	return func(o *options) {
		o.etcd = conn
	}
}

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	if o.meter == nil {
		o.meter = metrics.Discard()
	}
	if o.clock == nil {
		o.clock = SystemClock()
	}
	if o.deriver == nil {
		o.deriver = NewHardwareDeriver()
	}
	return o
}
