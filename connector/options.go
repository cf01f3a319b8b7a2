package connector

import (
	"context"

	"github.com/ceyewan/autoid/clog"
	"github.com/ceyewan/autoid/metrics"
)

type options struct {
	logger  clog.Logger
	meter   metrics.Meter
	tracing bool
}

// Option 配置连接器的选项
type Option func(*options)

// WithLogger 设置日志记录器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("connector")
		}
	}
}

// WithMeter 设置指标收集器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithTracing 为底层客户端挂载 OpenTelemetry 链路追踪（Redis: redisotel，GORM: otelgorm）。
// 使用全局 TracerProvider，未配置时为 noop
func WithTracing() Option {
	return func(o *options) {
		o.tracing = true
	}
}

func (o *options) applyDefaults() {
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	if o.meter == nil {
		o.meter = metrics.Discard()
	}
}

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	o.applyDefaults()
	return o
}

// connStats 所有连接器共用的连接指标
type connStats struct {
	attempts metrics.Counter
	active   metrics.Gauge
	labels   []metrics.Label
}

func newConnStats(meter metrics.Meter, kind, name string) (*connStats, error) {
	attempts, err := meter.Counter("connector_connect_attempts_total", "Number of connector connect attempts")
	if err != nil {
		return nil, err
	}
	active, err := meter.Gauge("connector_active_connections", "Number of active connections")
	if err != nil {
		return nil, err
	}
	return &connStats{
		attempts: attempts,
		active:   active,
		labels:   []metrics.Label{metrics.L("type", kind), metrics.L("name", name)},
	}, nil
}

func (s *connStats) connected(ctx context.Context, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	s.attempts.Inc(ctx, append(s.labels, metrics.L("result", result))...)
	if err == nil {
		s.active.Set(ctx, 1, s.labels...)
	}
}

func (s *connStats) closed(ctx context.Context) {
	s.active.Set(ctx, 0, s.labels...)
}
