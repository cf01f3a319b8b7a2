package metrics

// Config 指标系统的配置
//
// 典型配置示例（YAML）：
//
//	metrics:
//	  enabled: true
//	  service_name: "order-service"
//	  version: "v1.2.3"
//	  port: 9090
//	  path: "/metrics"
type Config struct {
	// Enabled 为 false 时 New 返回 noop Meter
	Enabled bool `mapstructure:"enabled"`

	// ServiceName 作为 OpenTelemetry Resource 的 service.name
	ServiceName string `mapstructure:"service_name"`

	// Version 作为 OpenTelemetry Resource 的 service.version
	Version string `mapstructure:"version"`

	// Port 大于 0 时启动独立的 HTTP 服务器暴露 Prometheus 指标
	Port int `mapstructure:"port"`

	// Path Prometheus 指标路径，默认 "/metrics"
	Path string `mapstructure:"path"`
}

// NewDevDefaultConfig 返回开发/测试用配置：启用指标但不启动 HTTP 服务器
func NewDevDefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     "dev",
		Path:        "/metrics",
	}
}

func (c *Config) setDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "autoid"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
}
