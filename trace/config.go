package trace

import "github.com/ceyewan/autoid/xerrors"

// Config 链路追踪配置
//
//	Endpoint: OTLP gRPC 接收端 (Tempo/Jaeger)，为空时只在进程内生成 TraceID
//	Sampler: 采样率 [0, 1]
//	Batcher: "batch" (默认) | "simple"
type Config struct {
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Sampler     float64 `mapstructure:"sampler"`
	Batcher     string  `mapstructure:"batcher"`
	Insecure    bool    `mapstructure:"insecure"`
}

// DefaultConfig 返回默认配置
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Endpoint:    "localhost:4317",
		Sampler:     1.0,
		Batcher:     "batch",
		Insecure:    true,
	}
}

func (c *Config) validate() error {
	if c.ServiceName == "" {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "service_name is required")
	}
	if c.Sampler < 0 || c.Sampler > 1 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "sampler must be between 0 and 1, got %v", c.Sampler)
	}
	if c.Batcher != "" && c.Batcher != "batch" && c.Batcher != "simple" {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "batcher must be \"batch\" or \"simple\", got %q", c.Batcher)
	}
	return nil
}
