package idgen

import (
	"strings"
	"time"

	"github.com/ceyewan/autoid/xerrors"
)

// 协调器类型
const (
	CoordinatorRedis  = "redis"
	CoordinatorEtcd   = "etcd"
	CoordinatorStatic = "static"
	CoordinatorNone   = "none"
)

// Config 组件配置
//
// 典型配置示例（YAML）：
//
//	idgen:
//	  coordinator: "redis"
//	  key_prefix: "autoid:idgen:node"
//	  ttl: 30s
//	  allocate_timeout: 3s
type Config struct {
	// Coordinator 协调器类型: "redis" | "etcd" | "static" | "none" (默认 "none"，仅本地推导)
	Coordinator string `mapstructure:"coordinator" json:"coordinator" yaml:"coordinator"`

	// KeyPrefix Redis/Etcd 槽位键前缀 (默认 "autoid:idgen:node")
	KeyPrefix string `mapstructure:"key_prefix" json:"key_prefix" yaml:"key_prefix"`

	// TTL 槽位租约时长 (默认 30s，最小 1s)，每 TTL/3 续约一次
	TTL time.Duration `mapstructure:"ttl" json:"ttl" yaml:"ttl"`

	// AllocateTimeout 协调器分配的超时时间 (默认 3s)，超时后降级为本地推导
	AllocateTimeout time.Duration `mapstructure:"allocate_timeout" json:"allocate_timeout" yaml:"allocate_timeout"`

	// WorkerID/DatacenterID 当 Coordinator="static" 时使用
	WorkerID     int64 `mapstructure:"worker_id" json:"worker_id" yaml:"worker_id"`
	DatacenterID int64 `mapstructure:"datacenter_id" json:"datacenter_id" yaml:"datacenter_id"`
}

func (c *Config) setDefaults() {
	c.Coordinator = strings.ToLower(strings.TrimSpace(c.Coordinator))
	if c.Coordinator == "" {
		c.Coordinator = CoordinatorNone
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "autoid:idgen:node"
	}
	if c.TTL == 0 {
		c.TTL = 30 * time.Second
	}
	if c.AllocateTimeout == 0 {
		c.AllocateTimeout = 3 * time.Second
	}
}

func (c *Config) validate() error {
	switch c.Coordinator {
	case CoordinatorRedis, CoordinatorEtcd, CoordinatorNone:
	case CoordinatorStatic:
		if err := c.staticNode().Validate(); err != nil {
			return err
		}
	default:
		return xerrors.Wrapf(ErrInvalidInput, "unsupported coordinator %q", c.Coordinator)
	}
	if c.TTL < time.Second {
		return xerrors.Wrapf(ErrInvalidInput, "ttl %s must be at least 1s", c.TTL)
	}
	if c.AllocateTimeout < 0 {
		return xerrors.Wrap(ErrInvalidInput, "allocate_timeout must not be negative")
	}
	return nil
}

func (c *Config) staticNode() Node {
	return Node{WorkerID: c.WorkerID, DatacenterID: c.DatacenterID}
}
