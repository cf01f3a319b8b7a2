// Package idgen 提供分布式 Snowflake ID 生成能力。
//
// ID 位结构 (64 bit):
//
//	0 | 41 bit 时间戳 | 3 bit 时钟序列 | 4 bit 数据中心 | 3 bit 工作节点 | 12 bit 序列号
//
// 节点身份 (WorkerID, DatacenterID) 共 128 个槽位，分配分两级：
//   - 协调器 (Redis / Etcd / static)：原子地领取一个空闲槽位，Redis/Etcd 槽位带租约，
//     每 TTL/3 续约一次，Close 时释放
//   - 本地推导：协调器不可用时，由网卡 MAC 与进程号确定性地推导，不会失败
//
// 时钟回拨不超过 5ms 时等待 2 倍偏移后重试，仍落后或回拨更大时递增 3 bit 时钟序列，
// 不会返回错误。
//
// 基本使用：
//
//	redisConn, _ := connector.NewRedis(&cfg.Redis, connector.WithLogger(logger))
//	_ = redisConn.Connect(ctx)
//	defer redisConn.Close()
//
//	gen, err := idgen.New(ctx, &idgen.Config{Coordinator: "redis"},
//	    idgen.WithRedisConnector(redisConn),
//	    idgen.WithLogger(logger),
//	    idgen.WithMeter(meter),
//	)
//	if err != nil {
//	    return err
//	}
//	defer gen.Close(ctx)
//
//	id := gen.NextID()
package idgen

import (
	"context"
	"fmt"
	"sync"

	"github.com/ceyewan/autoid/clog"
	"github.com/ceyewan/autoid/xerrors"
)

// Component 带节点分配与租约管理的生成器
type Component struct {
	*Generator

	source      Source
	coordinator Coordinator
	logger      clog.Logger
	leaseLost   chan error
	cancel      context.CancelFunc
	closeOnce   sync.Once
	closeErr    error
}

// New 根据配置创建协调器、分配节点身份并构造生成器
//
// 协调器失败不会导致 New 失败，只会降级为本地推导的节点；
// 只有配置错误或缺少所需连接器时返回错误。
func New(ctx context.Context, cfg *Config, opts ...Option) (*Component, error) {
	if cfg == nil {
		return nil, xerrors.WithCode(ErrInvalidInput, "config_nil")
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	coordinator, err := newCoordinator(cfg, o, opts)
	if err != nil {
		return nil, err
	}

	allocator, err := NewAllocator(coordinator, cfg.AllocateTimeout, opts...)
	if err != nil {
		return nil, err
	}
	node, source := allocator.Allocate(ctx)

	gen, err := NewGenerator(node, opts...)
	if err != nil {
		if source == SourceCoordinated {
			_ = coordinator.Release(ctx)
		}
		return nil, err
	}

	c := &Component{
		Generator:   gen,
		source:      source,
		coordinator: coordinator,
		logger:      o.logger,
		leaseLost:   make(chan error, 1),
	}

	if source == SourceCoordinated {
		kaCtx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		// KeepAlive 在返回前启动，Close 之后不会再上报租约丢失
		go c.watchLease(kaCtx, coordinator.KeepAlive(kaCtx))
	}

	return c, nil
}

func newCoordinator(cfg *Config, o *options, opts []Option) (Coordinator, error) {
	if o.coordinator != nil {
		return o.coordinator, nil
	}
	switch cfg.Coordinator {
	case CoordinatorRedis:
		if o.redis == nil {
			return nil, xerrors.WithCode(ErrConnectorNil, "redis_connector_required")
		}
		return NewRedisCoordinator(o.redis, cfg, opts...)
	case CoordinatorEtcd:
		if o.etcd == nil {
			return nil, xerrors.WithCode(ErrConnectorNil, "etcd_connector_required")
		}
		return NewEtcdCoordinator(o.etcd, cfg, opts...)
	case CoordinatorStatic:
		return NewStaticCoordinator(cfg.staticNode()), nil
	default:
		return nil, nil
	}
}

func (c *Component) watchLease(ctx context.Context, keepAlive <-chan error) {
	err, ok := <-keepAlive
	if !ok || err == nil || ctx.Err() != nil {
		return
	}
	c.logger.Error("node lease lost, identity is no longer reserved",
		clog.String("coordinator", c.coordinator.Name()),
		clog.String("node", c.Node().String()),
		clog.Error(err),
	)
	select {
	case c.leaseLost <- err:
	default:
	}
}

// Source 返回节点身份来源
func (c *Component) Source() Source {
	return c.source
}

// LeaseLost 租约丢失时收到一个错误 (ErrLeaseLost)。
// 生成器仍以原身份继续工作，是否重启由调用方决定
func (c *Component) LeaseLost() <-chan error {
	return c.leaseLost
}

// Close 停止续约并释放协调器槽位，幂等
func (c *Component) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		if c.source == SourceCoordinated {
			c.closeErr = c.coordinator.Release(ctx)
		}
	})
	return c.closeErr
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return xerrors.Wrap(err, "coordinator panicked")
	}
	return fmt.Errorf("coordinator panicked: %v", r)
}
