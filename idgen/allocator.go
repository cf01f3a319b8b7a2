package idgen

import (
	"context"
	"time"

	"github.com/ceyewan/autoid/clog"
	"github.com/ceyewan/autoid/metrics"
)

// cleanupTimeout 分配失败后释放槽位的时限，与调用方 ctx 无关
const cleanupTimeout = 3 * time.Second

// Source 节点身份的来源
type Source string

const (
	// SourceCoordinated 由协调存储分配，持有租约
	SourceCoordinated Source = "coordinated"
	// SourceStatic 来自配置的固定节点
	SourceStatic Source = "static"
	// SourceFallback 由本机信息推导
	SourceFallback Source = "fallback"
)

// Allocator 两级节点分配：先走协调器，任何失败都降级为本地推导
type Allocator struct {
	coordinator Coordinator
	deriver     LocalDeriver
	timeout     time.Duration
	logger      clog.Logger
	inst        *instruments
}

// NewAllocator 创建分配器。coordinator 为 nil 时总是使用本地推导
//
// timeout 限制单次协调器调用的耗时，<=0 表示只受调用方 ctx 约束。
func NewAllocator(coordinator Coordinator, timeout time.Duration, opts ...Option) (*Allocator, error) {
	o := applyOptions(opts)
	inst, err := newInstruments(o.meter)
	if err != nil {
		return nil, err
	}
	return &Allocator{
		coordinator: coordinator,
		deriver:     o.deriver,
		timeout:     timeout,
		logger:      o.logger,
		inst:        inst,
	}, nil
}

// Allocate 返回节点身份及其来源，从不失败
func (a *Allocator) Allocate(ctx context.Context) (Node, Source) {
	if a.coordinator != nil {
		node, err := a.acquire(ctx)
		if err == nil {
			source := SourceCoordinated
			if _, ok := a.coordinator.(*staticCoordinator); ok {
				source = SourceStatic
			}
			a.record(ctx, source)
			a.logger.Info("node identity allocated",
				clog.String("source", string(source)),
				clog.String("coordinator", a.coordinator.Name()),
				clog.Int64("worker_id", node.WorkerID),
				clog.Int64("datacenter_id", node.DatacenterID),
			)
			return node, source
		}
		a.logger.Warn("coordinated allocation failed, falling back to local derivation",
			clog.String("coordinator", a.coordinator.Name()),
			clog.Error(err),
		)
	}

	node := a.deriver.Derive()
	a.record(ctx, SourceFallback)
	a.logger.Info("node identity derived locally",
		clog.Int64("worker_id", node.WorkerID),
		clog.Int64("datacenter_id", node.DatacenterID),
	)
	return node, SourceFallback
}

func (a *Allocator) acquire(ctx context.Context) (node Node, err error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	// 协调器实现中的 panic 同样降级处理
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()

	node, err = a.coordinator.Acquire(ctx)
	if err != nil {
		return Node{}, err
	}
	if err := node.Validate(); err != nil {
		a.release()
		return Node{}, err
	}
	return node, nil
}

// release 归还无效的槽位。调用方 ctx 此时可能已过期，因此使用独立的 context
func (a *Allocator) release() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := a.coordinator.Release(ctx); err != nil {
		a.logger.Warn("release rejected node slot failed",
			clog.String("coordinator", a.coordinator.Name()),
			clog.Error(err),
		)
	}
}

func (a *Allocator) record(ctx context.Context, source Source) {
	a.inst.allocation.Inc(ctx, metrics.L("source", string(source)))
}
