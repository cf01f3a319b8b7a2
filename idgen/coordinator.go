package idgen

import "context"

// Coordinator 协调存储：原子地领取一个全局唯一的节点槽位
//
// 一个 Coordinator 实例至多持有一个槽位。
type Coordinator interface {
	// Name 协调器名称，用于日志和指标 ("redis" | "etcd" | "static")
	Name() string

	// Acquire 领取一个空闲槽位。已持有时直接返回当前节点
	Acquire(ctx context.Context) (Node, error)

	// KeepAlive 在后台续约，租约丢失时向通道发送 ErrLeaseLost。
	// ctx 取消或 Release 后停止续约且不发送错误。续约停止后通道关闭
	KeepAlive(ctx context.Context) <-chan error

	// Release 停止续约并释放槽位，幂等
	Release(ctx context.Context) error
}

// staticCoordinator 使用配置中固定的节点，不与任何存储交互
type staticCoordinator struct {
	node Node
}

// NewStaticCoordinator 返回固定节点的协调器
func NewStaticCoordinator(node Node) Coordinator {
	return &staticCoordinator{node: node}
}

func (c *staticCoordinator) Name() string { return "static" }

func (c *staticCoordinator) Acquire(context.Context) (Node, error) {
	if err := c.node.Validate(); err != nil {
		return Node{}, err
	}
	return c.node, nil
}

// KeepAlive 静态节点无需续约，通道在 ctx 结束时关闭
func (c *staticCoordinator) KeepAlive(ctx context.Context) <-chan error {
	ch := make(chan error)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

func (c *staticCoordinator) Release(context.Context) error { return nil }
