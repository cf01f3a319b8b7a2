package idgen

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// fakeClock 可控时钟，offset 相对 Epoch
type fakeClock struct {
	mu           sync.Mutex
	now          int64
	autoAdvance  int
	reads        int
	sleepAdvance bool
	sleeps       []time.Duration
}

func newFakeClock(offset int64) *fakeClock {
	return &fakeClock{now: Epoch + offset}
}

// NowMilli autoAdvance > 0 时，同一毫秒被连续读取超过 autoAdvance 次后前进 1ms
func (c *fakeClock) NowMilli() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.autoAdvance > 0 {
		c.reads++
		if c.reads > c.autoAdvance {
			c.now++
			c.reads = 0
		}
	}
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	if c.sleepAdvance {
		c.now += d.Milliseconds()
	}
}

func (c *fakeClock) Set(offset int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch + offset
	c.reads = 0
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// newTestGenerator 新毫秒的起始序列号固定为 1
func newTestGenerator(t *testing.T, node Node, clock Clock) *Generator {
	t.Helper()
	g, err := NewGenerator(node, WithClock(clock))
	require.NoError(t, err)
	g.seed = func() int64 { return 1 }
	return g
}

type fakeDeriver struct {
	node Node
}

func (d fakeDeriver) Derive() Node { return d.node }

type fakeCoordinator struct {
	name      string
	node      Node
	err       error
	delay     time.Duration
	panicVal  any
	keepAlive  chan error
	releaseErr error
	acquired   atomic.Int32
	released   atomic.Int32

	// releaseCtxErr Release 被调用时 ctx.Err() 的值
	releaseCtxErr atomic.Value
}

func (f *fakeCoordinator) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeCoordinator) Acquire(ctx context.Context) (Node, error) {
	f.acquired.Add(1)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return Node{}, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.panicVal != nil {
		panic(f.panicVal)
	}
	return f.node, f.err
}

func (f *fakeCoordinator) KeepAlive(ctx context.Context) <-chan error {
	if f.keepAlive != nil {
		return f.keepAlive
	}
	ch := make(chan error)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

func (f *fakeCoordinator) Release(ctx context.Context) error {
	f.released.Add(1)
	f.releaseCtxErr.Store(fmt.Sprint(ctx.Err()))
	return f.releaseErr
}

// nilRedisConn 已"关闭"的 Redis 连接器，GetClient 总是返回 nil
type nilRedisConn struct{}

func (nilRedisConn) Connect(context.Context) error     { return nil }
func (nilRedisConn) Close() error                      { return nil }
func (nilRedisConn) HealthCheck(context.Context) error { return nil }
func (nilRedisConn) IsHealthy() bool                   { return false }
func (nilRedisConn) Name() string                      { return "closed" }
func (nilRedisConn) GetClient() *redis.Client          { return nil }

// nilEtcdConn 同上，用于 Etcd 协调器
type nilEtcdConn struct{}

func (nilEtcdConn) Connect(context.Context) error     { return nil }
func (nilEtcdConn) Close() error                      { return nil }
func (nilEtcdConn) HealthCheck(context.Context) error { return nil }
func (nilEtcdConn) IsHealthy() bool                   { return false }
func (nilEtcdConn) Name() string                      { return "closed" }
func (nilEtcdConn) GetClient() *clientv3.Client       { return nil }
