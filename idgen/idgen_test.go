package idgen

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/autoid/clog"
	"github.com/ceyewan/autoid/testkit"
)

func TestConfigDefaultsAndValidation(t *testing.T) {
	cfg := &Config{}
	cfg.setDefaults()
	require.NoError(t, cfg.validate())
	assert.Equal(t, CoordinatorNone, cfg.Coordinator)
	assert.Equal(t, "autoid:idgen:node", cfg.KeyPrefix)
	assert.Equal(t, 30*time.Second, cfg.TTL)
	assert.Equal(t, 3*time.Second, cfg.AllocateTimeout)

	tests := []Config{
		{Coordinator: "zookeeper"},
		{Coordinator: "static", WorkerID: 8},
		{Coordinator: "redis", TTL: 500 * time.Millisecond},
		{Coordinator: "etcd", AllocateTimeout: -time.Second},
	}
	for _, c := range tests {
		c.setDefaults()
		assert.ErrorIs(t, c.validate(), ErrInvalidInput, "%+v", c)
	}

	upper := &Config{Coordinator: " Redis "}
	upper.setDefaults()
	assert.Equal(t, CoordinatorRedis, upper.Coordinator)
}

func TestNewRejectsBadInput(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = New(ctx, &Config{Coordinator: "redis"})
	assert.ErrorIs(t, err, ErrConnectorNil)

	_, err = New(ctx, &Config{Coordinator: "etcd"})
	assert.ErrorIs(t, err, ErrConnectorNil)
}

func TestNewStatic(t *testing.T) {
	kit := testkit.NewKit(t)
	c, err := New(kit.Ctx, &Config{Coordinator: "static", WorkerID: 2, DatacenterID: 5},
		WithLogger(kit.Logger), WithMeter(kit.Meter))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	assert.Equal(t, SourceStatic, c.Source())
	assert.Equal(t, Node{WorkerID: 2, DatacenterID: 5}, c.Node())

	parts := Decompose(c.NextID())
	assert.Equal(t, int64(2), parts.WorkerID)
	assert.Equal(t, int64(5), parts.DatacenterID)
}

func TestNewWithoutCoordinatorUsesFallback(t *testing.T) {
	c, err := New(context.Background(), &Config{}, WithLocalDeriver(fakeDeriver{node: fallbackNode}))
	require.NoError(t, err)

	assert.Equal(t, SourceFallback, c.Source())
	assert.Equal(t, fallbackNode, c.Node())
	require.NoError(t, c.Close(context.Background()))
}

func TestComponentLeaseLifecycle(t *testing.T) {
	lost := make(chan error, 1)
	fc := &fakeCoordinator{node: Node{WorkerID: 7, DatacenterID: 1}, keepAlive: lost}

	c, err := New(context.Background(), &Config{}, WithCoordinator(fc))
	require.NoError(t, err)
	assert.Equal(t, SourceCoordinated, c.Source())
	assert.Equal(t, fc.node, c.Node())

	lost <- ErrLeaseLost
	select {
	case err := <-c.LeaseLost():
		assert.ErrorIs(t, err, ErrLeaseLost)
	case <-time.After(5 * time.Second):
		t.Fatal("lease loss was not reported")
	}

	// 租约丢失后仍可继续生成
	assert.Positive(t, c.NextID())

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, int32(1), fc.released.Load())
}

func TestComponentFallbackDoesNotRelease(t *testing.T) {
	fc := &fakeCoordinator{err: ErrNoAvailableSlot}
	c, err := New(context.Background(), &Config{}, WithCoordinator(fc),
		WithLocalDeriver(fakeDeriver{node: fallbackNode}))
	require.NoError(t, err)

	assert.Equal(t, SourceFallback, c.Source())
	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, int32(0), fc.released.Load())
}

// heldRedisCoordinator 已持有槽位、但连接器已关闭的 Redis 协调器
func heldRedisCoordinator() *redisCoordinator {
	return &redisCoordinator{
		conn:   nilRedisConn{},
		prefix: "autoid:test",
		ttl:    time.Second,
		logger: clog.Discard(),
		token:  "token",
		node:   Node{WorkerID: 1, DatacenterID: 2},
		key:    "autoid:test:17",
		held:   true,
	}
}

func TestCloseRightAfterNewReportsNoLeaseLoss(t *testing.T) {
	for i := 0; i < 50; i++ {
		c, err := New(context.Background(), &Config{}, WithCoordinator(heldRedisCoordinator()))
		require.NoError(t, err)
		require.Equal(t, SourceCoordinated, c.Source())

		// 连接器已关闭，释放失败是预期的
		_ = c.Close(context.Background())

		select {
		case err := <-c.LeaseLost():
			t.Fatalf("iteration %d: lease loss reported after Close: %v", i, err)
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestKeepAliveWithDoneContextSendsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	etcd := &etcdCoordinator{conn: nilEtcdConn{}, ttl: time.Second, logger: clog.Discard(), leaseID: 42}
	for _, c := range []Coordinator{heldRedisCoordinator(), etcd} {
		t.Run(c.Name(), func(t *testing.T) {
			err, ok := <-c.KeepAlive(ctx)
			assert.False(t, ok)
			assert.NoError(t, err)
		})
	}
}
