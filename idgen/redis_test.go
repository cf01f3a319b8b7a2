package idgen

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/autoid/testkit"
)

func TestRedisCoordinatorIntegration(t *testing.T) {
	kit := testkit.NewKit(t)
	conn := testkit.NewRedisConnector(t)
	client := conn.GetClient()

	newCoordinator := func(prefix string, ttl time.Duration) *redisCoordinator {
		c, err := NewRedisCoordinator(conn, &Config{KeyPrefix: prefix, TTL: ttl}, WithLogger(kit.Logger))
		require.NoError(t, err)
		return c.(*redisCoordinator)
	}

	t.Run("acquire distinct slots and release", func(t *testing.T) {
		prefix := "idgen:" + testkit.NewID()
		seen := map[Node]bool{}
		var coordinators []*redisCoordinator
		for i := 0; i < 16; i++ {
			c := newCoordinator(prefix, 30*time.Second)
			node, err := c.Acquire(kit.Ctx)
			require.NoError(t, err)
			require.False(t, seen[node], "slot %s handed out twice", node)
			seen[node] = true
			coordinators = append(coordinators, c)

			again, err := c.Acquire(kit.Ctx)
			require.NoError(t, err)
			assert.Equal(t, node, again)
		}

		c := coordinators[0]
		val, err := client.Get(kit.Ctx, c.key).Result()
		require.NoError(t, err)
		assert.Equal(t, c.token, val)

		require.NoError(t, c.Release(kit.Ctx))
		require.NoError(t, c.Release(kit.Ctx))
		exists, err := client.Exists(kit.Ctx, c.key).Result()
		require.NoError(t, err)
		assert.Equal(t, int64(0), exists)
	})

	t.Run("exhausted", func(t *testing.T) {
		prefix := "idgen:" + testkit.NewID()
		for slot := 0; slot < SlotCount; slot++ {
			require.NoError(t, client.Set(kit.Ctx, fmt.Sprintf("%s:%d", prefix, slot), "other", time.Minute).Err())
		}

		_, err := newCoordinator(prefix, 30*time.Second).Acquire(kit.Ctx)
		assert.ErrorIs(t, err, ErrNoAvailableSlot)

		comp, err := New(kit.Ctx, &Config{Coordinator: "redis", KeyPrefix: prefix},
			WithRedisConnector(conn), WithLocalDeriver(fakeDeriver{node: fallbackNode}))
		require.NoError(t, err)
		assert.Equal(t, SourceFallback, comp.Source())
		assert.Equal(t, fallbackNode, comp.Node())
	})

	t.Run("release does not delete foreign slot", func(t *testing.T) {
		c := newCoordinator("idgen:"+testkit.NewID(), 30*time.Second)
		_, err := c.Acquire(kit.Ctx)
		require.NoError(t, err)

		require.NoError(t, client.Set(kit.Ctx, c.key, "someone-else", time.Minute).Err())
		require.NoError(t, c.Release(kit.Ctx))

		val, err := client.Get(kit.Ctx, c.key).Result()
		require.NoError(t, err)
		assert.Equal(t, "someone-else", val)
	})

	t.Run("cancelled acquire sweeps own orphaned slots", func(t *testing.T) {
		prefix := "idgen:" + testkit.NewID()
		c := newCoordinator(prefix, 30*time.Second)
		orphan := fmt.Sprintf("%s:%d", prefix, 5)
		foreign := fmt.Sprintf("%s:%d", prefix, 9)
		require.NoError(t, client.Set(kit.Ctx, orphan, c.token, time.Minute).Err())
		require.NoError(t, client.Set(kit.Ctx, foreign, "someone-else", time.Minute).Err())

		ctx, cancel := context.WithCancel(kit.Ctx)
		cancel()
		_, err := c.Acquire(ctx)
		require.Error(t, err)
		assert.False(t, c.held)

		for slot := 0; slot < SlotCount; slot++ {
			val, err := client.Get(kit.Ctx, fmt.Sprintf("%s:%d", prefix, slot)).Result()
			if err == nil {
				assert.NotEqual(t, c.token, val, "slot %d still owned after sweep", slot)
			}
		}
		exists, err := client.Exists(kit.Ctx, foreign).Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), exists)
	})

	t.Run("keep alive renews lease", func(t *testing.T) {
		c := newCoordinator("idgen:"+testkit.NewID(), time.Second)
		_, err := c.Acquire(kit.Ctx)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(kit.Ctx)
		errCh := c.KeepAlive(ctx)

		time.Sleep(2500 * time.Millisecond)
		val, err := client.Get(kit.Ctx, c.key).Result()
		require.NoError(t, err)
		assert.Equal(t, c.token, val)

		cancel()
		_, ok := <-errCh
		assert.False(t, ok, "channel closes without error after cancel")
		require.NoError(t, c.Release(kit.Ctx))
	})

	t.Run("keep alive reports lost lease", func(t *testing.T) {
		c := newCoordinator("idgen:"+testkit.NewID(), time.Second)
		_, err := c.Acquire(kit.Ctx)
		require.NoError(t, err)

		errCh := c.KeepAlive(kit.Ctx)
		require.NoError(t, client.Del(kit.Ctx, c.key).Err())

		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, ErrLeaseLost)
		case <-time.After(5 * time.Second):
			t.Fatal("lease loss not detected")
		}
	})

	t.Run("expired slots are reused", func(t *testing.T) {
		prefix := "idgen:" + testkit.NewID()
		for i := 0; i < SlotCount; i++ {
			_, err := newCoordinator(prefix, time.Second).Acquire(kit.Ctx)
			require.NoError(t, err)
		}
		_, err := newCoordinator(prefix, time.Second).Acquire(kit.Ctx)
		require.ErrorIs(t, err, ErrNoAvailableSlot)

		time.Sleep(1500 * time.Millisecond)
		node, err := newCoordinator(prefix, time.Second).Acquire(kit.Ctx)
		require.NoError(t, err)
		assert.NoError(t, node.Validate())
	})

	t.Run("component holds and releases slot", func(t *testing.T) {
		prefix := "idgen:" + testkit.NewID()
		comp, err := New(kit.Ctx, &Config{Coordinator: "redis", KeyPrefix: prefix, TTL: 3 * time.Second},
			WithRedisConnector(conn), WithLogger(kit.Logger), WithMeter(kit.Meter))
		require.NoError(t, err)
		assert.Equal(t, SourceCoordinated, comp.Source())

		key := fmt.Sprintf("%s:%d", prefix, comp.Node().Slot())
		exists, err := client.Exists(kit.Ctx, key).Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), exists)

		parts := Decompose(comp.NextID())
		assert.Equal(t, comp.Node(), parts.Node())

		require.NoError(t, comp.Close(kit.Ctx))
		exists, err = client.Exists(kit.Ctx, key).Result()
		require.NoError(t, err)
		assert.Equal(t, int64(0), exists)
	})
}
