package idgen

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/autoid/clog"
	"github.com/ceyewan/autoid/connector"
	"github.com/ceyewan/autoid/xerrors"
)

// acquireScript 从 offset 开始环形遍历全部槽位，原子地占用第一个空闲槽位
// 返回 {workerId, datacenterId}，全部占用时返回空数组
var acquireScript = redis.NewScript(`
local prefix = KEYS[1]
local token = ARGV[1]
local ttl = tonumber(ARGV[2])
local slots = tonumber(ARGV[3])
local offset = tonumber(ARGV[4])
local workers = tonumber(ARGV[5])

for i = 0, slots - 1 do
	local slot = (offset + i) % slots
	if redis.call("SET", prefix .. ":" .. slot, token, "NX", "PX", ttl) then
		return {slot % workers, math.floor(slot / workers)}
	end
end
return {}
`)

// renewScript 仅当槽位仍归属于 token 时续期
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// releaseScript 仅当槽位仍归属于 token 时删除
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// sweepScript 删除所有仍归属于 token 的槽位，返回删除数量
var sweepScript = redis.NewScript(`
local prefix = KEYS[1]
local token = ARGV[1]
local slots = tonumber(ARGV[2])
local n = 0

for i = 0, slots - 1 do
	local key = prefix .. ":" .. i
	if redis.call("GET", key) == token then
		redis.call("DEL", key)
		n = n + 1
	end
end
return n
`)

type redisCoordinator struct {
	conn   connector.RedisConnector
	prefix string
	ttl    time.Duration
	logger clog.Logger

	mu     sync.Mutex
	token  string
	key    string
	node   Node
	held   bool
	cancel context.CancelFunc
}

// NewRedisCoordinator 创建基于 Redis 的协调器
//
// 槽位键为 "<KeyPrefix>:<slot>"，值为本实例的 UUID，过期时间为 TTL。
func NewRedisCoordinator(conn connector.RedisConnector, cfg *Config, opts ...Option) (Coordinator, error) {
	if conn == nil {
		return nil, xerrors.WithCode(ErrConnectorNil, "redis_connector_required")
	}
	if cfg == nil {
		return nil, xerrors.WithCode(ErrInvalidInput, "config_nil")
	}
	cfg.setDefaults()
	o := applyOptions(opts)

	return &redisCoordinator{
		conn:   conn,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL,
		logger: o.logger.With(clog.String("coordinator", "redis")),
		token:  uuid.NewString(),
	}, nil
}

func (c *redisCoordinator) Name() string { return "redis" }

// Acquire 实现 Coordinator，随机起点减少并发冲突
func (c *redisCoordinator) Acquire(ctx context.Context) (Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.held {
		return c.node, nil
	}

	client := c.conn.GetClient()
	if client == nil {
		return Node{}, xerrors.WithCode(ErrConnectorNil, "redis_client_nil")
	}

	offset := rand.IntN(SlotCount)
	res, err := acquireScript.Run(ctx, client, []string{c.prefix},
		c.token, c.ttl.Milliseconds(), SlotCount, offset, MaxWorkerID+1).Int64Slice()
	if err != nil {
		// 超时或取消时脚本可能已在服务端占用了槽位
		if ctx.Err() != nil {
			c.sweep(client)
		}
		return Node{}, xerrors.Wrap(err, "redis acquire script failed")
	}
	if len(res) != 2 {
		return Node{}, xerrors.WithCode(ErrNoAvailableSlot, "redis_slots_exhausted")
	}

	node := Node{WorkerID: res[0], DatacenterID: res[1]}
	if err := node.Validate(); err != nil {
		return Node{}, err
	}

	c.node = node
	c.key = fmt.Sprintf("%s:%d", c.prefix, node.Slot())
	c.held = true

	c.logger.Info("node slot acquired",
		clog.String("key", c.key),
		clog.Int64("worker_id", node.WorkerID),
		clog.Int64("datacenter_id", node.DatacenterID),
		clog.Duration("ttl", c.ttl),
	)
	return node, nil
}

// sweep 使用独立的 context 清理本实例遗留的槽位，失败只记录日志，槽位最终随 TTL 过期
func (c *redisCoordinator) sweep(client *redis.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	n, err := sweepScript.Run(ctx, client, []string{c.prefix}, c.token, SlotCount).Int64()
	if err != nil {
		c.logger.Warn("sweep orphaned node slot failed", clog.Error(err))
		return
	}
	if n > 0 {
		c.logger.Info("orphaned node slot swept", clog.Int64("count", n))
	}
}

// KeepAlive 每 TTL/3 续期一次；续期结果为 0 表示槽位已过期或被占用。
// 网络错误会在下个周期重试，直到距上次成功续期超过 TTL
func (c *redisCoordinator) KeepAlive(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	if ctx.Err() != nil {
		close(errCh)
		return errCh
	}

	c.mu.Lock()
	if !c.held {
		c.mu.Unlock()
		errCh <- xerrors.Wrap(ErrLeaseLost, "redis slot not held")
		close(errCh)
		return errCh
	}
	kaCtx, cancel := context.WithCancel(ctx)
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	key, token := c.key, c.token
	c.mu.Unlock()

	go func() {
		defer close(errCh)
		defer cancel()
		ticker := time.NewTicker(c.ttl / 3)
		defer ticker.Stop()
		lastRenewed := time.Now()

		for {
			select {
			case <-kaCtx.Done():
				return
			case <-ticker.C:
			}

			client := c.conn.GetClient()
			if client == nil {
				if kaCtx.Err() == nil {
					errCh <- xerrors.Wrap(ErrLeaseLost, "redis client closed")
				}
				return
			}

			renewed, err := renewScript.Run(kaCtx, client, []string{key}, token, c.ttl.Milliseconds()).Int64()
			if err != nil {
				if kaCtx.Err() != nil {
					return
				}
				c.logger.Warn("renew node slot failed", clog.String("key", key), clog.Error(err))
				if time.Since(lastRenewed) > c.ttl {
					errCh <- xerrors.Wrapf(ErrLeaseLost, "redis renew failing for %s: %v", time.Since(lastRenewed), err)
					return
				}
				continue
			}
			if renewed == 0 {
				if kaCtx.Err() != nil {
					return
				}
				errCh <- xerrors.Wrapf(ErrLeaseLost, "redis slot %s expired or taken", key)
				return
			}
			lastRenewed = time.Now()
		}
	}()

	return errCh
}

// Release 停止续约并删除自己的槽位
func (c *redisCoordinator) Release(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if !c.held {
		return nil
	}
	c.held = false

	client := c.conn.GetClient()
	if client == nil {
		return xerrors.WithCode(ErrConnectorNil, "redis_client_nil")
	}
	if err := releaseScript.Run(ctx, client, []string{c.key}, c.token).Err(); err != nil {
		return xerrors.Wrapf(err, "release redis slot %s", c.key)
	}

	c.logger.Info("node slot released", clog.String("key", c.key))
	return nil
}
