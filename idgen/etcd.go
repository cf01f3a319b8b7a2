package idgen

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/autoid/clog"
	"github.com/ceyewan/autoid/connector"
	"github.com/ceyewan/autoid/xerrors"
)

type etcdCoordinator struct {
	conn   connector.EtcdConnector
	prefix string
	ttl    time.Duration
	logger clog.Logger

	mu      sync.Mutex
	token   string
	key     string
	node    Node
	leaseID clientv3.LeaseID
	cancel  context.CancelFunc
}

// NewEtcdCoordinator 创建基于 Etcd 的协调器
//
// 槽位键与 Lease 绑定，Lease 过期或被撤销时键自动删除。
func NewEtcdCoordinator(conn connector.EtcdConnector, cfg *Config, opts ...Option) (Coordinator, error) {
	if conn == nil {
		return nil, xerrors.WithCode(ErrConnectorNil, "etcd_connector_required")
	}
	if cfg == nil {
		return nil, xerrors.WithCode(ErrInvalidInput, "config_nil")
	}
	cfg.setDefaults()
	o := applyOptions(opts)

	return &etcdCoordinator{
		conn:   conn,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL,
		logger: o.logger.With(clog.String("coordinator", "etcd")),
		token:  uuid.NewString(),
	}, nil
}

func (c *etcdCoordinator) Name() string { return "etcd" }

// ttlSeconds Etcd Lease 以秒为单位，向上取整
func (c *etcdCoordinator) ttlSeconds() int64 {
	return int64(math.Ceil(c.ttl.Seconds()))
}

// Acquire 实现 Coordinator：Grant Lease 后从随机起点逐个 CAS 抢占槽位
func (c *etcdCoordinator) Acquire(ctx context.Context) (Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.leaseID != 0 {
		return c.node, nil
	}

	client := c.conn.GetClient()
	if client == nil {
		return Node{}, xerrors.WithCode(ErrConnectorNil, "etcd_client_nil")
	}

	lease, err := client.Grant(ctx, c.ttlSeconds())
	if err != nil {
		return Node{}, xerrors.Wrap(err, "etcd grant lease failed")
	}

	offset := rand.IntN(SlotCount)
	for i := 0; i < SlotCount; i++ {
		slot := (offset + i) % SlotCount
		key := fmt.Sprintf("%s:%d", c.prefix, slot)

		// key 不存在（ModRevision == 0）时才写入
		resp, err := client.Txn(ctx).
			If(clientv3.Compare(clientv3.ModRevision(key), "=", 0)).
			Then(clientv3.OpPut(key, c.token, clientv3.WithLease(lease.ID))).
			Commit()
		if err != nil {
			c.revoke(client, lease.ID)
			return Node{}, xerrors.Wrapf(err, "etcd txn on %s failed", key)
		}
		if !resp.Succeeded {
			continue
		}

		node, err := NodeFromSlot(slot)
		if err != nil {
			c.revoke(client, lease.ID)
			return Node{}, err
		}
		c.node = node
		c.key = key
		c.leaseID = lease.ID

		c.logger.Info("node slot acquired",
			clog.String("key", key),
			clog.Int64("worker_id", node.WorkerID),
			clog.Int64("datacenter_id", node.DatacenterID),
			clog.Int64("lease_id", int64(lease.ID)),
		)
		return node, nil
	}

	c.revoke(client, lease.ID)
	return Node{}, xerrors.WithCode(ErrNoAvailableSlot, "etcd_slots_exhausted")
}

func (c *etcdCoordinator) revoke(client *clientv3.Client, id clientv3.LeaseID) {
	ctx, cancel := context.WithTimeout(context.Background(), c.ttl)
	defer cancel()
	if _, err := client.Revoke(ctx, id); err != nil {
		c.logger.Warn("etcd revoke lease failed", clog.Int64("lease_id", int64(id)), clog.Error(err))
	}
}

// KeepAlive 使用 clientv3 的 KeepAlive 续约，响应通道关闭即视为租约丢失
func (c *etcdCoordinator) KeepAlive(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	if ctx.Err() != nil {
		close(errCh)
		return errCh
	}

	c.mu.Lock()
	client := c.conn.GetClient()
	if c.leaseID == 0 || client == nil {
		c.mu.Unlock()
		errCh <- xerrors.Wrap(ErrLeaseLost, "etcd slot not held")
		close(errCh)
		return errCh
	}
	kaCtx, cancel := context.WithCancel(ctx)
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	leaseID, key := c.leaseID, c.key
	c.mu.Unlock()

	go func() {
		defer close(errCh)
		defer cancel()
		kaCh, err := client.KeepAlive(kaCtx, leaseID)
		if err != nil {
			if kaCtx.Err() == nil {
				errCh <- xerrors.Wrapf(ErrLeaseLost, "etcd keep alive %s: %v", key, err)
			}
			return
		}

		for {
			select {
			case <-kaCtx.Done():
				return
			case resp, ok := <-kaCh:
				if ok && resp != nil {
					continue
				}
				if kaCtx.Err() != nil {
					return
				}
				errCh <- xerrors.Wrapf(ErrLeaseLost, "etcd lease for %s expired", key)
				return
			}
		}
	}()

	return errCh
}

// Release 停止续约并撤销 Lease，槽位键随之删除
func (c *etcdCoordinator) Release(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.leaseID == 0 {
		return nil
	}
	leaseID := c.leaseID
	c.leaseID = 0

	client := c.conn.GetClient()
	if client == nil {
		return xerrors.WithCode(ErrConnectorNil, "etcd_client_nil")
	}
	if _, err := client.Revoke(ctx, leaseID); err != nil {
		return xerrors.Wrapf(err, "revoke etcd lease for %s", c.key)
	}

	c.logger.Info("node slot released", clog.String("key", c.key), clog.Int64("lease_id", int64(leaseID)))
	return nil
}
