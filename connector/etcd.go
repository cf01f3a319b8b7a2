package connector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/autoid/clog"
	"github.com/ceyewan/autoid/xerrors"
)

const etcdHealthKey = "health-check"

type etcdConnector struct {
	cfg     *EtcdConfig
	client  *clientv3.Client
	logger  clog.Logger
	stats   *connStats
	healthy atomic.Bool
	closed  atomic.Bool
	mu      sync.Mutex
}

// NewEtcd 创建 Etcd 连接器
//
// clientv3.New 不会阻塞等待连接建立（未设置 WithBlock），Connect 时通过一次 Get 验证可用性。
func NewEtcd(cfg *EtcdConfig, opts ...Option) (EtcdConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "etcd config is nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrapf(err, "invalid etcd config")
	}

	opt := applyOptions(opts)
	stats, err := newConnStats(opt.meter, "etcd", cfg.Name)
	if err != nil {
		return nil, xerrors.Wrap(err, "create etcd connector metrics")
	}

	c := &etcdConnector{
		cfg:    cfg,
		logger: opt.logger.With(clog.String("connector", "etcd"), clog.String("name", cfg.Name)),
		stats:  stats,
	}

	clientConfig := clientv3.Config{
		Endpoints:            cfg.Endpoints,
		DialTimeout:          c.dialTimeout(),
		DialKeepAliveTime:    cfg.KeepAliveTime,
		DialKeepAliveTimeout: cfg.KeepAliveTimeout,
	}
	if cfg.Username != "" && cfg.Password != "" {
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	client, err := clientv3.New(clientConfig)
	if err != nil {
		return nil, xerrors.Wrapf(ErrConnection, "etcd connector[%s]: %v", cfg.Name, err)
	}

	c.client = client
	return c, nil
}

// dialTimeout 获取有效的拨号超时时间
func (c *etcdConnector) dialTimeout() time.Duration {
	if c.cfg.DialTimeout > 0 {
		return c.cfg.DialTimeout
	}
	if c.cfg.ConnectTimeout > 0 {
		return c.cfg.ConnectTimeout
	}
	return 5 * time.Second
}

// Connect 建立连接
func (c *etcdConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return ErrAlreadyClosed
	}
	if c.healthy.Load() {
		return nil
	}

	c.logger.Info("attempting to connect to etcd", clog.Any("endpoints", c.cfg.Endpoints))

	err := connectWithRetry(ctx, c.logger, c.cfg.MaxRetries, c.cfg.RetryInterval, c.dialTimeout(),
		func(ctx context.Context) error {
			_, err := c.client.Get(ctx, etcdHealthKey)
			return err
		})
	c.stats.connected(ctx, err)
	if err != nil {
		c.logger.Error("failed to connect to etcd", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "etcd connector[%s]: %v", c.cfg.Name, err)
	}

	c.healthy.Store(true)
	c.logger.Info("successfully connected to etcd", clog.Any("endpoints", c.cfg.Endpoints))
	return nil
}

// Close 关闭连接
func (c *etcdConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Swap(true) {
		return nil
	}

	c.logger.Info("closing etcd connection")
	c.healthy.Store(false)
	c.stats.closed(context.Background())

	if err := c.client.Close(); err != nil {
		c.logger.Error("failed to close etcd connection", clog.Error(err))
		return err
	}
	c.logger.Info("etcd connection closed successfully")
	return nil
}

// HealthCheck 检查连接健康状态
func (c *etcdConnector) HealthCheck(ctx context.Context) error {
	if c.closed.Load() {
		return xerrors.Wrapf(ErrClientNil, "etcd connector[%s]", c.cfg.Name)
	}

	testCtx, cancel := context.WithTimeout(ctx, c.dialTimeout())
	defer cancel()

	if _, err := c.client.Get(testCtx, etcdHealthKey); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("etcd health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "etcd connector[%s]: %v", c.cfg.Name, err)
	}

	c.healthy.Store(true)
	return nil
}

// IsHealthy 返回缓存的健康状态
func (c *etcdConnector) IsHealthy() bool {
	return c.healthy.Load()
}

// Name 返回连接器名称
func (c *etcdConnector) Name() string {
	return c.cfg.Name
}

// GetClient 返回 Etcd 客户端
func (c *etcdConnector) GetClient() *clientv3.Client {
	if c.closed.Load() {
		return nil
	}
	return c.client
}
