package connector

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ceyewan/autoid/clog"
	"github.com/ceyewan/autoid/xerrors"
)

type sqliteConnector struct {
	cfg     *SQLiteConfig
	db      *gorm.DB
	logger  clog.Logger
	stats   *connStats
	tracing bool
	healthy atomic.Bool
	mu      sync.RWMutex
}

// NewSQLite 创建 SQLite 连接器
// 注意：实际连接在调用 Connect() 时建立
func NewSQLite(cfg *SQLiteConfig, opts ...Option) (SQLiteConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "sqlite config is nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrapf(err, "invalid sqlite config")
	}

	opt := applyOptions(opts)
	stats, err := newConnStats(opt.meter, "sqlite", cfg.Name)
	if err != nil {
		return nil, xerrors.Wrap(err, "create sqlite connector metrics")
	}

	return &sqliteConnector{
		cfg:     cfg,
		logger:  opt.logger.With(clog.String("connector", "sqlite"), clog.String("name", cfg.Name)),
		stats:   stats,
		tracing: opt.tracing,
	}, nil
}

// Connect 建立连接
func (c *sqliteConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 幂等：如果已连接则直接返回
	if c.db != nil {
		return nil
	}

	c.logger.Info("attempting to connect to sqlite", clog.String("path", c.cfg.Path))

	db, err := c.open(ctx)
	c.stats.connected(ctx, err)
	if err != nil {
		c.logger.Error("failed to connect to sqlite", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "sqlite connector[%s]: %v", c.cfg.Name, err)
	}

	c.db = db
	c.healthy.Store(true)
	c.logger.Info("successfully connected to sqlite", clog.String("path", c.cfg.Path))
	return nil
}

func (c *sqliteConnector) open(ctx context.Context) (*gorm.DB, error) {
	db, err := openGorm(sqlite.Open(c.cfg.Path), c.logger, c.tracing)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// 内存数据库每个连接都是独立的库，限制为单连接
	if isMemoryPath(c.cfg.Path) {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Close 关闭连接
func (c *sqliteConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy.Store(false)
	if c.db == nil {
		return nil
	}

	c.logger.Info("closing sqlite connection")
	c.stats.closed(context.Background())

	sqlDB, err := c.db.DB()
	if err != nil {
		c.logger.Error("failed to get sqlite db instance for closing", clog.Error(err))
		return err
	}
	if err := sqlDB.Close(); err != nil {
		c.logger.Error("failed to close sqlite connection", clog.Error(err))
		return err
	}

	c.db = nil
	c.logger.Info("sqlite connection closed successfully")
	return nil
}

// HealthCheck 检查连接健康状态
func (c *sqliteConnector) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	db := c.db
	c.mu.RUnlock()

	if db == nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrClientNil, "sqlite connector[%s]", c.cfg.Name)
	}

	sqlDB, err := db.DB()
	if err != nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrHealthCheck, "sqlite connector[%s]: %v", c.cfg.Name, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("sqlite health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "sqlite connector[%s]: %v", c.cfg.Name, err)
	}

	c.healthy.Store(true)
	return nil
}

// IsHealthy 返回缓存的健康状态
func (c *sqliteConnector) IsHealthy() bool {
	return c.healthy.Load()
}

// Name 返回连接器名称
func (c *sqliteConnector) Name() string {
	return c.cfg.Name
}

// GetClient 返回 GORM 客户端
func (c *sqliteConnector) GetClient() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

func isMemoryPath(path string) bool {
	return strings.Contains(path, ":memory:") || strings.Contains(path, "mode=memory")
}
