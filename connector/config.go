package connector

import (
	"time"

	"github.com/ceyewan/autoid/xerrors"
)

// 连接重试的默认值，四种连接器共用
const (
	defaultName           = "default"
	defaultMaxRetries     = 3
	defaultRetryInterval  = time.Second
	defaultConnectTimeout = 5 * time.Second
)

// orDefault 零值时写入默认值
func orDefault[T comparable](p *T, v T) {
	var zero T
	if *p == zero {
		*p = v
	}
}

// RedisConfig 槽位协调用的 Redis 连接
//
// idgen 只执行短小的 Lua 脚本，连接池不需要很大。
//
//	redis:
//	  addr: 127.0.0.1:6379
//	  db: 0
type RedisConfig struct {
	Name           string        `mapstructure:"name"`            // 默认 "default"
	MaxRetries     int           `mapstructure:"max_retries"`     // Connect 的重试次数，默认 3
	RetryInterval  time.Duration `mapstructure:"retry_interval"`  // 默认 1s
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"` // 单次 Connect 的超时，默认 5s

	Addr     string `mapstructure:"addr"` // 必填
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	PoolSize     int           `mapstructure:"pool_size"`      // 默认 10
	MinIdleConns int           `mapstructure:"min_idle_conns"` // 默认 0
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`   // 默认 5s
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`   // 默认 3s
	WriteTimeout time.Duration `mapstructure:"write_timeout"`  // 默认 3s
}

func (c *RedisConfig) setDefaults() {
	orDefault(&c.Name, defaultName)
	orDefault(&c.MaxRetries, defaultMaxRetries)
	orDefault(&c.RetryInterval, defaultRetryInterval)
	orDefault(&c.ConnectTimeout, defaultConnectTimeout)

	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns < 0 {
		c.MinIdleConns = 0
	}
	orDefault(&c.DialTimeout, 5*time.Second)
	orDefault(&c.ReadTimeout, 3*time.Second)
	orDefault(&c.WriteTimeout, 3*time.Second)
}

func (c *RedisConfig) validate() error {
	c.setDefaults()
	switch {
	case c.Addr == "":
		return xerrors.Wrap(ErrConfig, "redis addr is required")
	case c.DB < 0:
		return xerrors.Wrapf(ErrConfig, "redis db must be >= 0, got %d", c.DB)
	}
	return nil
}

// EtcdConfig 槽位协调用的 Etcd 连接
//
// KeepAliveTime / KeepAliveTimeout 是 gRPC 连接心跳，与槽位 Lease 的 TTL 无关。
type EtcdConfig struct {
	Name           string        `mapstructure:"name"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryInterval  time.Duration `mapstructure:"retry_interval"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	Endpoints []string `mapstructure:"endpoints"` // 必填
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`

	DialTimeout      time.Duration `mapstructure:"dial_timeout"`       // 默认 5s
	KeepAliveTime    time.Duration `mapstructure:"keep_alive_time"`    // 默认 10s
	KeepAliveTimeout time.Duration `mapstructure:"keep_alive_timeout"` // 默认 3s
}

func (c *EtcdConfig) setDefaults() {
	orDefault(&c.Name, defaultName)
	orDefault(&c.MaxRetries, defaultMaxRetries)
	orDefault(&c.RetryInterval, defaultRetryInterval)
	orDefault(&c.ConnectTimeout, defaultConnectTimeout)

	orDefault(&c.DialTimeout, 5*time.Second)
	orDefault(&c.KeepAliveTime, 10*time.Second)
	orDefault(&c.KeepAliveTimeout, 3*time.Second)
}

func (c *EtcdConfig) validate() error {
	c.setDefaults()
	if len(c.Endpoints) == 0 {
		return xerrors.Wrap(ErrConfig, "etcd endpoints are required")
	}
	return nil
}

// MySQLConfig 存放业务表的 MySQL，autoid 插件与分表中间件挂在它的 *gorm.DB 上
//
// 设置 DSN 时忽略 Host/Port/Username/Password/Database/Charset。
type MySQLConfig struct {
	Name           string        `mapstructure:"name"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryInterval  time.Duration `mapstructure:"retry_interval"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"` // 默认 3306
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Charset  string `mapstructure:"charset"` // 默认 utf8mb4

	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 默认 10
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 默认 100
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 默认 1h
}

func (c *MySQLConfig) setDefaults() {
	orDefault(&c.Name, defaultName)
	orDefault(&c.MaxRetries, defaultMaxRetries)
	orDefault(&c.RetryInterval, defaultRetryInterval)
	orDefault(&c.ConnectTimeout, defaultConnectTimeout)

	orDefault(&c.Port, 3306)
	orDefault(&c.Charset, "utf8mb4")
	orDefault(&c.MaxIdleConns, 10)
	orDefault(&c.MaxOpenConns, 100)
	orDefault(&c.ConnMaxLifetime, time.Hour)
}

func (c *MySQLConfig) validate() error {
	c.setDefaults()
	if c.DSN != "" {
		return nil
	}
	switch {
	case c.Host == "":
		return xerrors.Wrap(ErrConfig, "mysql host is required")
	case c.Port <= 0:
		return xerrors.Wrapf(ErrConfig, "mysql port must be positive, got %d", c.Port)
	case c.Username == "":
		return xerrors.Wrap(ErrConfig, "mysql username is required")
	case c.Database == "":
		return xerrors.Wrap(ErrConfig, "mysql database is required")
	}
	return nil
}

// SQLiteConfig 本地或测试用的 SQLite
//
// Path 含 ":memory:" 或 "mode=memory" 时为内存库，连接数固定为 1。
type SQLiteConfig struct {
	Name string `mapstructure:"name"`
	Path string `mapstructure:"path"` // 必填
}

func (c *SQLiteConfig) setDefaults() {
	orDefault(&c.Name, defaultName)
}

func (c *SQLiteConfig) validate() error {
	c.setDefaults()
	if c.Path == "" {
		return xerrors.Wrap(ErrConfig, "sqlite path is required")
	}
	return nil
}
