package config

import (
	"context"
	"strings"

	"github.com/ceyewan/autoid/xerrors"
)

// Option 配置选项模式
type Option func(*Options)

// Options 配置加载器的选项
type Options struct {
	Name      string   // 配置文件名称（不含扩展名）
	Paths     []string // 配置文件搜索路径，默认 [".", "./config"]
	FileType  string   // 配置文件类型，默认 yaml
	EnvPrefix string   // 环境变量前缀，默认 AUTOID
}

func defaultOptions() *Options {
	return &Options{
		Name:      "config",
		Paths:     []string{".", "./config"},
		FileType:  "yaml",
		EnvPrefix: "AUTOID",
	}
}

// WithConfigName 设置配置文件名称（不带扩展名）
func WithConfigName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

// WithConfigPaths 设置配置文件搜索路径（覆盖默认值）
func WithConfigPaths(paths ...string) Option {
	return func(o *Options) {
		o.Paths = paths
	}
}

// WithConfigType 设置配置文件类型 (yaml, json, etc.)
func WithConfigType(typ string) Option {
	return func(o *Options) {
		o.FileType = typ
	}
}

// WithEnvPrefix 设置环境变量前缀
func WithEnvPrefix(prefix string) Option {
	return func(o *Options) {
		o.EnvPrefix = strings.ToUpper(prefix)
	}
}

// New 创建配置加载器，需调用 Load 后才能读取配置
func New(opts ...Option) (Loader, error) {
	options := defaultOptions()
	for _, o := range opts {
		o(options)
	}
	if options.Name == "" {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "config name is empty")
	}
	return newLoader(options), nil
}

// MustLoad 创建并加载配置，失败时 panic。仅用于初始化阶段。
func MustLoad(opts ...Option) Loader {
	l := xerrors.Must(New(opts...))
	if err := l.Load(context.Background()); err != nil {
		panic(err)
	}
	return l
}
