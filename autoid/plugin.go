// Package autoid 为 GORM 模型提供雪花 ID 自动填充。
//
// 在字段上标注 `autoid:"snowflake"`，插件会在 gorm:create 之前为未赋值的字段写入 ID：
//
//	type Order struct {
//	    ID    int64  `gorm:"primaryKey" autoid:"snowflake"`
//	    TxnNo string `autoid:"snowflake"`
//	}
//
//	plugin, _ := autoid.New(holder, autoid.WithLogger(logger))
//	_ = db.Use(plugin)
//
// 整数字段 (int/int64/uint/uint64 及其指针) 写入 NextID，字符串字段写入 NextIDString。
// 已有非零值的字段保持不变。
package autoid

import (
	"context"
	"reflect"

	"github.com/maypok86/otter/v2"
	"gorm.io/gorm"

	"github.com/ceyewan/autoid/clog"
	"github.com/ceyewan/autoid/idgen"
	"github.com/ceyewan/autoid/metrics"
	"github.com/ceyewan/autoid/xerrors"
)

const (
	// TagKey 结构体标签名
	TagKey = "autoid"

	// StrategySnowflake 目前唯一支持的填充策略
	StrategySnowflake = "snowflake"

	// MetricFieldsFilled 填充的字段数 (Counter, label: kind=int|string)
	MetricFieldsFilled = "autoid_fields_filled_total"

	callbackName = "autoid:fill"
)

// Plugin GORM 插件，实现 gorm.Plugin
type Plugin struct {
	src    idgen.IDSource
	logger clog.Logger
	filled metrics.Counter
	plans  *otter.Cache[reflect.Type, *plan]
}

var _ gorm.Plugin = (*Plugin)(nil)

// New 创建插件。src 通常是全局 idgen.Holder，允许在 Use 之后再完成初始化
func New(src idgen.IDSource, opts ...Option) (*Plugin, error) {
	if src == nil {
		return nil, xerrors.Wrap(ErrInvalidInput, "id source is nil")
	}

	o := options{
		logger:    clog.Discard(),
		meter:     metrics.Discard(),
		cacheSize: 1024,
	}
	for _, opt := range opts {
		opt(&o)
	}

	filled, err := o.meter.Counter(MetricFieldsFilled, "Model fields filled with generated ids")
	if err != nil {
		return nil, xerrors.Wrap(err, "create filled counter")
	}

	plans, err := otter.New(&otter.Options[reflect.Type, *plan]{
		MaximumSize: o.cacheSize,
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to build plan cache")
	}

	return &Plugin{
		src:    src,
		logger: o.logger,
		filled: filled,
		plans:  plans,
	}, nil
}

// Name 实现 gorm.Plugin
func (p *Plugin) Name() string {
	return "autoid"
}

// Initialize 实现 gorm.Plugin，注册 create 前置回调
func (p *Plugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Create().Before("gorm:create").Register(callbackName, p.fillCallback); err != nil {
		return xerrors.Wrap(err, "register autoid callback")
	}
	return nil
}

func (p *Plugin) fillCallback(db *gorm.DB) {
	if db.Error != nil || db.Statement == nil {
		return
	}
	if err := p.fillValue(db.Statement.Context, db.Statement.ReflectValue); err != nil {
		_ = db.AddError(err)
	}
}

// Fill 直接为模型填充 ID，不经过 GORM。
// model 必须是结构体指针，或结构体 (指针) 的切片/数组指针
func (p *Plugin) Fill(ctx context.Context, model any) error {
	v := reflect.ValueOf(model)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return xerrors.Wrap(ErrInvalidInput, "model must be a non-nil pointer")
	}
	return p.fillValue(ctx, v)
}

func (p *Plugin) fillValue(ctx context.Context, v reflect.Value) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		return p.fillStruct(ctx, v)
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := p.fillValue(ctx, v.Index(i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Plugin) fillStruct(ctx context.Context, v reflect.Value) error {
	pl, err := p.planFor(ctx, v.Type())
	if err != nil {
		return err
	}
	if len(pl.fields) == 0 {
		return nil
	}
	if !v.CanSet() {
		return xerrors.Wrapf(ErrInvalidInput, "%s is not addressable", v.Type())
	}

	for _, f := range pl.fields {
		fv := v.FieldByIndex(f.index)
		if f.ptr {
			if fv.IsNil() {
				fv.Set(reflect.New(fv.Type().Elem()))
			}
			fv = fv.Elem()
		}
		if !fv.IsZero() {
			continue
		}
		switch f.kind {
		case kindInt:
			fv.SetInt(p.src.NextID())
		case kindUint:
			fv.SetUint(uint64(p.src.NextID()))
		case kindString:
			fv.SetString(p.src.NextIDString())
		}
		p.filled.Inc(ctx, metrics.L("kind", f.kind.label()))
	}
	return nil
}

func (p *Plugin) planFor(ctx context.Context, typ reflect.Type) (*plan, error) {
	pl, err := p.plans.Get(ctx, typ, otter.LoaderFunc[reflect.Type, *plan](func(_ context.Context, t reflect.Type) (*plan, error) {
		return buildPlan(t, p.logger), nil
	}))
	if err != nil {
		return nil, xerrors.Wrapf(err, "build field plan for %s", typ)
	}
	return pl, nil
}
