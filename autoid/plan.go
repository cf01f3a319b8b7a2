package autoid

import (
	"reflect"

	"github.com/ceyewan/autoid/clog"
)

type fieldKind int

const (
	kindInt fieldKind = iota
	kindUint
	kindString
)

func (k fieldKind) label() string {
	if k == kindString {
		return "string"
	}
	return "int"
}

// fieldPlan 一个需要填充 ID 的字段
type fieldPlan struct {
	name  string
	index []int
	kind  fieldKind
	ptr   bool
}

// plan 某个结构体类型中所有需要填充的字段，按声明顺序排列
type plan struct {
	fields []fieldPlan
}

// buildPlan 扫描结构体字段上的 `autoid:"snowflake"` 标签。
// 嵌入的结构体会被展开，未导出字段与嵌入指针被跳过
func buildPlan(typ reflect.Type, logger clog.Logger) *plan {
	p := &plan{}
	collectFields(typ, nil, p, logger)
	return p
}

func collectFields(typ reflect.Type, prefix []int, p *plan, logger clog.Logger) {
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		index := append(append([]int(nil), prefix...), i)

		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			collectFields(sf.Type, index, p, logger)
			continue
		}

		strategy, ok := sf.Tag.Lookup(TagKey)
		if !ok {
			continue
		}
		if strategy != StrategySnowflake {
			logger.Warn("unknown id strategy, field ignored",
				clog.String("type", typ.String()),
				clog.String("field", sf.Name),
				clog.String("strategy", strategy))
			continue
		}

		fieldType, ptr := sf.Type, false
		if fieldType.Kind() == reflect.Pointer {
			fieldType, ptr = fieldType.Elem(), true
		}

		var kind fieldKind
		switch fieldType.Kind() {
		case reflect.Int64, reflect.Int:
			kind = kindInt
		case reflect.Uint64, reflect.Uint:
			kind = kindUint
		case reflect.String:
			kind = kindString
		default:
			logger.Warn("unsupported field kind for snowflake id, field ignored",
				clog.String("type", typ.String()),
				clog.String("field", sf.Name),
				clog.String("kind", fieldType.Kind().String()))
			continue
		}

		p.fields = append(p.fields, fieldPlan{name: sf.Name, index: index, kind: kind, ptr: ptr})
	}
}
