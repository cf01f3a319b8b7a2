package metrics

// Label 指标标签
//
// 标签值应保持低基数，不要把 ID、请求号之类的值放进标签。
type Label struct {
	Key   string
	Value string
}

// L 便捷构造函数，创建一个 Label 实例
//
//	counter.Inc(ctx, metrics.L("source", "coordinated"))
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}
