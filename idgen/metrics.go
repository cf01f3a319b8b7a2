package idgen

import (
	"github.com/ceyewan/autoid/metrics"
	"github.com/ceyewan/autoid/xerrors"
)

// Metrics 指标常量定义
const (
	// MetricGenerated 生成的 ID 总数 (Counter)
	MetricGenerated = "idgen_generated_total"

	// MetricClockRollback 吸收的时钟回拨次数 (Counter, label: mode=wait|force)
	MetricClockRollback = "idgen_clock_rollback_total"

	// MetricNodeAllocation 节点身份分配次数 (Counter, label: source=coordinated|fallback|static)
	MetricNodeAllocation = "idgen_node_allocation_total"

	// MetricSequenceExhausted 同一毫秒内序列号耗尽次数 (Counter)
	MetricSequenceExhausted = "idgen_sequence_exhausted_total"
)

type instruments struct {
	generated  metrics.Counter
	rollback   metrics.Counter
	allocation metrics.Counter
	exhausted  metrics.Counter
}

func newInstruments(meter metrics.Meter) (*instruments, error) {
	var (
		inst instruments
		err  error
	)
	if inst.generated, err = meter.Counter(MetricGenerated, "Total number of generated ids"); err != nil {
		return nil, xerrors.Wrap(err, "create generated counter")
	}
	if inst.rollback, err = meter.Counter(MetricClockRollback, "Clock rollbacks absorbed by the generator"); err != nil {
		return nil, xerrors.Wrap(err, "create rollback counter")
	}
	if inst.allocation, err = meter.Counter(MetricNodeAllocation, "Node identity allocations by source"); err != nil {
		return nil, xerrors.Wrap(err, "create allocation counter")
	}
	if inst.exhausted, err = meter.Counter(MetricSequenceExhausted, "Times the per-millisecond sequence was exhausted"); err != nil {
		return nil, xerrors.Wrap(err, "create exhausted counter")
	}
	return &inst, nil
}
