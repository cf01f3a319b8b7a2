package idgen

import (
	"context"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/ceyewan/autoid/clog"
	"github.com/ceyewan/autoid/metrics"
)

// 位结构 (64 bit):
//
//	0 | 41 bit 时间戳 | 3 bit 时钟序列 | 4 bit 数据中心 | 3 bit 工作节点 | 12 bit 序列号
const (
	// Epoch 纪元起点 (2010-11-04 01:42:54.657 UTC)
	Epoch int64 = 1288834974657

	sequenceBits   = 12
	workerBits     = 3
	datacenterBits = 4
	clockSeqBits   = 3

	workerShift     = sequenceBits
	datacenterShift = workerShift + workerBits
	clockSeqShift   = datacenterShift + datacenterBits
	timestampShift  = clockSeqShift + clockSeqBits

	sequenceMask int64 = 1<<sequenceBits - 1
	clockSeqMask int64 = 1<<clockSeqBits - 1

	// maxWaitOffset 回拨不超过该毫秒数时先等待 2 倍偏移，否则直接递增时钟序列
	maxWaitOffset int64 = 5
)

const (
	rollbackWait  = "wait"
	rollbackForce = "force"
)

// Generator Snowflake 生成器
//
// 所有状态由一把互斥锁保护，包括时钟回拨的等待和序列号耗尽时的自旋。
type Generator struct {
	mu            sync.Mutex
	node          Node
	clock         Clock
	logger        clog.Logger
	inst          *instruments
	seed          func() int64
	lastTimestamp int64
	clockSeq      int64
	sequence      int64
}

// NewGenerator 创建 Snowflake 生成器
//
//	gen, _ := idgen.NewGenerator(idgen.Node{WorkerID: 2, DatacenterID: 5},
//	    idgen.WithLogger(logger))
//	id := gen.NextID()
func NewGenerator(node Node, opts ...Option) (*Generator, error) {
	if err := node.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	inst, err := newInstruments(o.meter)
	if err != nil {
		return nil, err
	}

	g := &Generator{
		node:          node,
		clock:         o.clock,
		logger:        o.logger,
		inst:          inst,
		seed:          randomSequence,
		lastTimestamp: -1,
	}

	g.logger.Info("snowflake generator created",
		clog.Int64("worker_id", node.WorkerID),
		clog.Int64("datacenter_id", node.DatacenterID),
	)
	return g, nil
}

// randomSequence 新毫秒的起始序列号，均匀取自 {1, 2}
func randomSequence() int64 {
	return rand.Int64N(2) + 1
}

// NextID 生成下一个 ID，总是非负
func (g *Generator) NextID() int64 {
	id, ev := g.next()

	ctx := context.Background()
	g.inst.generated.Inc(ctx)
	if ev.exhausted {
		g.inst.exhausted.Inc(ctx)
	}
	if ev.rollback != "" {
		g.inst.rollback.Inc(ctx, metrics.L("mode", ev.rollback))
		g.logger.Warn("clock moved backwards",
			clog.Int64("offset_ms", ev.offset),
			clog.String("mode", ev.rollback),
			clog.Int64("clock_sequence", ev.clockSeq),
		)
	}
	return id
}

// NextIDString 返回 NextID 的十进制字符串形式
func (g *Generator) NextIDString() string {
	return strconv.FormatInt(g.NextID(), 10)
}

// Node 返回生成器使用的节点身份
func (g *Generator) Node() Node {
	return g.node
}

// ClockSequence 返回当前时钟序列
func (g *Generator) ClockSequence() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.clockSeq
}

type nextEvent struct {
	rollback  string
	offset    int64
	clockSeq  int64
	exhausted bool
}

func (g *Generator) next() (int64, nextEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var ev nextEvent
	t := g.clock.NowMilli()

	if t < g.lastTimestamp {
		ev.offset = g.lastTimestamp - t
		ev.rollback = rollbackForce
		if ev.offset <= maxWaitOffset {
			g.clock.Sleep(time.Duration(ev.offset<<1) * time.Millisecond)
			t = g.clock.NowMilli()
			if t >= g.lastTimestamp {
				ev.rollback = rollbackWait
			}
		}
		if t < g.lastTimestamp {
			// 强制修正：递增时钟序列，当前序列号原样使用
			g.clockSeq = (g.clockSeq + 1) & clockSeqMask
			g.lastTimestamp = t
			ev.clockSeq = g.clockSeq
			return g.compose(t), ev
		}
		ev.clockSeq = g.clockSeq
	}

	if t == g.lastTimestamp {
		g.sequence = (g.sequence + 1) & sequenceMask
		if g.sequence == 0 {
			ev.exhausted = true
			t = g.tilNextMillis(g.lastTimestamp)
		}
	} else {
		g.sequence = g.seed()
	}

	g.lastTimestamp = t
	return g.compose(t), ev
}

// tilNextMillis 自旋直到时钟越过 last，预期等待不超过 1ms
func (g *Generator) tilNextMillis(last int64) int64 {
	t := g.clock.NowMilli()
	for t <= last {
		t = g.clock.NowMilli()
	}
	return t
}

func (g *Generator) compose(t int64) int64 {
	return compose(t, g.clockSeq, g.node, g.sequence)
}

func compose(t, clockSeq int64, node Node, sequence int64) int64 {
	return (t-Epoch)<<timestampShift |
		clockSeq<<clockSeqShift |
		node.DatacenterID<<datacenterShift |
		node.WorkerID<<workerShift |
		sequence
}

// Parts ID 的各个组成部分
type Parts struct {
	// Timestamp Unix 毫秒时间戳（已加回 Epoch）
	Timestamp     int64
	ClockSequence int64
	DatacenterID  int64
	WorkerID      int64
	Sequence      int64
}

// Time 返回 ID 内嵌的时间
func (p Parts) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// Node 返回生成该 ID 的节点身份
func (p Parts) Node() Node {
	return Node{WorkerID: p.WorkerID, DatacenterID: p.DatacenterID}
}

// Decompose 按位结构拆解 ID
func Decompose(id int64) Parts {
	return Parts{
		Timestamp:     (id >> timestampShift) + Epoch,
		ClockSequence: (id >> clockSeqShift) & clockSeqMask,
		DatacenterID:  (id >> datacenterShift) & MaxDatacenterID,
		WorkerID:      (id >> workerShift) & MaxWorkerID,
		Sequence:      id & sequenceMask,
	}
}
