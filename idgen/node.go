package idgen

import (
	"fmt"

	"github.com/ceyewan/autoid/xerrors"
)

const (
	// MaxWorkerID 3 bit 工作节点 ID 上限
	MaxWorkerID int64 = 1<<workerBits - 1
	// MaxDatacenterID 4 bit 数据中心 ID 上限
	MaxDatacenterID int64 = 1<<datacenterBits - 1
	// SlotCount 节点身份空间大小 (8 * 16)
	SlotCount = int((MaxWorkerID + 1) * (MaxDatacenterID + 1))
)

// Node 节点身份，在 128 个槽位中唯一标识一个进程
type Node struct {
	WorkerID     int64 `json:"worker_id" mapstructure:"worker_id"`
	DatacenterID int64 `json:"datacenter_id" mapstructure:"datacenter_id"`
}

// Validate 校验 WorkerID ∈ [0,7]，DatacenterID ∈ [0,15]
func (n Node) Validate() error {
	if n.WorkerID < 0 || n.WorkerID > MaxWorkerID {
		return xerrors.Wrapf(ErrInvalidInput, "worker id %d out of range [0,%d]", n.WorkerID, MaxWorkerID)
	}
	if n.DatacenterID < 0 || n.DatacenterID > MaxDatacenterID {
		return xerrors.Wrapf(ErrInvalidInput, "datacenter id %d out of range [0,%d]", n.DatacenterID, MaxDatacenterID)
	}
	return nil
}

// Slot 返回节点对应的槽位编号 datacenterID*8 + workerID
func (n Node) Slot() int {
	return int(n.DatacenterID*(MaxWorkerID+1) + n.WorkerID)
}

func (n Node) String() string {
	return fmt.Sprintf("%d-%d", n.DatacenterID, n.WorkerID)
}

// NodeFromSlot 是 Slot 的逆运算
func NodeFromSlot(slot int) (Node, error) {
	if slot < 0 || slot >= SlotCount {
		return Node{}, xerrors.Wrapf(ErrInvalidInput, "slot %d out of range [0,%d)", slot, SlotCount)
	}
	return Node{
		WorkerID:     int64(slot) % (MaxWorkerID + 1),
		DatacenterID: int64(slot) / (MaxWorkerID + 1),
	}, nil
}
