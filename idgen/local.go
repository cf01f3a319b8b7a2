package idgen

import (
	"net"
	"os"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// LocalDeriver 在没有协调存储时，仅凭本机信息推导节点身份
//
// 推导必须是确定的：相同的网卡与进程号总是得到相同的 Node。
type LocalDeriver interface {
	Derive() Node
}

// hardwareDeriver 基于网卡 MAC 推导数据中心、基于数据中心与进程号推导工作节点
type hardwareDeriver struct {
	interfaces func() ([]net.Interface, error)
	pid        func() int
}

// NewHardwareDeriver 返回默认的本地推导器
func NewHardwareDeriver() LocalDeriver {
	return &hardwareDeriver{
		interfaces: net.Interfaces,
		pid:        os.Getpid,
	}
}

// Derive 实现 LocalDeriver
func (d *hardwareDeriver) Derive() Node {
	dc := d.datacenterID()
	return Node{
		WorkerID:     workerFromPID(dc, d.pid()),
		DatacenterID: dc,
	}
}

// datacenterID 取按 Index 排序后第一块非回环、MAC 至少 2 字节的网卡；没有时返回 1
func (d *hardwareDeriver) datacenterID() int64 {
	ifaces, err := d.interfaces()
	if err != nil {
		return 1
	}
	sort.Slice(ifaces, func(i, j int) bool { return ifaces[i].Index < ifaces[j].Index })

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) < 2 {
			continue
		}
		return datacenterFromMAC(iface.HardwareAddr)
	}
	return 1
}

func datacenterFromMAC(mac net.HardwareAddr) int64 {
	n := len(mac)
	id := (int64(mac[n-2]) | int64(mac[n-1])<<8) >> 6
	return id % (MaxDatacenterID + 1)
}

func workerFromPID(dc int64, pid int) int64 {
	h := xxhash.Sum64String(strconv.FormatInt(dc, 10) + strconv.Itoa(pid))
	return int64(h&0xffff) % (MaxWorkerID + 1)
}
