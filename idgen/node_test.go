package idgen

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeSlotRoundTrip(t *testing.T) {
	assert.Equal(t, 128, SlotCount)

	for slot := 0; slot < SlotCount; slot++ {
		node, err := NodeFromSlot(slot)
		require.NoError(t, err)
		require.NoError(t, node.Validate())
		assert.Equal(t, slot, node.Slot())
	}

	_, err := NodeFromSlot(-1)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = NodeFromSlot(SlotCount)
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, 42, Node{WorkerID: 2, DatacenterID: 5}.Slot())
	assert.Equal(t, "5-2", Node{WorkerID: 2, DatacenterID: 5}.String())
}

func fixedInterfaces(ifaces ...net.Interface) func() ([]net.Interface, error) {
	return func() ([]net.Interface, error) {
		return append([]net.Interface(nil), ifaces...), nil
	}
}

func TestHardwareDeriverIsDeterministic(t *testing.T) {
	mac := net.HardwareAddr{0x00, 0x1a, 0x2b, 0x3c, 0x4d, 0x5e}
	d := &hardwareDeriver{
		interfaces: fixedInterfaces(
			net.Interface{Index: 3, Name: "eth1", HardwareAddr: net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
			net.Interface{Index: 1, Name: "lo", Flags: net.FlagLoopback, HardwareAddr: net.HardwareAddr{0x01, 0x02}},
			net.Interface{Index: 2, Name: "eth0", HardwareAddr: mac},
		),
		pid: func() int { return 4242 },
	}

	first := d.Derive()
	second := d.Derive()
	assert.Equal(t, first, second)
	require.NoError(t, first.Validate())

	// (0x4d | 0x5e<<8) >> 6 = 377, 377 % 16 = 9
	assert.Equal(t, int64(9), first.DatacenterID)
	assert.Equal(t, workerFromPID(9, 4242), first.WorkerID)
}

func TestHardwareDeriverWithoutUsableInterface(t *testing.T) {
	d := &hardwareDeriver{
		interfaces: fixedInterfaces(
			net.Interface{Index: 1, Name: "lo", Flags: net.FlagLoopback, HardwareAddr: net.HardwareAddr{0x01, 0x02}},
			net.Interface{Index: 2, Name: "tun0", HardwareAddr: net.HardwareAddr{0x01}},
		),
		pid: func() int { return 1 },
	}
	assert.Equal(t, int64(1), d.Derive().DatacenterID)

	failing := &hardwareDeriver{
		interfaces: func() ([]net.Interface, error) { return nil, assert.AnError },
		pid:        func() int { return 1 },
	}
	assert.Equal(t, int64(1), failing.Derive().DatacenterID)
}

func TestDefaultDeriverStableWithinProcess(t *testing.T) {
	a := NewHardwareDeriver().Derive()
	b := NewHardwareDeriver().Derive()
	assert.Equal(t, a, b)
	assert.NoError(t, a.Validate())
}

func TestWorkerFromPIDRange(t *testing.T) {
	for pid := 0; pid < 1000; pid++ {
		w := workerFromPID(int64(pid%16), pid)
		assert.GreaterOrEqual(t, w, int64(0))
		assert.LessOrEqual(t, w, MaxWorkerID)
	}
}
