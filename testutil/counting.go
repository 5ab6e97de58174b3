package testutil

import (
	"sync/atomic"

	"github.com/hupe1980/blockdev"
)

// CountingDevice wraps a BlockDevice and counts every call that reaches it.
// Counters are atomic and may be inspected while other goroutines use the
// device.
type CountingDevice struct {
	BlockSizeCalls  atomic.Int64
	BlockCountCalls atomic.Int64
	ReadBlockCalls  atomic.Int64
	WriteBlockCalls atomic.Int64

	inner blockdev.BlockDevice
}

var _ blockdev.BlockDevice = (*CountingDevice)(nil)

// NewCountingDevice wraps inner with call counters.
func NewCountingDevice(inner blockdev.BlockDevice) *CountingDevice {
	return &CountingDevice{inner: inner}
}

func (d *CountingDevice) BlockSize() int {
	d.BlockSizeCalls.Add(1)
	return d.inner.BlockSize()
}

func (d *CountingDevice) BlockCount() int {
	d.BlockCountCalls.Add(1)
	return d.inner.BlockCount()
}

func (d *CountingDevice) ReadBlock(addr uint64, p []byte) (int, error) {
	d.ReadBlockCalls.Add(1)
	return d.inner.ReadBlock(addr, p)
}

func (d *CountingDevice) WriteBlock(addr uint64, p []byte) (int, error) {
	d.WriteBlockCalls.Add(1)
	return d.inner.WriteBlock(addr, p)
}
