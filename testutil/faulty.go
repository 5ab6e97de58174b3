package testutil

import (
	"sync"

	"github.com/hupe1980/blockdev"
)

// FaultyDevice wraps a BlockDevice and injects errors on demand. A fault of
// nil restores normal behavior. FailReadsAfter arms a countdown: the first n
// reads pass through, every later one fails.
type FaultyDevice struct {
	inner blockdev.BlockDevice

	mu            sync.Mutex
	readErr       error
	writeErr      error
	readsLeft     int
	readCountdown bool
}

var _ blockdev.BlockDevice = (*FaultyDevice)(nil)

// NewFaultyDevice wraps inner with fault injection disabled.
func NewFaultyDevice(inner blockdev.BlockDevice) *FaultyDevice {
	return &FaultyDevice{inner: inner}
}

// FailReads makes every subsequent ReadBlock fail with err.
func (d *FaultyDevice) FailReads(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readErr = err
	d.readCountdown = false
}

// FailReadsAfter lets n more reads succeed, then fails the rest with err.
func (d *FaultyDevice) FailReadsAfter(n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readErr = err
	d.readsLeft = n
	d.readCountdown = true
}

// FailWrites makes every subsequent WriteBlock fail with err.
func (d *FaultyDevice) FailWrites(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeErr = err
}

func (d *FaultyDevice) BlockSize() int  { return d.inner.BlockSize() }
func (d *FaultyDevice) BlockCount() int { return d.inner.BlockCount() }

func (d *FaultyDevice) ReadBlock(addr uint64, p []byte) (int, error) {
	d.mu.Lock()
	err := d.readErr
	if err != nil && d.readCountdown {
		if d.readsLeft > 0 {
			d.readsLeft--
			err = nil
		}
	}
	d.mu.Unlock()

	if err != nil {
		return 0, err
	}
	return d.inner.ReadBlock(addr, p)
}

func (d *FaultyDevice) WriteBlock(addr uint64, p []byte) (int, error) {
	d.mu.Lock()
	err := d.writeErr
	d.mu.Unlock()

	if err != nil {
		return 0, err
	}
	return d.inner.WriteBlock(addr, p)
}
