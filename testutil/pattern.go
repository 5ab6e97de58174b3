package testutil

import (
	"github.com/hupe1980/blockdev"
)

// PatternDevice is a read-only device whose block N reads as blockSize bytes
// of value N+1. Useful for asserting exactly which blocks a byte-range read
// staged.
type PatternDevice struct {
	blockSize  int
	blockCount int
}

var _ blockdev.BlockDevice = (*PatternDevice)(nil)

// NewPatternDevice creates a pattern device with the given geometry.
func NewPatternDevice(blockSize, blockCount int) *PatternDevice {
	return &PatternDevice{blockSize: blockSize, blockCount: blockCount}
}

func (d *PatternDevice) BlockSize() int  { return d.blockSize }
func (d *PatternDevice) BlockCount() int { return d.blockCount }

func (d *PatternDevice) ReadBlock(addr uint64, p []byte) (int, error) {
	if len(p) < d.blockSize {
		return 0, blockdev.ErrBufferTooSmall
	}
	if addr >= uint64(d.blockCount) {
		return 0, &blockdev.AddrError{Op: "read", Addr: addr, Err: blockdev.ErrBadAddress}
	}

	fill := byte(addr + 1)
	for i := 0; i < d.blockSize; i++ {
		p[i] = fill
	}
	return d.blockSize, nil
}

func (d *PatternDevice) WriteBlock(addr uint64, _ []byte) (int, error) {
	return 0, &blockdev.AddrError{Op: "write", Addr: addr, Err: blockdev.ErrWrite}
}
