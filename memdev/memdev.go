// Package memdev provides a RAM-backed block device.
//
// It is the reference BlockDevice implementation: tests and examples layer
// the cache and copy-on-write components over it, and it doubles as a
// scratch device for staging images before they are applied elsewhere.
package memdev

import (
	"sync"

	"github.com/hupe1980/blockdev"
)

// Device is an in-memory block device. Thread-safe for concurrent reads and
// writes.
type Device struct {
	blockSize  int
	blockCount int

	mu   sync.RWMutex
	data []byte
}

var _ blockdev.BlockDevice = (*Device)(nil)

// New creates a zero-filled device with the given geometry. Invalid geometry
// is a programming error and panics; use TryNew to get an error instead.
func New(blockSize, blockCount int) *Device {
	d, err := TryNew(blockSize, blockCount)
	if err != nil {
		panic(err)
	}
	return d
}

// TryNew is like New but reports invalid geometry instead of panicking.
func TryNew(blockSize, blockCount int) (*Device, error) {
	if blockSize <= 0 || blockCount <= 0 {
		return nil, blockdev.ErrInvalidArgument
	}
	return &Device{
		blockSize:  blockSize,
		blockCount: blockCount,
		data:       make([]byte, blockSize*blockCount),
	}, nil
}

// FromBytes creates a device over a copy of data. len(data) must be a
// positive multiple of blockSize.
func FromBytes(blockSize int, data []byte) (*Device, error) {
	if blockSize <= 0 || len(data) == 0 {
		return nil, blockdev.ErrInvalidArgument
	}
	if len(data)%blockSize != 0 {
		return nil, blockdev.ErrIncoherentData
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	return &Device{
		blockSize:  blockSize,
		blockCount: len(data) / blockSize,
		data:       buf,
	}, nil
}

// BlockSize returns the device's block size in bytes.
func (d *Device) BlockSize() int { return d.blockSize }

// BlockCount returns the number of addressable blocks.
func (d *Device) BlockCount() int { return d.blockCount }

// ReadBlock copies block addr into p.
func (d *Device) ReadBlock(addr uint64, p []byte) (int, error) {
	if len(p) < d.blockSize {
		return 0, blockdev.ErrBufferTooSmall
	}
	if addr >= uint64(d.blockCount) {
		return 0, &blockdev.AddrError{Op: "read", Addr: addr, Err: blockdev.ErrBadAddress}
	}

	off := int(addr) * d.blockSize
	d.mu.RLock()
	copy(p[:d.blockSize], d.data[off:off+d.blockSize])
	d.mu.RUnlock()
	return d.blockSize, nil
}

// WriteBlock copies p into block addr.
func (d *Device) WriteBlock(addr uint64, p []byte) (int, error) {
	if len(p) < d.blockSize {
		return 0, blockdev.ErrBufferTooSmall
	}
	if addr >= uint64(d.blockCount) {
		return 0, &blockdev.AddrError{Op: "write", Addr: addr, Err: blockdev.ErrBadAddress}
	}

	off := int(addr) * d.blockSize
	d.mu.Lock()
	copy(d.data[off:off+d.blockSize], p[:d.blockSize])
	d.mu.Unlock()
	return d.blockSize, nil
}

// Bytes returns a copy of the device's full contents.
func (d *Device) Bytes() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]byte, len(d.data))
	copy(out, d.data)
	return out
}
