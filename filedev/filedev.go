// Package filedev provides a block device backed by a local file.
//
// Reads go through a read-only memory mapping when the platform allows it
// and fall back to pread otherwise. Writes always go through the file handle
// so the mapping never aliases dirty pages; an optional sync mode fsyncs
// after every block write.
package filedev

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hupe1980/blockdev"
	"github.com/hupe1980/blockdev/internal/mmap"
)

// Option configures a Device.
type Option func(*config)

type config struct {
	sync   bool
	noMmap bool
}

// WithSync fsyncs the file after every block write.
func WithSync() Option {
	return func(c *config) { c.sync = true }
}

// WithoutMmap disables the memory-mapped read path, forcing pread.
func WithoutMmap() Option {
	return func(c *config) { c.noMmap = true }
}

// Device is a block device stored in a single local file. The file length is
// always blockSize * blockCount.
type Device struct {
	blockSize  int
	blockCount int
	sync       bool

	mu sync.RWMutex
	f  *os.File
	m  *mmap.File // nil when the mapping is unavailable or disabled
}

var _ blockdev.BlockDevice = (*Device)(nil)

// Create creates (or truncates) the file at path and sizes it for the given
// geometry.
func Create(path string, blockSize, blockCount int, opts ...Option) (*Device, error) {
	if blockSize <= 0 || blockCount <= 0 {
		return nil, blockdev.ErrInvalidArgument
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(blockSize) * int64(blockCount)); err != nil {
		f.Close()
		return nil, err
	}

	return newDevice(f, path, blockSize, blockCount, opts)
}

// Open opens an existing device file. The block count is derived from the
// file size, which must be a positive multiple of blockSize.
func Open(path string, blockSize int, opts ...Option) (*Device, error) {
	if blockSize <= 0 {
		return nil, blockdev.ErrInvalidArgument
	}

	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", blockdev.ErrNotFound, path)
		}
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", blockdev.ErrIsDir, path)
	}

	size := fi.Size()
	if size == 0 || size%int64(blockSize) != 0 {
		return nil, fmt.Errorf("%w: file size %d is not a multiple of block size %d",
			blockdev.ErrIncoherentData, size, blockSize)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	return newDevice(f, path, blockSize, int(size/int64(blockSize)), opts)
}

func newDevice(f *os.File, path string, blockSize, blockCount int, opts []Option) (*Device, error) {
	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	d := &Device{
		blockSize:  blockSize,
		blockCount: blockCount,
		sync:       cfg.sync,
		f:          f,
	}

	if !cfg.noMmap {
		// Mapping failure is not fatal; pread serves reads instead.
		if m, err := mmap.Open(path); err == nil {
			d.m = m
		}
	}

	return d, nil
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

	off := int64(addr) * int64(d.blockSize)

	d.mu.RLock()
	defer d.mu.RUnlock()

	var (
		n   int
		err error
	)
	if d.m != nil {
		n, err = d.m.ReadAt(p[:d.blockSize], off)
	} else {
		n, err = d.f.ReadAt(p[:d.blockSize], off)
	}
	if err != nil && !(errors.Is(err, io.EOF) && n == d.blockSize) {
		return n, &blockdev.AddrError{Op: "read", Addr: addr, Err: err}
	}
	return n, nil
}

// WriteBlock copies p into block addr.
func (d *Device) WriteBlock(addr uint64, p []byte) (int, error) {
	if len(p) < d.blockSize {
		return 0, blockdev.ErrBufferTooSmall
	}
	if addr >= uint64(d.blockCount) {
		return 0, &blockdev.AddrError{Op: "write", Addr: addr, Err: blockdev.ErrBadAddress}
	}

	off := int64(addr) * int64(d.blockSize)

	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.f.WriteAt(p[:d.blockSize], off)
	if err != nil {
		return n, &blockdev.AddrError{Op: "write", Addr: addr, Err: err}
	}
	if d.sync {
		if err := d.f.Sync(); err != nil {
			return n, &blockdev.AddrError{Op: "sync", Addr: addr, Err: err}
		}
	}
	return n, nil
}

// Sync flushes buffered writes to stable storage.
func (d *Device) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.f.Sync()
}

// Close releases the mapping and the file handle.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	if d.m != nil {
		err = d.m.Close()
		d.m = nil
	}
	if d.f != nil {
		if closeErr := d.f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		d.f = nil
	}
	return err
}
