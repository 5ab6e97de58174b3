// Package blobdev implements a block device whose image lives in an object
// store.
//
// An image is a manifest object plus one object per written block. Blocks
// that were never written have no object; reading them yields zeros, so
// images are sparse by construction. Block payloads are optionally
// compressed and carry a CRC32C trailer for end-to-end integrity.
package blobdev

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/blockdev"
	"github.com/hupe1980/blockdev/blobstore"
	"github.com/hupe1980/blockdev/codec"
	"github.com/hupe1980/blockdev/internal/hash"
	"github.com/hupe1980/blockdev/resource"
	"golang.org/x/sync/singleflight"
)

const checksumTrailerLen = 4

// Device is a BlockDevice backed by a blobstore.BlobStore.
//
// Safe for concurrent use. Concurrent reads of the same address are
// deduplicated into a single store fetch.
type Device struct {
	store      blobstore.BlobStore
	blockSize  int
	blockCount int
	comp       codec.Compressor
	checksum   bool
	logger     *blockdev.Logger
	rc         *resource.Controller

	fetchGroup singleflight.Group

	fetches     atomic.Int64
	sparseReads atomic.Int64
}

var _ blockdev.BlockDevice = (*Device)(nil)

// Format initializes a new device image in the store and returns it. Any
// existing manifest is overwritten; stale block objects from a previous
// image with the same prefix are not removed.
func Format(ctx context.Context, store blobstore.BlobStore, blockSize, blockCount int, opts ...Option) (*Device, error) {
	if blockSize <= 0 || blockCount <= 0 {
		return nil, fmt.Errorf("%w: block size %d, block count %d", blockdev.ErrInvalidArgument, blockSize, blockCount)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	m := &Manifest{
		Magic:      manifestMagic,
		Version:    manifestVersion,
		BlockSize:  blockSize,
		BlockCount: blockCount,
		Compressor: cfg.compressor.Name(),
		Checksum:   cfg.checksum,
	}
	if err := writeManifest(ctx, store, m); err != nil {
		return nil, err
	}

	return newDevice(store, m, cfg), nil
}

// Open opens an existing device image. Geometry and encoding come from the
// manifest; WithCompressor and WithChecksum options are ignored here.
func Open(ctx context.Context, store blobstore.BlobStore, opts ...Option) (*Device, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	m, err := readManifest(ctx, store)
	if err != nil {
		return nil, err
	}

	return newDevice(store, m, cfg), nil
}

func newDevice(store blobstore.BlobStore, m *Manifest, cfg config) *Device {
	comp, _ := codec.CompressorByName(m.Compressor) // validated by Manifest.Validate
	return &Device{
		store:      store,
		blockSize:  m.BlockSize,
		blockCount: m.BlockCount,
		comp:       comp,
		checksum:   m.Checksum,
		logger:     cfg.logger,
		rc:         cfg.rc,
	}
}

// BlockSize returns the device's block size in bytes.
func (d *Device) BlockSize() int { return d.blockSize }

// BlockCount returns the number of addressable blocks.
func (d *Device) BlockCount() int { return d.blockCount }

func (d *Device) blockName(addr uint64) string {
	return fmt.Sprintf("blocks/%016x", addr)
}

func (d *Device) checkAddr(op string, addr uint64) error {
	if addr >= uint64(d.blockCount) {
		return &blockdev.AddrError{Op: op, Addr: addr, Err: blockdev.ErrBadAddress}
	}
	return nil
}

// ReadBlock implements blockdev.BlockDevice using a background context.
func (d *Device) ReadBlock(addr uint64, p []byte) (int, error) {
	return d.ReadBlockContext(context.Background(), addr, p)
}

// WriteBlock implements blockdev.BlockDevice using a background context.
func (d *Device) WriteBlock(addr uint64, p []byte) (int, error) {
	return d.WriteBlockContext(context.Background(), addr, p)
}

// ReadBlockContext reads one block into p. A block that was never written
// reads as zeros. Concurrent reads of the same address share one fetch.
func (d *Device) ReadBlockContext(ctx context.Context, addr uint64, p []byte) (int, error) {
	if len(p) < d.blockSize {
		return 0, blockdev.ErrBufferTooSmall
	}
	if err := d.checkAddr("read", addr); err != nil {
		return 0, err
	}

	v, err, _ := d.fetchGroup.Do(d.blockName(addr), func() (any, error) {
		return d.fetch(ctx, addr)
	})
	if err != nil {
		return 0, err
	}

	return copy(p, v.([]byte)), nil
}

// fetch retrieves and decodes a single block payload from the store.
func (d *Device) fetch(ctx context.Context, addr uint64) ([]byte, error) {
	blob, err := d.store.Open(ctx, d.blockName(addr))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			d.sparseReads.Add(1)
			return make([]byte, d.blockSize), nil
		}
		return nil, err
	}
	defer blob.Close()

	if err := d.rc.AcquireIO(ctx, int(blob.Size())); err != nil {
		return nil, err
	}

	payload, err := blobstore.ReadAll(ctx, blob)
	if err != nil {
		return nil, err
	}
	d.fetches.Add(1)

	return d.decodeBlock(addr, payload)
}

// decodeBlock strips the checksum trailer, decompresses, and verifies.
func (d *Device) decodeBlock(addr uint64, payload []byte) ([]byte, error) {
	var want uint32
	if d.checksum {
		if len(payload) < checksumTrailerLen {
			return nil, &blockdev.AddrError{Op: "read", Addr: addr, Err: blockdev.ErrIncoherentData}
		}
		want = binary.LittleEndian.Uint32(payload[len(payload)-checksumTrailerLen:])
		payload = payload[:len(payload)-checksumTrailerLen]
	}

	block, err := d.comp.Decompress(payload, d.blockSize)
	if err != nil {
		return nil, &blockdev.AddrError{Op: "read", Addr: addr, Err: err}
	}

	if d.checksum && hash.CRC32C(block) != want {
		return nil, &blockdev.AddrError{Op: "read", Addr: addr, Err: blockdev.ErrIncoherentData}
	}
	return block, nil
}

// WriteBlockContext writes one block. The payload is compressed and
// checksummed per the image manifest, then stored as a single object.
func (d *Device) WriteBlockContext(ctx context.Context, addr uint64, p []byte) (int, error) {
	if len(p) < d.blockSize {
		return 0, blockdev.ErrBufferTooSmall
	}
	if err := d.checkAddr("write", addr); err != nil {
		return 0, err
	}

	block := p[:d.blockSize]
	payload, err := d.comp.Compress(block)
	if err != nil {
		return 0, &blockdev.AddrError{Op: "write", Addr: addr, Err: err}
	}
	if d.checksum {
		var trailer [checksumTrailerLen]byte
		binary.LittleEndian.PutUint32(trailer[:], hash.CRC32C(block))
		payload = append(payload, trailer[:]...)
	}

	if err := d.rc.AcquireIO(ctx, len(payload)); err != nil {
		return 0, err
	}
	if err := d.store.Put(ctx, d.blockName(addr), payload); err != nil {
		return 0, &blockdev.AddrError{Op: "write", Addr: addr, Err: err}
	}
	return d.blockSize, nil
}

// Discard removes the object backing a block, returning it to the sparse
// zero state. Discarding an unwritten block is a no-op.
func (d *Device) Discard(ctx context.Context, addr uint64) error {
	if err := d.checkAddr("discard", addr); err != nil {
		return err
	}
	return d.store.Delete(ctx, d.blockName(addr))
}

// Written returns the addresses that have a stored block object, sorted.
func (d *Device) Written(ctx context.Context) ([]uint64, error) {
	names, err := d.store.List(ctx, "blocks/")
	if err != nil {
		return nil, err
	}

	addrs := make([]uint64, 0, len(names))
	for _, name := range names {
		var addr uint64
		if _, err := fmt.Sscanf(name, "blocks/%016x", &addr); err != nil {
			continue // foreign object under our prefix
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// Stats reports store fetches and sparse (zero-fill) reads since creation.
func (d *Device) Stats() (fetches, sparseReads int64) {
	return d.fetches.Load(), d.sparseReads.Load()
}
