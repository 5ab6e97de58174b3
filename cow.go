package blockdev

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// overlayBlock is a shared handle to one materialized block buffer,
// lock-guarded independently of the overlay map.
type overlayBlock struct {
	mu   sync.RWMutex
	data []byte
}

// CowDevice is a copy-on-write overlay over a BlockDevice. Writes divert into
// a private overlay of materialized blocks; the backing device is never
// mutated and is read at most once per address, on first write.
//
// The contract is deliberately asymmetric: reads never materialize. Reading
// an address that has not been written through the overlay fails with
// ErrNoSuchBlock even when the backing device holds data there. Callers that
// want read-through compose a CowDevice with their own fallback.
//
// Overlay state is not persisted; discarding the device discards every
// materialized block.
type CowDevice struct {
	devMu sync.RWMutex
	dev   BlockDevice

	mu           sync.Mutex
	blocks       map[uint64]*overlayBlock
	materialized *roaring64.Bitmap

	logger *Logger
}

var _ BlockDevice = (*CowDevice)(nil)

// NewCowDevice creates a copy-on-write overlay over dev. The overlay takes
// exclusive ownership of dev.
func NewCowDevice(dev BlockDevice, opts ...CowOption) *CowDevice {
	cfg := defaultCowConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return &CowDevice{
		dev:          dev,
		blocks:       make(map[uint64]*overlayBlock),
		materialized: roaring64.New(),
		logger:       cfg.logger,
	}
}

// BlockSize delegates to the backing device.
func (c *CowDevice) BlockSize() int {
	c.devMu.RLock()
	defer c.devMu.RUnlock()
	return c.dev.BlockSize()
}

// BlockCount delegates to the backing device.
func (c *CowDevice) BlockCount() int {
	c.devMu.RLock()
	defer c.devMu.RUnlock()
	return c.dev.BlockCount()
}

// ReadBlock copies the overlay's current bytes for addr into p. An address
// that was never written through this overlay yields ErrNoSuchBlock; there is
// no fallback to the backing store.
func (c *CowDevice) ReadBlock(addr uint64, p []byte) (int, error) {
	blockSize := c.BlockSize()
	if len(p) < blockSize {
		return 0, ErrBufferTooSmall
	}

	c.mu.Lock()
	b := c.blocks[addr]
	c.mu.Unlock()

	if b == nil {
		return 0, ErrNoSuchBlock
	}

	b.mu.RLock()
	copy(p[:blockSize], b.data)
	b.mu.RUnlock()
	return blockSize, nil
}

// WriteBlock overwrites the overlay entry for addr with p's contents,
// materializing the block from the backing device first if this is the first
// write to addr. A failed materialization read aborts the write and leaves
// the overlay unchanged.
func (c *CowDevice) WriteBlock(addr uint64, p []byte) (int, error) {
	blockSize := c.BlockSize()
	if len(p) < blockSize {
		return 0, ErrBufferTooSmall
	}

	b, err := c.materialize(addr, blockSize)
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	copy(b.data, p[:blockSize])
	b.mu.Unlock()
	return blockSize, nil
}

// materialize returns the overlay block for addr, copying it from the backing
// device on first use. The overlay lock is held across the backing read so a
// concurrent first write to the same address cannot read the device twice.
func (c *CowDevice) materialize(addr uint64, blockSize int) (*overlayBlock, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b := c.blocks[addr]; b != nil {
		return b, nil
	}

	data := make([]byte, blockSize)
	c.devMu.RLock()
	_, err := c.dev.ReadBlock(addr, data)
	c.devMu.RUnlock()
	c.logger.LogMaterialize(addr, err)
	if err != nil {
		return nil, err
	}

	b := &overlayBlock{data: data}
	c.blocks[addr] = b
	c.materialized.Add(addr)
	return b, nil
}

// Materialized returns the addresses currently held by the overlay, sorted
// ascending.
func (c *CowDevice) Materialized() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.materialized.ToArray()
}

// MaterializedCount returns the number of blocks held by the overlay.
func (c *CowDevice) MaterializedCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.materialized.GetCardinality()
}

// Apply writes every overlay block to dst in ascending address order. The
// backing device stays untouched; the overlay keeps its contents.
func (c *CowDevice) Apply(dst BlockDevice) error {
	for _, addr := range c.Materialized() {
		c.mu.Lock()
		b := c.blocks[addr]
		c.mu.Unlock()
		if b == nil {
			continue
		}

		b.mu.RLock()
		_, err := dst.WriteBlock(addr, b.data)
		b.mu.RUnlock()
		if err != nil {
			return &AddrError{Op: "apply", Addr: addr, Err: err}
		}
	}
	return nil
}

// Discard drops every materialized block, returning the overlay to its
// initial empty state.
func (c *CowDevice) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocks = make(map[uint64]*overlayBlock)
	c.materialized = roaring64.New()
}
