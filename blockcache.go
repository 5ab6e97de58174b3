package blockdev

import (
	"sync"
	"sync/atomic"

	"github.com/hupe1980/blockdev/internal/cache"
	"github.com/hupe1980/blockdev/resource"
)

// cachedBlock is a shared handle to one block buffer. It is referenced by the
// LRU and by any reader that looked it up, so its bytes carry their own
// reader/writer lock independent of the container lock.
type cachedBlock struct {
	owner *BlockCache
	addr  uint64

	mu   sync.RWMutex
	data []byte
}

// writeBack flushes the block's current bytes to the owning device. There is
// no channel to report failures triggered as a side effect of an unrelated
// insert or teardown, so errors are logged and discarded.
func (b *cachedBlock) writeBack() {
	b.mu.RLock()
	b.owner.devMu.Lock()
	_, err := b.owner.dev.WriteBlock(b.addr, b.data)
	b.owner.devMu.Unlock()
	b.mu.RUnlock()

	b.owner.logger.LogWriteBack(b.addr, err)
	b.owner.rc.ReleaseMemory(int64(len(b.data)))
}

// BlockCache wraps a BlockDevice with a write-back LRU cache of block
// buffers. Reads are served from the cache when possible; blocks fall back to
// the device exactly once and are written back when they age out of the cache
// or when the cache is closed.
//
// WriteBlock intentionally bypasses the cache (see its doc), so callers must
// not rely on coherence across mixed direct writes and cached reads.
type BlockCache struct {
	mu  sync.Mutex
	lru *cache.LRU[*cachedBlock]

	// blockSize is captured once at construction and never re-queried.
	blockSize int

	devMu sync.RWMutex
	dev   BlockDevice

	logger *Logger
	rc     *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64

	closeOnce sync.Once
}

var _ BlockDevice = (*BlockCache)(nil)

// NewBlockCache creates a write-back cache in front of dev. The cache takes
// exclusive ownership of dev: no other component may use the device while the
// cache is live, or deferred write-backs will race with it.
func NewBlockCache(dev BlockDevice, opts ...CacheOption) *BlockCache {
	cfg := defaultCacheConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	c := &BlockCache{
		blockSize: dev.BlockSize(),
		dev:       dev,
		logger:    cfg.logger,
		rc:        cfg.rc,
	}
	c.lru = cache.NewWithEvict(cfg.capacity, func(b *cachedBlock) {
		b.writeBack()
	})
	return c
}

// BlockSize returns the block size captured at construction.
func (c *BlockCache) BlockSize() int {
	return c.blockSize
}

// BlockCount delegates to the wrapped device.
func (c *BlockCache) BlockCount() int {
	c.devMu.RLock()
	defer c.devMu.RUnlock()
	return c.dev.BlockCount()
}

// ReadBlock reads block addr into p, consulting the cache first. A miss reads
// the block from the device and retains it, possibly evicting (and writing
// back) the least-recently-used block.
func (c *BlockCache) ReadBlock(addr uint64, p []byte) (int, error) {
	if len(p) < c.blockSize {
		return 0, ErrBufferTooSmall
	}

	c.mu.Lock()
	b, ok := c.lru.Find(func(cb *cachedBlock) bool { return cb.addr == addr })
	c.mu.Unlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)

		data := make([]byte, c.blockSize)
		c.devMu.RLock()
		_, err := c.dev.ReadBlock(addr, data)
		c.devMu.RUnlock()
		if err != nil {
			return 0, err
		}

		b = &cachedBlock{owner: c, addr: addr, data: data}

		// Admission: on memory denial the read still succeeds, the block
		// just isn't retained.
		if c.rc.TryAcquireMemory(int64(c.blockSize)) {
			c.mu.Lock()
			// Presence re-check: a racing reader may have inserted this
			// address already, and at most one live entry may exist per
			// address.
			dup, found := c.lru.Find(func(cb *cachedBlock) bool { return cb.addr == addr })
			if found {
				c.mu.Unlock()
				c.rc.ReleaseMemory(int64(c.blockSize))
				b = dup
			} else {
				c.lru.Insert(b)
				c.mu.Unlock()
			}
		}
	}

	b.mu.RLock()
	n := copy(p, b.data[:c.blockSize])
	b.mu.RUnlock()
	return n, nil
}

// WriteBlock forwards directly to the device. The cache is neither consulted
// nor invalidated: a block cached by an earlier read is not refreshed by this
// path.
func (c *BlockCache) WriteBlock(addr uint64, p []byte) (int, error) {
	c.devMu.Lock()
	defer c.devMu.Unlock()
	return c.dev.WriteBlock(addr, p)
}

// Len returns the number of blocks currently cached.
func (c *BlockCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns cache hit/miss counters.
func (c *BlockCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close evicts every cached block tail-first, writing each back to the device
// exactly once. Write-back failures are swallowed; Close never reports them.
func (c *BlockCache) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.lru.Close()
		c.mu.Unlock()
	})
	return nil
}
