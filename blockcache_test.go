package blockdev_test

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/hupe1980/blockdev"
	"github.com/hupe1980/blockdev/memdev"
	"github.com/hupe1980/blockdev/resource"
	"github.com/hupe1980/blockdev/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockCache_ReadCaching(t *testing.T) {
	dev := testutil.NewCountingDevice(memdev.New(64, 16))
	c := blockdev.NewBlockCache(dev, blockdev.WithCapacity(10))

	p := make([]byte, 64)
	for _, addr := range []uint64{1, 2, 3, 1, 2, 3, 4} {
		_, err := c.ReadBlock(addr, p)
		require.NoError(t, err)
	}

	// Four distinct addresses, each read from the device exactly once.
	assert.Equal(t, int64(4), dev.ReadBlockCalls.Load())
	// Block size is captured once at construction.
	assert.Equal(t, int64(1), dev.BlockSizeCalls.Load())

	hits, misses := c.Stats()
	assert.Equal(t, int64(3), hits)
	assert.Equal(t, int64(4), misses)
	assert.Equal(t, 4, c.Len())
}

func TestBlockCache_ReadRoundTrip(t *testing.T) {
	mem := memdev.New(32, 8)
	block := bytes.Repeat([]byte{0x5A}, 32)
	_, err := mem.WriteBlock(3, block)
	require.NoError(t, err)

	c := blockdev.NewBlockCache(mem)

	p := make([]byte, 32)
	n, err := c.ReadBlock(3, p)
	require.NoError(t, err)
	assert.Equal(t, 32, n)
	assert.Equal(t, block, p)

	// Second read hits the cache and sees the same bytes.
	n, err = c.ReadBlock(3, p)
	require.NoError(t, err)
	assert.Equal(t, 32, n)
	assert.Equal(t, block, p)
}

func TestBlockCache_BufferTooSmall(t *testing.T) {
	c := blockdev.NewBlockCache(memdev.New(64, 4))

	_, err := c.ReadBlock(0, make([]byte, 63))
	assert.ErrorIs(t, err, blockdev.ErrBufferTooSmall)
}

func TestBlockCache_ReadErrorPassesThrough(t *testing.T) {
	c := blockdev.NewBlockCache(memdev.New(64, 4))

	_, err := c.ReadBlock(4, make([]byte, 64))
	assert.ErrorIs(t, err, blockdev.ErrBadAddress)
	assert.Equal(t, 0, c.Len())
}

func TestBlockCache_EvictionWritesBack(t *testing.T) {
	mem := memdev.New(16, 8)
	dev := testutil.NewCountingDevice(mem)
	c := blockdev.NewBlockCache(dev, blockdev.WithCapacity(2))

	p := make([]byte, 16)
	for addr := uint64(0); addr < 4; addr++ {
		_, err := c.ReadBlock(addr, p)
		require.NoError(t, err)
	}

	// Capacity 2, four blocks read: blocks 0 and 1 aged out and were
	// written back.
	assert.Equal(t, int64(2), dev.WriteBlockCalls.Load())
	assert.Equal(t, 2, c.Len())
}

func TestBlockCache_CloseFlushesAll(t *testing.T) {
	dev := testutil.NewCountingDevice(memdev.New(16, 8))
	c := blockdev.NewBlockCache(dev, blockdev.WithCapacity(10))

	p := make([]byte, 16)
	for addr := uint64(0); addr < 5; addr++ {
		_, err := c.ReadBlock(addr, p)
		require.NoError(t, err)
	}

	require.NoError(t, c.Close())
	assert.Equal(t, int64(5), dev.WriteBlockCalls.Load())
	assert.Equal(t, 0, c.Len())

	// Close is idempotent; no double write-back.
	require.NoError(t, c.Close())
	assert.Equal(t, int64(5), dev.WriteBlockCalls.Load())
}

func TestBlockCache_WriteBypassesCache(t *testing.T) {
	mem := memdev.New(16, 8)
	c := blockdev.NewBlockCache(mem)

	// Cache block 0, then write fresh bytes directly.
	p := make([]byte, 16)
	_, err := c.ReadBlock(0, p)
	require.NoError(t, err)

	fresh := bytes.Repeat([]byte{0xEE}, 16)
	n, err := c.WriteBlock(0, fresh)
	require.NoError(t, err)
	assert.Equal(t, 16, n)

	// The device sees the write immediately.
	got := make([]byte, 16)
	_, err = mem.ReadBlock(0, got)
	require.NoError(t, err)
	assert.Equal(t, fresh, got)

	// The cache still serves the stale snapshot.
	_, err = c.ReadBlock(0, p)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 16), p)
}

func TestBlockCache_WriteBackFailureSwallowed(t *testing.T) {
	mem := memdev.New(16, 8)
	faulty := testutil.NewFaultyDevice(mem)
	c := blockdev.NewBlockCache(faulty, blockdev.WithCapacity(10))

	p := make([]byte, 16)
	for addr := uint64(0); addr < 3; addr++ {
		_, err := c.ReadBlock(addr, p)
		require.NoError(t, err)
	}

	faulty.FailWrites(errors.New("device detached"))

	// Teardown still completes and evicts everything.
	require.NoError(t, c.Close())
	assert.Equal(t, 0, c.Len())
}

func TestBlockCache_AdmissionDenied(t *testing.T) {
	dev := testutil.NewCountingDevice(memdev.New(16, 8))

	// Budget for exactly one cached block.
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 16})
	c := blockdev.NewBlockCache(dev, blockdev.WithController(rc))

	p := make([]byte, 16)
	_, err := c.ReadBlock(0, p)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	// Denied admission: the read succeeds but is not retained.
	_, err = c.ReadBlock(1, p)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	// Re-reading the unretained block goes to the device again.
	_, err = c.ReadBlock(1, p)
	require.NoError(t, err)
	assert.Equal(t, int64(3), dev.ReadBlockCalls.Load())

	require.NoError(t, c.Close())
	assert.Equal(t, int64(0), rc.MemoryUsage())
}

func TestBlockCache_ConcurrentReaders(t *testing.T) {
	mem := memdev.New(32, 64)
	for addr := uint64(0); addr < 64; addr++ {
		_, err := mem.WriteBlock(addr, bytes.Repeat([]byte{byte(addr)}, 32))
		require.NoError(t, err)
	}

	c := blockdev.NewBlockCache(mem, blockdev.WithCapacity(8))
	defer c.Close()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := make([]byte, 32)
			for addr := uint64(0); addr < 64; addr++ {
				n, err := c.ReadBlock(addr, p)
				assert.NoError(t, err)
				assert.Equal(t, 32, n)
				assert.Equal(t, byte(addr), p[0])
			}
		}()
	}
	wg.Wait()
}
