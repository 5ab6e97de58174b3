// Package blockdev provides an embeddable block-device storage stack for Go.
//
// The core is a small capability contract — [BlockDevice] — plus layering
// components that compose over any implementation of it:
//
//   - [ReadAt]: byte-addressed reads derived generically from block reads
//   - [BlockCache]: a write-back LRU cache of block buffers
//   - [CowDevice]: a copy-on-write overlay that diverts writes away from the
//     backing store
//
// Concrete devices live in subpackages: memdev (RAM), filedev (local files,
// mmap-backed reads), and blobdev (object stores via the blobstore packages,
// including S3 and MinIO backends).
//
// # Quick start
//
//	dev := memdev.New(512, 1024)
//	cache := blockdev.NewBlockCache(dev, blockdev.WithCapacity(64))
//	defer cache.Close()
//
//	buf := make([]byte, cache.BlockSize())
//	if _, err := cache.ReadBlock(7, buf); err != nil {
//	    log.Fatal(err)
//	}
//
// All layers are safe for concurrent use. The block-device model is fully
// synchronous: operations complete or fail on the calling goroutine, and no
// layer retries on its own.
package blockdev
