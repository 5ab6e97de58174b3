package blockdev_test

import (
	"bytes"
	"fmt"
	"log"

	"github.com/hupe1980/blockdev"
	"github.com/hupe1980/blockdev/memdev"
)

// Example_blockCache demonstrates wrapping a device with a write-back cache.
func Example_blockCache() {
	dev := memdev.New(512, 128)

	cache := blockdev.NewBlockCache(dev, blockdev.WithCapacity(16))
	defer cache.Close()

	p := make([]byte, 512)
	if _, err := cache.ReadBlock(7, p); err != nil {
		log.Fatal(err)
	}

	hits, misses := cache.Stats()
	fmt.Printf("hits=%d misses=%d\n", hits, misses)
	// Output: hits=0 misses=1
}

// Example_cowDevice demonstrates a copy-on-write overlay over a base image.
func Example_cowDevice() {
	base := memdev.New(512, 128)

	overlay := blockdev.NewCowDevice(base)

	block := bytes.Repeat([]byte{0xAB}, 512)
	if _, err := overlay.WriteBlock(3, block); err != nil {
		log.Fatal(err)
	}

	fmt.Println("materialized:", overlay.Materialized())
	// Output: materialized: [3]
}

// Example_readAt demonstrates byte-addressed reads over any block device.
func Example_readAt() {
	dev := memdev.New(512, 128)

	// 100 bytes starting inside block 1.
	p := make([]byte, 100)
	n, err := blockdev.ReadAt(dev, 600, p)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("read", n, "bytes")
	// Output: read 100 bytes
}
