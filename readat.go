package blockdev

// ReadAt reads len(p) bytes from d starting at byte offset off, spanning as
// many blocks as the range touches.
//
// A block-aligned request for exactly one block delegates straight to
// ReadBlock without staging. Any other shape stages the covering blocks into
// a scratch buffer and copies out the requested window. The first ReadBlock
// failure aborts the whole operation; no partial output is guaranteed in that
// case. Bounds are enforced only by the underlying ReadBlock.
func ReadAt(d BlockDevice, off uint64, p []byte) (int, error) {
	blockSize := d.BlockSize()
	bs := uint64(blockSize)

	if len(p) == blockSize && off%bs == 0 {
		return d.ReadBlock(off/bs, p)
	}

	startBlock := off / bs
	endBlock := (off + uint64(len(p))) / bs
	relOffset := int(off % bs)

	// A range that starts and ends exactly on block boundaries covers
	// end-start blocks; anything else spills into one more.
	var blocks int
	if relOffset == 0 && startBlock != endBlock {
		blocks = int(endBlock - startBlock)
	} else {
		blocks = int(endBlock-startBlock) + 1
	}

	staging := make([]byte, blocks*blockSize)
	for i := 0; i < blocks; i++ {
		start := i * blockSize
		if _, err := d.ReadBlock(startBlock+uint64(i), staging[start:start+blockSize]); err != nil {
			return 0, err
		}
	}

	n := copy(p, staging[relOffset:relOffset+len(p)])
	return n, nil
}
