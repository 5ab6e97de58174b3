package blockdev

// BlockDevice is the minimal capability a block-addressed backing store must
// provide. Addresses are valid in [0, BlockCount).
//
// ReadBlock fills exactly BlockSize bytes of p starting at block addr and
// returns the number of bytes read. It must fail with ErrBufferTooSmall if p
// is shorter than BlockSize, and with a device-defined error for an invalid
// address. WriteBlock is the analogous contract for writes.
//
// Implementations must be safe for concurrent use.
type BlockDevice interface {
	BlockSize() int
	BlockCount() int
	ReadBlock(addr uint64, p []byte) (int, error)
	WriteBlock(addr uint64, p []byte) (int, error)
}

// ByteRanger is the byte-addressed read capability. Any BlockDevice gains it
// through the package-level [ReadAt] function; devices with a cheaper native
// path may implement it directly.
type ByteRanger interface {
	ReadAt(off uint64, p []byte) (int, error)
}

// ByteRangeWriter is declared for symmetry with ByteRanger. No generic
// implementation is provided here: splitting an unaligned write across block
// boundaries requires read-modify-write policy that belongs to a higher layer.
type ByteRangeWriter interface {
	WriteAt(off uint64, p []byte) (int, error)
}
