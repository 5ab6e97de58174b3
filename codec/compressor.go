package codec

// Compressor compresses fixed-size block payloads for at-rest storage.
//
// Decompress takes the expected decoded size because block devices always
// know their block size; implementations use it to allocate exactly once and
// to reject truncated payloads.
//
// Implementations must be safe for concurrent use.
type Compressor interface {
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte, size int) ([]byte, error)
	Name() string
}

// CompressorByName returns a built-in compressor by its stable name.
//
// Device manifests store the compressor name so images are self-describing.
func CompressorByName(name string) (Compressor, bool) {
	switch name {
	case "none", "":
		return None{}, true
	case "zstd":
		return NewZstd(), true
	case "lz4":
		return NewLZ4(), true
	default:
		return nil, false
	}
}

// None is the identity compressor.
type None struct{}

// Compress returns a copy of src.
func (None) Compress(src []byte) ([]byte, error) {
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

// Decompress returns a copy of src, verifying the expected size.
func (None) Decompress(src []byte, size int) ([]byte, error) {
	if len(src) != size {
		return nil, ErrSizeMismatch
	}
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

// Name returns the unique name of the compressor ("none").
func (None) Name() string { return "none" }
