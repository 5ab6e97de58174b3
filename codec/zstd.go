package codec

import (
	"errors"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ErrSizeMismatch is returned when a decompressed payload does not match the
// expected size.
var ErrSizeMismatch = errors.New("codec: decompressed size mismatch")

// Zstd compresses blocks with zstandard. Encoder and decoder are created
// lazily and shared; EncodeAll/DecodeAll are safe for concurrent use.
type Zstd struct {
	once sync.Once
	enc  *zstd.Encoder
	dec  *zstd.Decoder
	err  error
}

// NewZstd creates a zstd compressor with default settings.
func NewZstd() *Zstd {
	return &Zstd{}
}

func (z *Zstd) init() {
	z.once.Do(func() {
		z.enc, z.err = zstd.NewWriter(nil)
		if z.err != nil {
			return
		}
		z.dec, z.err = zstd.NewReader(nil)
	})
}

// Compress encodes src as a zstd frame.
func (z *Zstd) Compress(src []byte) ([]byte, error) {
	z.init()
	if z.err != nil {
		return nil, z.err
	}
	return z.enc.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
}

// Decompress decodes a zstd frame and verifies the expected size.
func (z *Zstd) Decompress(src []byte, size int) ([]byte, error) {
	z.init()
	if z.err != nil {
		return nil, z.err
	}
	out, err := z.dec.DecodeAll(src, make([]byte, 0, size))
	if err != nil {
		return nil, err
	}
	if len(out) != size {
		return nil, ErrSizeMismatch
	}
	return out, nil
}

// Name returns the unique name of the compressor ("zstd").
func (z *Zstd) Name() string { return "zstd" }
