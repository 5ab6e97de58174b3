package codec

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v4"
)

// LZ4 compresses blocks with the lz4 frame format. The frame format copes
// with incompressible input natively, which block-sized payloads of random
// data frequently are.
type LZ4 struct{}

// NewLZ4 creates an lz4 compressor.
func NewLZ4() *LZ4 {
	return &LZ4{}
}

// Compress encodes src as an lz4 frame.
func (*LZ4) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress decodes an lz4 frame and verifies the expected size.
func (*LZ4) Decompress(src []byte, size int) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(src))
	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	// A longer payload than expected is as incoherent as a shorter one.
	if n, _ := r.Read(make([]byte, 1)); n != 0 {
		return nil, ErrSizeMismatch
	}
	return out, nil
}

// Name returns the unique name of the compressor ("lz4").
func (*LZ4) Name() string { return "lz4" }
