package blobdev

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/blockdev"
	"github.com/hupe1980/blockdev/blobstore"
	"github.com/hupe1980/blockdev/codec"
)

const (
	// ManifestName is the object name of the device manifest.
	ManifestName = "manifest.json"

	// manifestMagic identifies a blobdev image. Stored as a string so the
	// manifest stays readable with plain object-store tooling.
	manifestMagic = "BLOCKDEV"

	manifestVersion = 1
)

// Manifest describes the geometry and at-rest encoding of a device image.
// It is written once by Format and validated on every Open, making images
// self-describing.
type Manifest struct {
	Magic      string `json:"magic"`
	Version    int    `json:"version"`
	BlockSize  int    `json:"block_size"`
	BlockCount int    `json:"block_count"`
	Compressor string `json:"compressor"`
	Checksum   bool   `json:"checksum"`
}

// Validate checks the manifest fields against the closed error vocabulary.
func (m *Manifest) Validate() error {
	if m.Magic != manifestMagic {
		return blockdev.ErrInvalidMagicNumber
	}
	if m.Version != manifestVersion {
		return fmt.Errorf("%w: unsupported manifest version %d", blockdev.ErrDecode, m.Version)
	}
	if m.BlockSize <= 0 || m.BlockCount <= 0 {
		return fmt.Errorf("%w: block size %d, block count %d", blockdev.ErrIncoherentData, m.BlockSize, m.BlockCount)
	}
	if _, ok := codec.CompressorByName(m.Compressor); !ok {
		return fmt.Errorf("%w: unknown compressor %q", blockdev.ErrDecode, m.Compressor)
	}
	return nil
}

// writeManifest encodes and stores the manifest.
func writeManifest(ctx context.Context, store blobstore.BlobStore, m *Manifest) error {
	data, err := codec.Default.Marshal(m)
	if err != nil {
		return err
	}
	return store.Put(ctx, ManifestName, data)
}

// readManifest loads and validates the manifest, distinguishing a missing
// image (blockdev.ErrNotFound) from a corrupt one.
func readManifest(ctx context.Context, store blobstore.BlobStore) (*Manifest, error) {
	blob, err := store.Open(ctx, ManifestName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, blockdev.ErrNotFound
		}
		return nil, err
	}
	defer blob.Close()

	data, err := blobstore.ReadAll(ctx, blob)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := codec.Default.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", blockdev.ErrDecode, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
