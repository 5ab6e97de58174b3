package blobdev

import (
	"github.com/hupe1980/blockdev"
	"github.com/hupe1980/blockdev/codec"
	"github.com/hupe1980/blockdev/resource"
)

type config struct {
	compressor codec.Compressor
	checksum   bool
	logger     *blockdev.Logger
	rc         *resource.Controller
}

func defaultConfig() config {
	return config{
		compressor: codec.None{},
		checksum:   true,
		logger:     blockdev.NoopLogger(),
	}
}

// Option configures a Device at Format or Open time.
//
// Encoding options (WithCompressor, WithChecksum) only take effect on Format;
// Open always follows the manifest.
type Option func(*config)

// WithCompressor selects the at-rest block compressor for a new image.
func WithCompressor(c codec.Compressor) Option {
	return func(cfg *config) {
		if c != nil {
			cfg.compressor = c
		}
	}
}

// WithChecksum toggles the CRC32C trailer on stored blocks for a new image.
// Enabled by default.
func WithChecksum(enabled bool) Option {
	return func(cfg *config) { cfg.checksum = enabled }
}

// WithLogger sets the logger. Defaults to a silent logger.
func WithLogger(l *blockdev.Logger) Option {
	return func(cfg *config) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithController attaches a resource controller for IO throttling and
// prefetch concurrency.
func WithController(rc *resource.Controller) Option {
	return func(cfg *config) { cfg.rc = rc }
}
