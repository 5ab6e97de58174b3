package blockdev

import "github.com/hupe1980/blockdev/resource"

// DefaultCacheCapacity is the number of block buffers a BlockCache holds
// when no capacity option is given.
const DefaultCacheCapacity = 128

type cacheConfig struct {
	capacity int
	logger   *Logger
	rc       *resource.Controller
}

func defaultCacheConfig() cacheConfig {
	return cacheConfig{
		capacity: DefaultCacheCapacity,
		logger:   NoopLogger(),
	}
}

// CacheOption configures a BlockCache.
type CacheOption func(*cacheConfig)

// WithCapacity sets the maximum number of cached block buffers.
// Values <= 0 fall back to DefaultCacheCapacity.
func WithCapacity(n int) CacheOption {
	return func(c *cacheConfig) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithLogger sets the logger used for write-back diagnostics.
func WithLogger(l *Logger) CacheOption {
	return func(c *cacheConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithController attaches a resource controller for cache-memory admission.
// When the controller denies memory for a freshly read block, the read still
// succeeds but the block is not retained.
func WithController(rc *resource.Controller) CacheOption {
	return func(c *cacheConfig) {
		c.rc = rc
	}
}

type cowConfig struct {
	logger *Logger
}

func defaultCowConfig() cowConfig {
	return cowConfig{
		logger: NoopLogger(),
	}
}

// CowOption configures a CowDevice.
type CowOption func(*cowConfig)

// WithCowLogger sets the logger used for materialization diagnostics.
func WithCowLogger(l *Logger) CowOption {
	return func(c *cowConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
