// Package cache provides the bounded recency containers used by the
// block-device layering components.
//
// The LRU here is deliberately I/O-ignorant: it knows nothing about devices,
// addresses, or error types. Eviction policy is injected as a callback, which
// is how the write-back layers hook their flush logic in without the
// container taking a dependency on them.
package cache
