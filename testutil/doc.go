// Package testutil provides instrumented block devices for tests.
//
// This package is intended for use in tests and benchmarks only.
//
// # Counting device calls
//
//	dev := testutil.NewCountingDevice(memdev.New(512, 64))
//	// ... exercise a cache layer ...
//	require.EqualValues(t, 4, dev.ReadBlockCalls.Load())
//
// # Deterministic content
//
//	dev := testutil.NewPatternDevice(7, 40) // block N reads as bytes N+1
//
// # Fault injection
//
//	dev := testutil.NewFaultyDevice(inner)
//	dev.FailReads(io.ErrUnexpectedEOF)
package testutil
