package blockdev

import (
	"errors"
	"fmt"
)

// Closed error vocabulary shared across the library. Layering components in
// this package raise only ErrBufferTooSmall and ErrNoSuchBlock themselves;
// everything else originates in a concrete device and passes through unchanged.
var (
	// ErrBufferTooSmall is returned when a destination or source buffer is
	// smaller than the device's block size. Detected before any I/O.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrNoSuchBlock is returned by lookup-style reads for an address that
	// has not been materialized. It is a miss signal, not a device fault.
	ErrNoSuchBlock = errors.New("no such block")

	// ErrBadAddress is returned when a block address is outside the
	// device's [0, BlockCount) range.
	ErrBadAddress = errors.New("bad address")

	// ErrNotFound is returned when a named resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned for invalid geometry or configuration.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDecode is returned when persisted bytes cannot be decoded.
	ErrDecode = errors.New("decode error")

	// ErrInvalidMagicNumber is returned when a persisted header does not
	// carry the expected magic.
	ErrInvalidMagicNumber = errors.New("invalid magic number")

	// ErrIncoherentData is returned when persisted data fails an integrity
	// or geometry check (checksum mismatch, short block, trailing bytes).
	ErrIncoherentData = errors.New("incoherent data")

	// ErrIsFile is returned when a directory was expected.
	ErrIsFile = errors.New("is a file")

	// ErrIsDir is returned when a regular file was expected.
	ErrIsDir = errors.New("is a directory")

	// ErrWrite is returned when a device write cannot be completed.
	ErrWrite = errors.New("write error")
)

// AddrError decorates a device error with the failing operation and block
// address.
//
// The underlying error can be accessed via errors.Unwrap, so sentinel checks
// like errors.Is(err, ErrBadAddress) keep working.
type AddrError struct {
	Op   string
	Addr uint64
	Err  error
}

func (e *AddrError) Error() string {
	return fmt.Sprintf("%s block %d: %v", e.Op, e.Addr, e.Err)
}

func (e *AddrError) Unwrap() error { return e.Err }
