// Package mmap provides read-only memory-mapped file access for the local
// device and blob backends. Mapped bytes stay valid until Close.
package mmap

import (
	"errors"
	"io"
	"os"
)

// ErrNegativeSize is returned when the underlying file reports a negative size.
var ErrNegativeSize = errors.New("mmap: file size is negative")

// File represents a memory-mapped file.
type File struct {
	data []byte
	f    *os.File
}

// Open maps the file at path into memory as read-only. Empty files map to a
// nil byte slice but still hold the file handle.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	size := fi.Size()
	if size < 0 {
		f.Close()
		return nil, ErrNegativeSize
	}
	if size == 0 {
		return &File{f: f}, nil
	}

	data, err := mmap(f, int(size))
	if err != nil {
		f.Close()
		return nil, err
	}

	return &File{data: data, f: f}, nil
}

// Bytes returns the mapped bytes. The slice is valid until Close.
func (m *File) Bytes() []byte {
	return m.data
}

// Len returns the mapped size in bytes.
func (m *File) Len() int {
	return len(m.data)
}

// ReadAt implements io.ReaderAt over the mapping.
func (m *File) ReadAt(p []byte, off int64) (n int, err error) {
	if m.data == nil {
		return 0, io.EOF
	}
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n = copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close unmaps the memory and closes the underlying file.
func (m *File) Close() error {
	if m == nil {
		return nil
	}
	var err error
	if m.data != nil {
		err = munmap(m.data)
		m.data = nil
	}
	if m.f != nil {
		if closeErr := m.f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		m.f = nil
	}
	return err
}
