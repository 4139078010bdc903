//go:build unix

// Package mmap maps files read-only into memory, with a plain-read
// fallback on platforms without mmap support.
package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

// ReadOnly maps size bytes of f read-only. The returned close func
// releases the mapping; the data must not be used after it returns.
func ReadOnly(f *os.File, size int) ([]byte, func() error, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return unix.Munmap(data) }, nil
}
