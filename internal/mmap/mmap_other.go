//go:build !unix

package mmap

import (
	"io"
	"os"
)

// ReadOnly reads size bytes of f into memory. The close func is a
// no-op; it exists so callers are mapping-agnostic.
func ReadOnly(f *os.File, size int) ([]byte, func() error, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, nil, err
	}
	return data, func() error { return nil }, nil
}
