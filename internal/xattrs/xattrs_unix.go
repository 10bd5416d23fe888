//go:build unix

// Package xattrs wraps the extended-attribute and file-hint syscalls
// the setxattr/getxattr/swift-put operations need, behind
// golang.org/x/sys/unix rather than hand-rolled syscall numbers.
package xattrs

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Supported reports whether xattr operations are available on this
// platform build. Always true for the unix build tag.
const Supported = true

// Set writes name=value as an extended attribute on the open file f.
func Set(fd int, name string, value []byte) error {
	if err := unix.Fsetxattr(fd, name, value, 0); err != nil {
		return fmt.Errorf("xattrs: fsetxattr %s: %w", name, err)
	}
	return nil
}

// Get reads the named extended attribute into a size-byte buffer and
// returns the bytes it holds (at most size).
func Get(fd int, name string, size int) ([]byte, error) {
	buf := make([]byte, size)
	n, err := unix.Fgetxattr(fd, name, buf)
	if err != nil {
		return nil, fmt.Errorf("xattrs: fgetxattr %s: %w", name, err)
	}
	return buf[:n], nil
}

// Fallocate preallocates size bytes of storage for fd, used by swift-put
// to avoid fragmentation from incremental writes.
func Fallocate(fd int, size int64) error {
	if err := unix.Fallocate(fd, 0, 0, size); err != nil {
		return fmt.Errorf("xattrs: fallocate: %w", err)
	}
	return nil
}

// DropCache advises the kernel to evict fd's page-cache range, used by
// swift-put's "drop page cache for the range" step so the following
// swift-get in a benchmark run measures real I/O, not a warm cache hit.
func DropCache(fd int, offset, length int64) error {
	if err := unix.Fadvise(fd, offset, length, unix.FADV_DONTNEED); err != nil {
		return fmt.Errorf("xattrs: fadvise DONTNEED: %w", err)
	}
	return nil
}
